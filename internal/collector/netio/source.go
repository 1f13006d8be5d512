// Package netio
package netio

import (
	"context"
	"errors"
	"fmt"

	psnet "github.com/shirou/gopsutil/v3/net"

	"bandmon-server/internal/domain"
)

var ErrInterfaceNotFound = errors.New("network interface not found")

// Source reads cumulative byte counters for a single interface.
type Source struct {
	iface string
}

func NewSource(iface string) *Source {
	return &Source{iface: iface}
}

func (s *Source) Read(ctx context.Context) (domain.CounterReading, error) {
	counters, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return domain.CounterReading{}, fmt.Errorf("read io counters: %w", err)
	}

	for _, c := range counters {
		if c.Name == s.iface {
			return domain.CounterReading{
				BytesSent: c.BytesSent,
				BytesRecv: c.BytesRecv,
			}, nil
		}
	}

	return domain.CounterReading{}, fmt.Errorf("%w: %s", ErrInterfaceNotFound, s.iface)
}
