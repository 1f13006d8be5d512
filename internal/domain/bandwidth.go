// Package domain
package domain

import (
	"context"
	"errors"
)

var ErrUsageNotFound = errors.New("monthly usage not found")

// CounterReading holds cumulative byte counters for one interface, as
// reported by the OS since boot.
type CounterReading struct {
	BytesSent uint64
	BytesRecv uint64
}

type BandwidthSnapshot struct {
	Interface     string  `json:"network_interface"`
	AvgSentMbps   float64 `json:"avg_sent_mbps"`
	AvgRecvMbps   float64 `json:"avg_recv_mbps"`
	AvgTotalMbps  float64 `json:"avg_total_mbps"`
	SampleCount   int     `json:"current_sample_count"`
	MaxSamples    int     `json:"max_samples_for_avg"`
	PeriodSeconds int     `json:"period_seconds"`
}

// MonthlyUsage is the persisted record: one row, overwritten wholesale on
// each save. Month uses the "2006-01" layout.
type MonthlyUsage struct {
	Month     string `json:"month"`
	BytesSent uint64 `json:"total_bytes_sent"`
	BytesRecv uint64 `json:"total_bytes_recv"`
}

func (u MonthlyUsage) Total() uint64 {
	return u.BytesSent + u.BytesRecv
}

// CounterSource yields cumulative sent/received byte counters for the
// monitored interface.
type CounterSource interface {
	Read(ctx context.Context) (CounterReading, error)
}

type UsageRepository interface {
	// Load returns the persisted usage for the given month, or
	// ErrUsageNotFound when nothing is stored or the stored row belongs to a
	// different month.
	Load(ctx context.Context, month string) (MonthlyUsage, error)
	Save(ctx context.Context, usage MonthlyUsage) error
}
