package core

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"bandmon-server/internal/logger"
)

// Scheduler invokes sample and feeds the result to sink on a fixed interval.
// It drives the periodic monthly-usage flush; the sampling loop has its own
// state machine in Monitor.
type Scheduler[T any] struct {
	interval time.Duration
	clock    clock.Clock
	log      logger.Logger
	sample   func(context.Context) T
	sink     func(context.Context, T)
}

func NewScheduler[T any](interval time.Duration, clk clock.Clock, log logger.Logger, sample func(context.Context) T, sink func(context.Context, T)) *Scheduler[T] {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler[T]{interval: interval, clock: clk, log: log, sample: sample, sink: sink}
}

func (s *Scheduler[T]) Start(ctx context.Context) {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler[T]) tick(ctx context.Context) {
	if s.sample == nil || s.sink == nil {
		return
	}

	s.sink(ctx, s.sample(ctx))
}
