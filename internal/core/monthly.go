package core

import (
	"time"

	"bandmon-server/internal/domain"
)

const monthKeyLayout = "2006-01"

// MonthKey derives the calendar-month key ("2024-06") for a point in time.
func MonthKey(t time.Time) string {
	return t.Format(monthKeyLayout)
}

// Accumulator tracks bytes transferred within the current calendar month.
// Rollover is destructive: when the month changes, the previous totals are
// discarded before the new delta is applied. Not safe for concurrent use;
// the Monitor serializes all access.
type Accumulator struct {
	usage domain.MonthlyUsage
}

func NewAccumulator(now time.Time) *Accumulator {
	return &Accumulator{usage: domain.MonthlyUsage{Month: MonthKey(now)}}
}

// Restore adopts a persisted state, but only when its month matches the
// current one. Returns whether the state was adopted.
func (a *Accumulator) Restore(usage domain.MonthlyUsage, now time.Time) bool {
	if usage.Month != MonthKey(now) {
		return false
	}
	a.usage = usage
	return true
}

func (a *Accumulator) Add(sentDelta, recvDelta uint64, now time.Time) {
	if month := MonthKey(now); month != a.usage.Month {
		a.usage = domain.MonthlyUsage{Month: month}
	}
	a.usage.BytesSent += sentDelta
	a.usage.BytesRecv += recvDelta
}

func (a *Accumulator) Snapshot() domain.MonthlyUsage {
	return a.usage
}
