package core

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"bandmon-server/internal/domain"
	"bandmon-server/internal/logger"
)

type State string

const (
	StateAwaitingBaseline State = "awaiting_baseline"
	StateRunning          State = "running"
	StateStopped          State = "stopped"
)

type MonitorOptions struct {
	Interface      string
	Source         domain.CounterSource
	SampleInterval time.Duration
	MaxSamples     int
	Clock          clock.Clock
	Log            logger.Logger

	// Sink, when set, receives a snapshot after every recorded sample.
	Sink func(domain.BandwidthSnapshot)
}

// Monitor runs the sampling loop and owns all mutable bandwidth state: the
// per-direction windows, the monthly accumulator and the counter baseline.
// One goroutine writes via Run; any number of goroutines read snapshots.
type Monitor struct {
	iface    string
	source   domain.CounterSource
	interval time.Duration
	clock    clock.Clock
	log      logger.Logger
	sink     func(domain.BandwidthSnapshot)

	mu        sync.Mutex
	state     State
	sent      *Window
	recv      *Window
	monthly   *Accumulator
	baseline  domain.CounterReading
	lastCheck time.Time
}

func NewMonitor(opts MonitorOptions) *Monitor {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Monitor{
		iface:    opts.Interface,
		source:   opts.Source,
		interval: opts.SampleInterval,
		clock:    clk,
		log:      opts.Log,
		sink:     opts.Sink,
		state:    StateAwaitingBaseline,
		sent:     NewWindow(opts.MaxSamples),
		recv:     NewWindow(opts.MaxSamples),
		monthly:  NewAccumulator(clk.Now()),
	}
}

// Restore adopts persisted monthly usage. Call before Run; the month is
// re-checked against the current clock so a stale record is never adopted.
func (m *Monitor) Restore(usage domain.MonthlyUsage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monthly.Restore(usage, m.clock.Now())
}

// Run executes the sampling loop until ctx is cancelled. A failed baseline
// read is fatal: the loop stops permanently and snapshots keep serving the
// last known (initial, zeroed) state.
func (m *Monitor) Run(ctx context.Context) {
	if !m.establishBaseline(ctx) {
		return
	}

	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) establishBaseline(ctx context.Context) bool {
	reading, err := m.source.Read(ctx)
	if err != nil {
		m.log.Error("baseline counter read failed, monitor stopped", "interface", m.iface, "error", err)
		m.mu.Lock()
		m.state = StateStopped
		m.mu.Unlock()
		return false
	}

	m.mu.Lock()
	m.baseline = reading
	m.lastCheck = m.clock.Now()
	m.state = StateRunning
	m.mu.Unlock()

	m.log.Info("baseline established", "interface", m.iface, "bytes_sent", reading.BytesSent, "bytes_recv", reading.BytesRecv)
	return true
}

func (m *Monitor) tick(ctx context.Context) {
	reading, err := m.source.Read(ctx)
	if err != nil {
		// Transient: keep the old baseline so the next successful read
		// computes a delta spanning the failed interval(s) too.
		m.log.Warn("counter read failed, interval skipped", "interface", m.iface, "error", err)
		return
	}

	now := m.clock.Now()

	var snap domain.BandwidthSnapshot
	sampled := false

	m.mu.Lock()
	elapsed := now.Sub(m.lastCheck).Seconds()
	if elapsed > 0 {
		sentDelta, sentOK := counterDelta(reading.BytesSent, m.baseline.BytesSent)
		recvDelta, recvOK := counterDelta(reading.BytesRecv, m.baseline.BytesRecv)
		if !sentOK || !recvOK {
			m.log.Warn("counter went backwards, baseline resynchronized", "interface", m.iface)
		}

		m.sent.Record(mbps(sentDelta, elapsed))
		m.recv.Record(mbps(recvDelta, elapsed))
		m.monthly.Add(sentDelta, recvDelta, now)

		snap = m.bandwidthLocked()
		sampled = true
	} else {
		m.log.Warn("non-positive sampling interval, sample skipped", "elapsed_seconds", elapsed)
	}
	m.baseline = reading
	m.lastCheck = now
	m.mu.Unlock()

	if sampled && m.sink != nil {
		m.sink(snap)
	}
}

func (m *Monitor) BandwidthSnapshot() domain.BandwidthSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bandwidthLocked()
}

func (m *Monitor) MonthlySnapshot() domain.MonthlyUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monthly.Snapshot()
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) bandwidthLocked() domain.BandwidthSnapshot {
	avgSent := m.sent.Average()
	avgRecv := m.recv.Average()

	return domain.BandwidthSnapshot{
		Interface:     m.iface,
		AvgSentMbps:   avgSent,
		AvgRecvMbps:   avgRecv,
		AvgTotalMbps:  avgSent + avgRecv,
		SampleCount:   m.sent.Len(),
		MaxSamples:    m.sent.Cap(),
		PeriodSeconds: m.sent.Cap() * int(m.interval.Seconds()),
	}
}

// counterDelta clamps a counter that went backwards (interface restart) to a
// zero delta; the caller resynchronizes the baseline to the new reading.
func counterDelta(current, baseline uint64) (uint64, bool) {
	if current < baseline {
		return 0, false
	}
	return current - baseline, true
}

func mbps(deltaBytes uint64, elapsedSeconds float64) float64 {
	return float64(deltaBytes) * 8 / 1_000_000 / elapsedSeconds
}
