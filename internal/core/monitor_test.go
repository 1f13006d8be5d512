package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandmon-server/internal/domain"
	"bandmon-server/internal/logger"
)

type fakeSource struct {
	mu      sync.Mutex
	reading domain.CounterReading
	err     error
}

func (f *fakeSource) Read(context.Context) (domain.CounterReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.CounterReading{}, f.err
	}
	return f.reading, nil
}

func (f *fakeSource) set(sent, recv uint64) {
	f.mu.Lock()
	f.reading = domain.CounterReading{BytesSent: sent, BytesRecv: recv}
	f.mu.Unlock()
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func newTestMonitor(t *testing.T, src *fakeSource, sink func(domain.BandwidthSnapshot)) (*Monitor, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	m := NewMonitor(MonitorOptions{
		Interface:      "eth0",
		Source:         src,
		SampleInterval: 5 * time.Second,
		MaxSamples:     3,
		Clock:          mock,
		Log:            logger.Discard(),
		Sink:           sink,
	})

	return m, mock
}

func TestMonitor_BaselineFailureIsFatal(t *testing.T) {
	src := &fakeSource{}
	src.fail(errors.New("interface gone"))
	m, _ := newTestMonitor(t, src, nil)

	require.False(t, m.establishBaseline(context.Background()))
	assert.Equal(t, StateStopped, m.State())

	// Queries keep serving the zeroed snapshot.
	snap := m.BandwidthSnapshot()
	assert.Equal(t, 0, snap.SampleCount)
	assert.Equal(t, 0.0, snap.AvgTotalMbps)
}

func TestMonitor_RecordsSamples(t *testing.T) {
	src := &fakeSource{}
	src.set(0, 0)
	m, mock := newTestMonitor(t, src, nil)

	require.True(t, m.establishBaseline(context.Background()))
	assert.Equal(t, StateRunning, m.State())

	// 6.25 MB sent and 12.5 MB received over 5s: 10 and 20 Mb/s.
	src.set(6_250_000, 12_500_000)
	mock.Add(5 * time.Second)
	m.tick(context.Background())

	snap := m.BandwidthSnapshot()
	assert.InDelta(t, 10.0, snap.AvgSentMbps, 1e-9)
	assert.InDelta(t, 20.0, snap.AvgRecvMbps, 1e-9)
	assert.InDelta(t, 30.0, snap.AvgTotalMbps, 1e-9)
	assert.Equal(t, 1, snap.SampleCount)
	assert.Equal(t, 3, snap.MaxSamples)
	assert.Equal(t, 15, snap.PeriodSeconds)
	assert.Equal(t, "eth0", snap.Interface)

	usage := m.MonthlySnapshot()
	assert.Equal(t, "2024-06", usage.Month)
	assert.Equal(t, uint64(6_250_000), usage.BytesSent)
	assert.Equal(t, uint64(12_500_000), usage.BytesRecv)

	src.set(12_500_000, 25_000_000)
	mock.Add(5 * time.Second)
	m.tick(context.Background())

	assert.Equal(t, 2, m.BandwidthSnapshot().SampleCount)
	assert.Equal(t, uint64(12_500_000), m.MonthlySnapshot().BytesSent)
}

func TestMonitor_TransientReadFailureSpansInterval(t *testing.T) {
	src := &fakeSource{}
	src.set(0, 0)
	m, mock := newTestMonitor(t, src, nil)
	require.True(t, m.establishBaseline(context.Background()))

	src.fail(errors.New("temporary"))
	mock.Add(5 * time.Second)
	m.tick(context.Background())

	assert.Equal(t, 0, m.BandwidthSnapshot().SampleCount)

	// Next successful read computes a delta over both intervals: 12.5 MB
	// over 10s is still 10 Mb/s.
	src.fail(nil)
	src.set(12_500_000, 0)
	mock.Add(5 * time.Second)
	m.tick(context.Background())

	snap := m.BandwidthSnapshot()
	assert.Equal(t, 1, snap.SampleCount)
	assert.InDelta(t, 10.0, snap.AvgSentMbps, 1e-9)
	assert.Equal(t, uint64(12_500_000), m.MonthlySnapshot().BytesSent)
}

func TestMonitor_ClockAnomalyAdvancesBaseline(t *testing.T) {
	src := &fakeSource{}
	src.set(0, 0)
	m, mock := newTestMonitor(t, src, nil)
	require.True(t, m.establishBaseline(context.Background()))

	// Zero elapsed time: no sample, but the baseline must advance to the
	// new reading.
	src.set(999, 999)
	m.tick(context.Background())
	assert.Equal(t, 0, m.BandwidthSnapshot().SampleCount)
	assert.Equal(t, uint64(0), m.MonthlySnapshot().BytesSent)

	src.set(999+6_250_000, 999)
	mock.Add(5 * time.Second)
	m.tick(context.Background())

	snap := m.BandwidthSnapshot()
	assert.Equal(t, 1, snap.SampleCount)
	assert.InDelta(t, 10.0, snap.AvgSentMbps, 1e-9)
	assert.Equal(t, uint64(6_250_000), m.MonthlySnapshot().BytesSent)
}

func TestMonitor_CounterResetClampsAndResyncs(t *testing.T) {
	src := &fakeSource{}
	src.set(10_000, 10_000)
	m, mock := newTestMonitor(t, src, nil)
	require.True(t, m.establishBaseline(context.Background()))

	// Counters went backwards (interface restart): zero-valued sample, no
	// monthly delta, baseline resynchronized.
	src.set(1_000, 1_000)
	mock.Add(5 * time.Second)
	m.tick(context.Background())

	snap := m.BandwidthSnapshot()
	assert.Equal(t, 1, snap.SampleCount)
	assert.Equal(t, 0.0, snap.AvgTotalMbps)
	assert.Equal(t, uint64(0), m.MonthlySnapshot().Total())

	src.set(1_000+6_250_000, 1_000)
	mock.Add(5 * time.Second)
	m.tick(context.Background())

	snap = m.BandwidthSnapshot()
	assert.Equal(t, 2, snap.SampleCount)
	assert.InDelta(t, 5.0, snap.AvgSentMbps, 1e-9) // (10 + 0) / 2
	assert.Equal(t, uint64(6_250_000), m.MonthlySnapshot().BytesSent)
}

func TestMonitor_MonthRolloverOnTick(t *testing.T) {
	src := &fakeSource{}
	src.set(0, 0)

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 30, 23, 59, 58, 0, time.UTC))

	m := NewMonitor(MonitorOptions{
		Interface:      "eth0",
		Source:         src,
		SampleInterval: 5 * time.Second,
		MaxSamples:     3,
		Clock:          mock,
		Log:            logger.Discard(),
	})
	require.True(t, m.establishBaseline(context.Background()))

	m.mu.Lock()
	m.monthly.Add(1000, 2000, mock.Now())
	m.mu.Unlock()
	require.Equal(t, "2024-06", m.MonthlySnapshot().Month)

	// The tick lands in July: the June totals are discarded and the whole
	// delta is booked to the new month.
	src.set(100, 200)
	mock.Add(5 * time.Second)
	m.tick(context.Background())

	usage := m.MonthlySnapshot()
	assert.Equal(t, "2024-07", usage.Month)
	assert.Equal(t, uint64(100), usage.BytesSent)
	assert.Equal(t, uint64(200), usage.BytesRecv)
}

func TestMonitor_SinkReceivesEachSample(t *testing.T) {
	var got []domain.BandwidthSnapshot
	src := &fakeSource{}
	src.set(0, 0)
	m, mock := newTestMonitor(t, src, func(s domain.BandwidthSnapshot) {
		got = append(got, s)
	})
	require.True(t, m.establishBaseline(context.Background()))

	for i := 1; i <= 2; i++ {
		src.set(uint64(i)*6_250_000, 0)
		mock.Add(5 * time.Second)
		m.tick(context.Background())
	}

	require.Len(t, got, 2)
	assert.Equal(t, m.BandwidthSnapshot(), got[1])
}

func TestMonitor_RestoreMonthlyUsage(t *testing.T) {
	src := &fakeSource{}
	m, _ := newTestMonitor(t, src, nil)

	assert.True(t, m.Restore(domain.MonthlyUsage{Month: "2024-06", BytesSent: 11, BytesRecv: 22}))
	assert.Equal(t, uint64(11), m.MonthlySnapshot().BytesSent)

	assert.False(t, m.Restore(domain.MonthlyUsage{Month: "2024-05", BytesSent: 99, BytesRecv: 99}))
	assert.Equal(t, uint64(11), m.MonthlySnapshot().BytesSent)
}

func TestMonitor_ConcurrentReadersSeeConsistentState(t *testing.T) {
	src := &fakeSource{}
	src.set(0, 0)
	m, mock := newTestMonitor(t, src, nil)
	require.True(t, m.establishBaseline(context.Background()))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				snap := m.BandwidthSnapshot()
				assert.LessOrEqual(t, snap.SampleCount, snap.MaxSamples)
				assert.InDelta(t, snap.AvgSentMbps+snap.AvgRecvMbps, snap.AvgTotalMbps, 1e-9)

				usage := m.MonthlySnapshot()
				assert.Equal(t, usage.BytesSent+usage.BytesRecv, usage.Total())
			}
		}()
	}

	for i := 1; i <= 200; i++ {
		src.set(uint64(i)*1_000_000, uint64(i)*2_000_000)
		mock.Add(5 * time.Second)
		m.tick(context.Background())
	}

	close(done)
	wg.Wait()

	assert.Equal(t, 3, m.BandwidthSnapshot().SampleCount)
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	src.set(0, 0)

	m := NewMonitor(MonitorOptions{
		Interface:      "eth0",
		Source:         src,
		SampleInterval: 10 * time.Millisecond,
		MaxSamples:     10,
		Log:            logger.Discard(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		return m.State() == StateRunning
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
