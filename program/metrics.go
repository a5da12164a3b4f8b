package main

import (
	"sync/atomic"
	"time"

	"github.com/keilerkonzept/editstream/aggregate"
	"github.com/keilerkonzept/editstream/internal/ring"
)

type durationStats struct {
	last time.Duration
	max  time.Duration
	avg  time.Duration
	n    int
}

func summarize(samples []time.Duration) durationStats {
	if len(samples) == 0 {
		return durationStats{}
	}
	s := durationStats{n: len(samples), last: samples[len(samples)-1]}
	var sum time.Duration
	for _, d := range samples {
		sum += d
		s.max = max(s.max, d)
	}
	s.avg = sum / time.Duration(s.n)
	return s
}

// dashboardMetrics counts what the ingestor did with each payload and how
// long redraws take. Ingest counters are written from the consumer goroutine;
// the redraw ring is only touched by whoever drives the scheduler.
type dashboardMetrics struct {
	startedNs     atomic.Int64
	accepted      atomic.Uint64
	ignored       atomic.Uint64
	malformed     atomic.Uint64
	firstIngestNs atomic.Int64
	lastIngestNs  atomic.Int64

	redraws atomic.Uint64
	redraw  *ring.Ring[time.Duration]
}

func newDashboardMetrics(window int) *dashboardMetrics {
	m := &dashboardMetrics{redraw: ring.New[time.Duration](window)}
	m.startedNs.Store(time.Now().UnixNano())
	return m
}

func (m *dashboardMetrics) observeIngest(now time.Time, outcome aggregate.Outcome) {
	switch outcome {
	case aggregate.Accepted:
		m.accepted.Add(1)
	case aggregate.Ignored:
		m.ignored.Add(1)
	default:
		m.malformed.Add(1)
		return
	}
	nowNs := now.UnixNano()
	m.firstIngestNs.CompareAndSwap(0, nowNs)
	m.lastIngestNs.Store(nowNs)
}

func (m *dashboardMetrics) observeRedraw(d time.Duration) {
	m.redraws.Add(1)
	m.redraw.Add(d)
}

type metricsSnapshot struct {
	started   time.Time
	accepted  uint64
	ignored   uint64
	malformed uint64
	avgRps    uint64
	redraws   uint64
	redraw    durationStats
}

func (m *dashboardMetrics) snapshot() metricsSnapshot {
	accepted := m.accepted.Load()
	ignored := m.ignored.Load()

	// Rate over every well-formed record, edit or not: it reflects the feed.
	avgRps := uint64(0)
	first, last := m.firstIngestNs.Load(), m.lastIngestNs.Load()
	if first != 0 && last > first {
		active := time.Duration(last - first)
		avgRps = uint64(float64(accepted+ignored)/active.Seconds() + 0.5)
	}
	return metricsSnapshot{
		started:   time.Unix(0, m.startedNs.Load()),
		accepted:  accepted,
		ignored:   ignored,
		malformed: m.malformed.Load(),
		avgRps:    avgRps,
		redraws:   m.redraws.Load(),
		redraw:    summarize(m.redraw.Last(-1)),
	}
}
