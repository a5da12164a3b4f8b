package aggregate

import (
	"context"
	"sync"
	"time"
)

// Snapshot is a read-only copy of the aggregate a redraw needs. Only the
// fields relevant to Mode are filled.
type Snapshot struct {
	Mode     Mode
	At       time.Time
	Titles   []TitleCount
	Deltas   []int64
	Bins     []Bin
	Trending []TrendingItem
	Log      []string
}

type RedrawFunc func(Snapshot)

type SchedulerConfig struct {
	// TopN is how many titles the titles and trending views rank.
	TopN int
	// Sample is how many recent deltas the bytes view bins.
	Sample int
	// Bins is the number of histogram buckets.
	Bins int
	// LogLines is how many log lines the wikis view receives.
	LogLines int
}

// Scheduler coalesces any number of ingested records into at most one redraw
// per tick.
type Scheduler struct {
	agg *Aggregator
	sel *Selector
	log *LogView
	cfg SchedulerConfig

	mu       sync.Mutex
	handlers map[Mode]RedrawFunc
}

func NewScheduler(agg *Aggregator, sel *Selector, logView *LogView, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		agg:      agg,
		sel:      sel,
		log:      logView,
		cfg:      cfg,
		handlers: make(map[Mode]RedrawFunc),
	}
}

// Handle registers the redraw for a mode, replacing any earlier one.
func (s *Scheduler) Handle(m Mode, fn RedrawFunc) {
	s.mu.Lock()
	s.handlers[m] = fn
	s.mu.Unlock()
}

// Tick redraws the current mode if anything changed since the last redraw.
// It reports whether a redraw was consumed.
func (s *Scheduler) Tick(now time.Time) bool {
	mode := s.sel.Mode()
	if mode == ModeNone {
		return false
	}
	if !s.agg.TakePending() {
		return false
	}

	s.mu.Lock()
	fn := s.handlers[mode]
	s.mu.Unlock()
	if fn != nil {
		fn(s.snapshot(mode, now))
	}
	return true
}

func (s *Scheduler) snapshot(mode Mode, now time.Time) Snapshot {
	snap := Snapshot{Mode: mode, At: now}
	switch mode {
	case ModeTitles:
		snap.Titles = s.agg.TopTitles(s.cfg.TopN)
	case ModeBytes:
		snap.Deltas = s.agg.RecentDeltas(s.cfg.Sample)
		snap.Bins = Histogram(snap.Deltas, s.cfg.Bins)
	case ModeTrending:
		snap.Trending = s.agg.TrendingTitles(s.cfg.TopN, now)
	case ModeWikis:
		if s.log != nil {
			snap.Log = s.log.Lines(s.cfg.LogLines)
		}
	}
	return snap
}

// Run calls Tick every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-ticker.C:
			s.Tick(t)
		}
	}
}
