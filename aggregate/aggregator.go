// Package aggregate keeps the in-memory state of the dashboard: how often each
// title was edited, a bounded window of recent byte deltas and whether anything
// changed since the last redraw. It also owns the ingestion and redraw loops
// that read and write that state.
package aggregate

import (
	"sort"
	"sync"
	"time"

	"github.com/keilerkonzept/editstream/edits"
	"github.com/keilerkonzept/editstream/internal/ring"
)

type titleStat struct {
	count uint64
	seq   uint64 // first-seen order
}

// TitleCount is one row of the top titles ranking.
type TitleCount struct {
	Title string
	Count uint64
}

type Config struct {
	// Retention is the maximum number of byte deltas kept.
	Retention int
	// Trending enables the sliding-window sketch when non-nil.
	Trending *TrendingConfig
}

// Aggregator is safe for concurrent use; ingestion and redraw usually run on
// different goroutines.
type Aggregator struct {
	mu       sync.Mutex
	titles   map[string]*titleStat
	seq      uint64
	deltas   *ring.Ring[int64]
	pending  bool
	trending *Trending
}

func New(cfg Config) *Aggregator {
	a := &Aggregator{
		titles: make(map[string]*titleStat),
		deltas: ring.New[int64](cfg.Retention),
	}
	if cfg.Trending != nil {
		a.trending = NewTrending(*cfg.Trending)
	}
	return a
}

// Ingest folds an accepted edit into the aggregates and marks them pending.
// Callers filter out non-edit records first.
func (a *Aggregator) Ingest(r edits.Record, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.titles[r.Title]
	if !ok {
		st = &titleStat{seq: a.seq}
		a.seq++
		a.titles[r.Title] = st
	}
	st.count++
	a.deltas.Add(r.Delta())
	if a.trending != nil {
		a.trending.Add(r.Title, now)
	}
	a.pending = true
}

func (a *Aggregator) TitleCount(title string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.titles[title]; ok {
		return st.count
	}
	return 0
}

// Titles returns the number of distinct titles seen.
func (a *Aggregator) Titles() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.titles)
}

// TopTitles ranks titles by descending count. Equal counts keep the order in
// which the titles were first seen.
func (a *Aggregator) TopTitles(n int) []TitleCount {
	a.mu.Lock()
	rows := make([]TitleCount, 0, len(a.titles))
	seqs := make(map[string]uint64, len(a.titles))
	for title, st := range a.titles {
		rows = append(rows, TitleCount{Title: title, Count: st.count})
		seqs[title] = st.seq
	}
	a.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return seqs[rows[i].Title] < seqs[rows[j].Title]
	})
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// Deltas returns every retained byte delta, oldest first.
func (a *Aggregator) Deltas() []int64 {
	return a.RecentDeltas(-1)
}

// RecentDeltas returns up to m of the most recent byte deltas, oldest first.
// A negative m returns all of them.
func (a *Aggregator) RecentDeltas(m int) []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deltas.Last(m)
}

// TrendingTitles returns the sliding-window ranking, or nil when trending is
// disabled.
func (a *Aggregator) TrendingTitles(n int, now time.Time) []TrendingItem {
	if a.trending == nil {
		return nil
	}
	return a.trending.Top(n, now)
}

func (a *Aggregator) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

func (a *Aggregator) MarkPending() {
	a.mu.Lock()
	a.pending = true
	a.mu.Unlock()
}

// TakePending reports whether an update was pending and clears the flag.
func (a *Aggregator) TakePending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.pending
	a.pending = false
	return p
}
