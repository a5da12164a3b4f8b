package aggregate

import (
	"sort"
	"sync"
	"time"

	"github.com/keilerkonzept/topk/heap"
	"github.com/keilerkonzept/topk/sliding"
)

// TrendingItem is a title and its approximate count within the window.
type TrendingItem = heap.Item

type TrendingConfig struct {
	K      int
	Window time.Duration
	Tick   time.Duration
	Width  int
	Depth  int
}

func (c TrendingConfig) withDefaults() TrendingConfig {
	if c.K < 1 {
		c.K = 10
	}
	if c.Tick <= 0 {
		c.Tick = 10 * time.Second
	}
	if c.Window < c.Tick {
		c.Window = c.Tick
	}
	if c.Width < 1 {
		c.Width = 3000
	}
	if c.Depth < 1 {
		c.Depth = 3
	}
	return c
}

// Trending tracks the most edited titles over a sliding window of wall-clock
// time. Counts are approximate once the number of distinct titles in the
// window exceeds what the sketch can hold exactly.
type Trending struct {
	mu     sync.Mutex
	tick   time.Duration
	sketch *sliding.Sketch
	last   time.Time
}

func NewTrending(cfg TrendingConfig) *Trending {
	cfg = cfg.withDefaults()
	return &Trending{
		tick: cfg.Tick,
		sketch: sliding.New(cfg.K,
			int(cfg.Window/cfg.Tick),
			sliding.WithWidth(cfg.Width),
			sliding.WithDepth(cfg.Depth),
			sliding.WithDecay(0.9),
		),
	}
}

func (t *Trending) Add(title string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance(now)
	t.sketch.Incr(title)
}

// Top returns up to n items ordered by descending count, then by title.
// Items that fell out of the window are omitted.
func (t *Trending) Top(n int, now time.Time) []TrendingItem {
	t.mu.Lock()
	t.advance(now)
	items := t.sketch.SortedSlice()
	out := make([]TrendingItem, 0, len(items))
	for _, it := range items {
		it.Count = t.sketch.Count(it.Item)
		if it.Count > 0 {
			out = append(out, it)
		}
	}
	t.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Item < out[j].Item
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// advance moves the window forward by the number of whole ticks since the
// last call. Callers hold t.mu.
func (t *Trending) advance(now time.Time) {
	now = now.Truncate(t.tick)
	if t.last.IsZero() {
		t.last = now
		return
	}
	if ticks := int(now.Sub(t.last) / t.tick); ticks > 0 {
		t.sketch.Ticks(ticks)
		t.last = now
	}
}
