package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keilerkonzept/editstream/edits"
)

func edit(title string, delta int64) edits.Record {
	old, cur := int64(1000), 1000+delta
	return edits.Record{
		Type:      edits.TypeEdit,
		Title:     title,
		User:      "tester",
		Wiki:      "enwiki",
		Timestamp: 1700000000,
		Length:    &edits.Length{Old: &old, New: &cur},
	}
}

func TestAggregatorCountsAndDeltas(t *testing.T) {
	a := New(Config{Retention: 100})
	now := time.Now()

	a.Ingest(edit("A", 10), now)
	a.Ingest(edit("A", -5), now)
	a.Ingest(edit("B", 3), now)

	assert.Equal(t, uint64(2), a.TitleCount("A"))
	assert.Equal(t, uint64(1), a.TitleCount("B"))
	assert.Equal(t, uint64(0), a.TitleCount("C"))
	assert.Equal(t, 2, a.Titles())
	assert.Equal(t, []int64{10, -5, 3}, a.Deltas())

	top := a.TopTitles(10)
	require.Len(t, top, 2)
	assert.Equal(t, TitleCount{Title: "A", Count: 2}, top[0])
	assert.Equal(t, TitleCount{Title: "B", Count: 1}, top[1])
}

func TestAggregatorRetentionEvictsOldest(t *testing.T) {
	a := New(Config{Retention: 2})
	now := time.Now()
	for _, d := range []int64{1, 2, 3} {
		a.Ingest(edit("A", d), now)
	}
	assert.Equal(t, []int64{2, 3}, a.Deltas())

	for d := int64(4); d < 50; d++ {
		a.Ingest(edit("A", d), now)
		assert.LessOrEqual(t, len(a.Deltas()), 2)
	}
	assert.Equal(t, []int64{48, 49}, a.Deltas())
}

func TestAggregatorRecentDeltas(t *testing.T) {
	a := New(Config{Retention: 10})
	now := time.Now()
	for _, d := range []int64{1, 2, 3, 4} {
		a.Ingest(edit("A", d), now)
	}
	assert.Equal(t, []int64{3, 4}, a.RecentDeltas(2))
	assert.Equal(t, []int64{1, 2, 3, 4}, a.RecentDeltas(100))
	assert.Empty(t, a.RecentDeltas(0))
}

func TestTopTitlesTieBreakFirstSeen(t *testing.T) {
	a := New(Config{Retention: 10})
	now := time.Now()
	for _, title := range []string{"zeta", "alpha", "mid", "alpha", "zeta", "mid"} {
		a.Ingest(edit(title, 0), now)
	}
	top := a.TopTitles(3)
	require.Len(t, top, 3)
	assert.Equal(t, "zeta", top[0].Title)
	assert.Equal(t, "alpha", top[1].Title)
	assert.Equal(t, "mid", top[2].Title)

	assert.Len(t, a.TopTitles(2), 2)
}

func TestTitleFrequencyMatchesAcceptedRecords(t *testing.T) {
	a := New(Config{Retention: 5})
	want := map[string]uint64{}
	titles := []string{"a", "b", "c", "a", "d", "a", "b", "e", "c", "a"}
	for i := 0; i < 200; i++ {
		title := titles[i%len(titles)]
		a.Ingest(edit(title, int64(i)), time.Now())
		want[title]++
	}
	for title, n := range want {
		assert.Equal(t, n, a.TitleCount(title), title)
	}
	assert.Len(t, a.Deltas(), 5)
}

func TestPendingFlag(t *testing.T) {
	a := New(Config{Retention: 10})
	assert.False(t, a.Pending())
	assert.False(t, a.TakePending())

	a.Ingest(edit("A", 1), time.Now())
	assert.True(t, a.Pending())
	assert.True(t, a.TakePending())
	assert.False(t, a.Pending())

	a.MarkPending()
	assert.True(t, a.TakePending())
}

func TestAggregatorTrendingDisabled(t *testing.T) {
	a := New(Config{Retention: 10})
	a.Ingest(edit("A", 1), time.Now())
	assert.Nil(t, a.TrendingTitles(5, time.Now()))
}
