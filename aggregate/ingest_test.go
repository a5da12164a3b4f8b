package aggregate

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const editJSON = `{"type":"edit","title":"Mars","user":"Ada","wiki":"enwiki","timestamp":1700000000,"length":{"old":10,"new":25}}`

func newTestIngestor(mode Mode) *Ingestor {
	agg := New(Config{Retention: 10})
	sel := NewSelector(agg, mode)
	agg.TakePending()
	return &Ingestor{
		Agg:      agg,
		Selector: sel,
		Log:      NewLogView(3, nil),
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func TestIngestorAcceptsEdit(t *testing.T) {
	in := newTestIngestor(ModeTitles)
	assert.Equal(t, Accepted, in.Handle([]byte(editJSON)))
	assert.Equal(t, uint64(1), in.Agg.TitleCount("Mars"))
	assert.Equal(t, []int64{15}, in.Agg.Deltas())
	assert.True(t, in.Agg.Pending())
	assert.Zero(t, in.Log.Len())
}

func TestIngestorIgnoresNonEdit(t *testing.T) {
	in := newTestIngestor(ModeTitles)
	out := in.Handle([]byte(`{"type":"categorize","title":"Mars","user":"Ada","wiki":"enwiki","timestamp":1}`))
	assert.Equal(t, Ignored, out)
	assert.Zero(t, in.Agg.Titles())
	assert.Empty(t, in.Agg.Deltas())
	assert.False(t, in.Agg.Pending())
}

func TestIngestorDropsMalformed(t *testing.T) {
	in := newTestIngestor(ModeTitles)
	for _, data := range []string{
		`not json`,
		`{"type":"edit","title":"Mars"}`,
		`{"type":"edit","title":"Mars","user":"Ada","wiki":"enwiki","timestamp":"soon"}`,
		``,
	} {
		assert.Equal(t, Malformed, in.Handle([]byte(data)), data)
	}
	assert.Zero(t, in.Agg.Titles())
	assert.False(t, in.Agg.Pending())

	assert.Equal(t, Accepted, in.Handle([]byte(editJSON)))
}

func TestIngestorCountsEditsWithoutTimestamp(t *testing.T) {
	in := newTestIngestor(ModeTitles)
	assert.Equal(t, Accepted, in.Handle([]byte(`{"type":"edit","title":"Mars","user":"Ada","wiki":"enwiki"}`)))
	assert.Equal(t, Accepted, in.Handle([]byte(`{"type":"edit","title":"Mars","user":"Ada","wiki":"enwiki","timestamp":0}`)))
	assert.Equal(t, uint64(2), in.Agg.TitleCount("Mars"))
}

func TestIngestorRejectsNegativeLengths(t *testing.T) {
	in := newTestIngestor(ModeBytes)
	for _, data := range []string{
		`{"type":"edit","title":"A","user":"u","wiki":"w","length":{"old":-9000000000000000000,"new":0}}`,
		`{"type":"edit","title":"B","user":"u","wiki":"w","length":{"old":0,"new":-9000000000000000000}}`,
	} {
		assert.Equal(t, Malformed, in.Handle([]byte(data)), data)
	}
	huge := `{"type":"edit","title":"C","user":"u","wiki":"w","length":{"old":9000000000000000000,"new":0}}`
	assert.Equal(t, Accepted, in.Handle([]byte(huge)))
	grow := `{"type":"edit","title":"D","user":"u","wiki":"w","length":{"old":0,"new":9000000000000000000}}`
	assert.Equal(t, Accepted, in.Handle([]byte(grow)))
	assert.Equal(t, []int64{-9e18, 9e18}, in.Agg.Deltas())

	var bins []Bin
	require.NotPanics(t, func() { bins = Histogram(in.Agg.Deltas(), 20) })
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 1, bins[19].Count)
}

func TestIngestorDropsCanary(t *testing.T) {
	in := newTestIngestor(ModeTitles)
	data := `{"type":"edit","title":"Mars","user":"Ada","wiki":"enwiki","timestamp":1,"meta":{"domain":"canary"}}`
	assert.Equal(t, Ignored, in.Handle([]byte(data)))
	assert.Zero(t, in.Agg.Titles())
}

func TestIngestorFilter(t *testing.T) {
	in := newTestIngestor(ModeTitles)
	in.Filter = Filter{Wikis: []string{"dewiki"}, NoBots: true}

	assert.Equal(t, Ignored, in.Handle([]byte(editJSON)))
	bot := `{"type":"edit","title":"Berlin","user":"Bot","bot":true,"wiki":"dewiki","timestamp":1}`
	assert.Equal(t, Ignored, in.Handle([]byte(bot)))
	human := `{"type":"edit","title":"Berlin","user":"Ada","wiki":"dewiki","timestamp":1}`
	assert.Equal(t, Accepted, in.Handle([]byte(human)))
	assert.Equal(t, 1, in.Agg.Titles())
}

func TestIngestorLogsOnlyInWikisMode(t *testing.T) {
	in := newTestIngestor(ModeTitles)
	in.Handle([]byte(editJSON))
	assert.Zero(t, in.Log.Len())

	in.Selector.Set(ModeWikis)
	in.Handle([]byte(editJSON))
	require.Equal(t, 1, in.Log.Len())
	assert.Contains(t, in.Log.Lines(1)[0], `(enwiki) "Mars" by Ada (15 bytes)`)
	assert.Equal(t, uint64(2), in.Agg.TitleCount("Mars"))
}

func TestLogViewBoundedNewestFirst(t *testing.T) {
	var mirror bytes.Buffer
	v := NewLogView(2, &mirror)
	v.Add("one")
	v.Add("two")
	v.Add("three")

	assert.Equal(t, []string{"three", "two"}, v.Lines(-1))
	assert.Equal(t, []string{"three"}, v.Lines(1))
	assert.Equal(t, "one\ntwo\nthree\n", mirror.String())
}
