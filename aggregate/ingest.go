package aggregate

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/keilerkonzept/editstream/edits"
)

// Outcome classifies what Handle did with a payload.
type Outcome int

const (
	Accepted Outcome = iota
	Ignored
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Ignored:
		return "ignored"
	default:
		return "malformed"
	}
}

// Filter narrows which edits are aggregated.
type Filter struct {
	// Wikis, when non-empty, is the set of wiki identifiers to keep.
	Wikis  []string
	NoBots bool
}

func (f Filter) allows(r edits.Record) bool {
	if f.NoBots && r.Bot {
		return false
	}
	if len(f.Wikis) == 0 {
		return true
	}
	for _, w := range f.Wikis {
		if w == r.Wiki {
			return true
		}
	}
	return false
}

// Ingestor turns raw stream payloads into aggregate updates.
type Ingestor struct {
	Agg      *Aggregator
	Selector *Selector
	Log      *LogView
	Filter   Filter

	// Now defaults to time.Now.
	Now func() time.Time
}

// Handle parses one payload. Malformed payloads are logged and dropped; they
// never stop the caller's loop.
func (in *Ingestor) Handle(data []byte) Outcome {
	r, err := edits.Parse(data)
	if err != nil {
		log.Debug("dropping record", "err", err)
		return Malformed
	}
	if !r.IsEdit() || r.IsCanary() || !in.Filter.allows(r) {
		return Ignored
	}

	now := time.Now
	if in.Now != nil {
		now = in.Now
	}
	in.Agg.Ingest(r, now())

	if in.Log != nil && in.Selector != nil && in.Selector.Mode() == ModeWikis {
		in.Log.Add(r.LogLine())
	}
	return Accepted
}
