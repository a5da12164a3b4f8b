package aggregate

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Mode selects what the dashboard shows.
type Mode int32

const (
	ModeNone Mode = iota
	ModeTitles
	ModeBytes
	ModeWikis
	ModeTrending
)

var modeNames = map[Mode]string{
	ModeNone:     "none",
	ModeTitles:   "titles",
	ModeBytes:    "bytes",
	ModeWikis:    "wikis",
	ModeTrending: "trending",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int32(m))
}

// ParseMode accepts the names printed by Mode.String, case-insensitively.
// "log" is an alias for wikis.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "log" || s == "wikis-log" {
		return ModeWikis, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeNone, fmt.Errorf("unknown mode %q", s)
}

// Description is the text shown above the chart for a mode.
func (m Mode) Description() string {
	switch m {
	case ModeWikis:
		return "Live stream of every edit (raw text log). Each line shows the wiki, " +
			"the article title, the user who made the edit and the size difference in bytes."
	case ModeTitles:
		return "Most frequently edited article titles since start. " +
			"Ranks the articles receiving the most edits, which surfaces trending topics."
	case ModeBytes:
		return "Distribution of byte changes per edit. Added bytes are positive, removed " +
			"bytes negative; shows whether edits are small tweaks or large rewrites."
	case ModeTrending:
		return "Most edited article titles within the recent sliding window."
	default:
		return "Select a view."
	}
}

// Selector holds the current mode. Switching mode never touches the
// aggregates, it only schedules a redraw of the new view.
type Selector struct {
	mode atomic.Int32
	agg  *Aggregator
}

func NewSelector(agg *Aggregator, initial Mode) *Selector {
	s := &Selector{agg: agg}
	s.mode.Store(int32(initial))
	return s
}

func (s *Selector) Mode() Mode { return Mode(s.mode.Load()) }

func (s *Selector) Set(m Mode) {
	s.mode.Store(int32(m))
	if s.agg != nil {
		s.agg.MarkPending()
	}
}
