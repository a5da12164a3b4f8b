// Package edits defines the schema of a Wikimedia recentchange record and the
// checks a record has to pass before it is aggregated.
package edits

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrMalformed is wrapped by every error returned from Parse.
var ErrMalformed = errors.New("malformed record")

const (
	// TypeEdit is the record type of a page edit.
	TypeEdit     = "edit"
	canaryDomain = "canary"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Length holds the page size before and after a change. Either side is absent
// for page creations and deletions.
type Length struct {
	Old *int64 `json:"old" validate:"omitempty,gte=0"`
	New *int64 `json:"new" validate:"omitempty,gte=0"`
}

// Meta is the event envelope the stream attaches to every record.
type Meta struct {
	Domain string `json:"domain"`
	ID     string `json:"id"`
}

// Record is one recentchange event. Only Type is required for every record;
// title, user and wiki are required once Type is "edit". A missing timestamp
// reads as 0.
type Record struct {
	Type      string  `json:"type" validate:"required"`
	Title     string  `json:"title" validate:"required_if=Type edit"`
	User      string  `json:"user" validate:"required_if=Type edit"`
	Wiki      string  `json:"wiki" validate:"required_if=Type edit"`
	Timestamp int64   `json:"timestamp" validate:"gte=0"`
	Bot       bool    `json:"bot"`
	Length    *Length `json:"length"`
	Meta      *Meta   `json:"meta"`
}

// Parse decodes a JSON payload and validates it.
func Parse(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(&r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return r, nil
}

// IsEdit reports whether the record is a page edit.
func (r Record) IsEdit() bool { return r.Type == TypeEdit }

// IsCanary reports whether the record is one of the synthetic events the
// stream emits to prove liveness.
func (r Record) IsCanary() bool { return r.Meta != nil && r.Meta.Domain == canaryDomain }

// Delta is the signed byte change of the edit. Missing lengths count as 0.
func (r Record) Delta() int64 {
	if r.Length == nil {
		return 0
	}
	var oldLen, newLen int64
	if r.Length.Old != nil {
		oldLen = *r.Length.Old
	}
	if r.Length.New != nil {
		newLen = *r.Length.New
	}
	return newLen - oldLen
}

// Time is the record timestamp.
func (r Record) Time() time.Time { return time.Unix(r.Timestamp, 0) }

// LogLine formats the record for the raw log view, in local time.
func (r Record) LogLine() string {
	return fmt.Sprintf("[%s] (%s) %q by %s (%d bytes)",
		r.Time().Format(time.TimeOnly), r.Wiki, r.Title, r.User, r.Delta())
}
