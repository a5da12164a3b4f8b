package stream

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"
)

type ReplayOptions struct {
	// Pace is the pause between records.
	Pace time.Duration
	// MaxRecords stops the replay early (0 = unlimited).
	MaxRecords int
}

// ReadLines replays newline-delimited JSON payloads as message events.
// Blank lines are skipped.
func ReadLines(ctx context.Context, r io.Reader, opts ReplayOptions, out chan<- Event) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		if opts.MaxRecords > 0 && n >= opts.MaxRecords {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case out <- Event{Type: "message", Data: line}:
		case <-ctx.Done():
			return ctx.Err()
		}
		n++
		if opts.Pace > 0 {
			t := time.NewTimer(opts.Pace)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return scanner.Err()
}
