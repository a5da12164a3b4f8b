// Package stream reads edit payloads from a server-sent-events endpoint or
// from a replay file.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jpillora/backoff"
	"github.com/r3labs/sse/v2"
	cbackoff "gopkg.in/cenkalti/backoff.v1"
)

// DefaultURL is the public Wikimedia recent changes feed.
const DefaultURL = "https://stream.wikimedia.org/v2/stream/recentchange"

// ErrClosed is returned when the server ends the response body.
var ErrClosed = errors.New("stream closed by server")

const maxEventSize = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	ID    string
	Type  string
	Data  string
	Retry time.Duration
}

// Client consumes a server-sent-events endpoint.
type Client struct {
	URL       string
	UserAgent string
	// HTTPClient defaults to a client without a timeout; the response body
	// stays open for as long as the stream runs.
	HTTPClient *http.Client

	// Reconnect keeps the stream alive across disconnects, resuming from the
	// last event id with exponential backoff between attempts.
	Reconnect  bool
	MinBackoff time.Duration
	MaxBackoff time.Duration

	retry      atomic.Int64
	reconnects atomic.Uint64
}

// Reconnects is the number of reconnect attempts made so far.
func (c *Client) Reconnects() uint64 { return c.reconnects.Load() }

// Stream sends events to out until ctx is done or, without Reconnect, the
// first connection ends. It never closes out.
func (c *Client) Stream(ctx context.Context, out chan<- Event) error {
	b := &backoff.Backoff{
		Min:    c.MinBackoff,
		Max:    c.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}
	if b.Min <= 0 {
		b.Min = 500 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = time.Minute
	}

	// One sse.Client for the whole run so Last-Event-ID carries over.
	sub := c.newSubscriber()
	for {
		var connected atomic.Bool
		sub.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				_ = resp.Body.Close()
				return fmt.Errorf("GET %s: unexpected status %s", sub.URL, resp.Status)
			}
			connected.Store(true)
			log.Info("stream connected", "url", sub.URL)
			return nil
		}
		err := sub.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			c.deliver(ctx, msg, out)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil || errors.Is(err, io.EOF) {
			err = ErrClosed
		}
		if !c.Reconnect {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		if connected.Load() {
			b.Reset()
		}
		wait := max(b.Duration(), time.Duration(c.retry.Load()))
		c.reconnects.Add(1)
		log.Warn("stream disconnected, reconnecting", "url", sub.URL, "err", err, "in", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) newSubscriber() *sse.Client {
	url := c.URL
	if url == "" {
		url = DefaultURL
	}
	sub := sse.NewClient(url, sse.ClientMaxBufferSize(maxEventSize))
	// Each subscribe is a single attempt; Stream owns the reconnect policy.
	sub.ReconnectStrategy = &cbackoff.StopBackOff{}
	if c.HTTPClient != nil {
		sub.Connection = c.HTTPClient
	}
	if c.UserAgent != "" {
		sub.Headers["User-Agent"] = c.UserAgent
	}
	return sub
}

// deliver forwards events that carry data and remembers the server's retry hint.
func (c *Client) deliver(ctx context.Context, msg *sse.Event, out chan<- Event) {
	ev := Event{
		ID:   string(msg.ID),
		Type: string(msg.Event),
		Data: string(msg.Data),
	}
	if ms, err := strconv.Atoi(string(msg.Retry)); err == nil && ms >= 0 {
		ev.Retry = time.Duration(ms) * time.Millisecond
		c.retry.Store(int64(ev.Retry))
	}
	if ev.Data == "" {
		return
	}
	if ev.Type == "" {
		ev.Type = "message"
	}
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}
