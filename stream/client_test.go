package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStreamsUntilClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "editstream-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": hello\n\nevent: message\ndata: {\"n\":1}\n\ndata: {\"n\":2}\n\n")
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, UserAgent: "editstream-test"}
	out := make(chan Event, 10)
	require.NoError(t, c.Stream(context.Background(), out))
	close(out)

	var data []string
	for ev := range out {
		data = append(data, ev.Data)
	}
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, data)
	assert.Zero(t, c.Reconnects())
}

func TestClientBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL}
	err := c.Stream(context.Background(), make(chan Event, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClientReconnectsWithLastEventID(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			fmt.Fprint(w, "id: 41\ndata: first\n\n")
			return
		}
		fmt.Fprintf(w, "id: 42\ndata: resumed-from-%s\n\n", r.Header.Get("Last-Event-ID"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := &Client{
		URL:        srv.URL,
		Reconnect:  true,
		MinBackoff: time.Millisecond,
		MaxBackoff: 5 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Event, 10)
	done := make(chan error, 1)
	go func() { done <- c.Stream(ctx, out) }()

	var got []string
	for len(got) < 2 {
		select {
		case ev := <-out:
			got = append(got, ev.Data)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []string{"first", "resumed-from-41"}, got)
	assert.GreaterOrEqual(t, c.Reconnects(), uint64(1))
}

func TestReadLines(t *testing.T) {
	in := "{\"a\":1}\n\n  {\"a\":2}  \n{\"a\":3}\n"
	out := make(chan Event, 10)
	require.NoError(t, ReadLines(context.Background(), strings.NewReader(in), ReplayOptions{MaxRecords: 2}, out))
	close(out)

	var data []string
	for ev := range out {
		data = append(data, ev.Data)
	}
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, data)
}

func TestReadLinesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ReadLines(ctx, strings.NewReader("{}\n{}\n"), ReplayOptions{}, make(chan Event))
	assert.ErrorIs(t, err, context.Canceled)
}
