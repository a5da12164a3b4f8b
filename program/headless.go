package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"golang.org/x/sync/errgroup"

	"github.com/keilerkonzept/editstream/aggregate"
	"github.com/keilerkonzept/editstream/chart"
)

const defaultHeadlessWidth = 100

// runHeadless prints a frame to w on every redraw. In the wikis mode lines
// reach w as they arrive through the log view mirror instead. It returns once
// the input ends (after a final redraw) or ctx is done.
func runHeadless(ctx context.Context, d *dashboard, w io.Writer) error {
	width := defaultHeadlessWidth
	if tw, _, err := term.GetSize(os.Stdout.Fd()); err == nil && tw > 0 {
		width = tw
	}

	var mu sync.Mutex
	frame := func(snap aggregate.Snapshot, body string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "== %s · %s\n%s\n\n", snap.Mode, snap.At.Format(time.TimeOnly), body)
	}
	logScale := d.cfg.LogScale
	d.handle(aggregate.ModeTitles, func(snap aggregate.Snapshot) {
		frame(snap, chart.TitleBars(snap.Titles, width, logScale))
	})
	d.handle(aggregate.ModeBytes, func(snap aggregate.Snapshot) {
		frame(snap, chart.Histogram(snap.Bins, width, logScale))
	})
	d.handle(aggregate.ModeTrending, func(snap aggregate.Snapshot) {
		frame(snap, chart.TrendingBars(snap.Trending, width, logScale))
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return d.run(gctx)
	})
	g.Go(func() error {
		return d.sched.Run(gctx, d.cfg.Interval)
	})
	err := g.Wait()
	d.sched.Tick(time.Now())

	snap := d.metrics.snapshot()
	log.Info("done", "accepted", snap.accepted, "ignored", snap.ignored, "malformed", snap.malformed, "redraws", snap.redraws)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
