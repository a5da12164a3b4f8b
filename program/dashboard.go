package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/keilerkonzept/editstream/aggregate"
	"github.com/keilerkonzept/editstream/chart"
	"github.com/keilerkonzept/editstream/stream"
)

// dashboard wires the input, the aggregate and the redraw scheduler. The
// front-ends (TUI or headless) register redraw handlers on it.
type dashboard struct {
	cfg      *Config
	agg      *aggregate.Aggregator
	selector *aggregate.Selector
	logView  *aggregate.LogView
	ingestor *aggregate.Ingestor
	sched    *aggregate.Scheduler
	exporter *chart.Exporter
	client   *stream.Client
	metrics  *dashboardMetrics
}

// newDashboard builds the pipeline. Log lines are also written to logMirror
// when it is non-nil.
func newDashboard(cfg *Config, logMirror io.Writer) *dashboard {
	agg := aggregate.New(aggregate.Config{
		Retention: cfg.Retention,
		Trending: &aggregate.TrendingConfig{
			K:      max(cfg.TopN, 50),
			Window: cfg.TrendingWindow,
			Tick:   cfg.TrendingTick,
		},
	})
	selector := aggregate.NewSelector(agg, cfg.Mode)
	logView := aggregate.NewLogView(cfg.LogLines, logMirror)

	d := &dashboard{
		cfg:      cfg,
		agg:      agg,
		selector: selector,
		logView:  logView,
		ingestor: &aggregate.Ingestor{
			Agg:      agg,
			Selector: selector,
			Log:      logView,
			Filter:   aggregate.Filter{Wikis: cfg.Wikis, NoBots: cfg.NoBots},
		},
		sched: aggregate.NewScheduler(agg, selector, logView, aggregate.SchedulerConfig{
			TopN:     cfg.TopN,
			Sample:   cfg.Sample,
			Bins:     cfg.Bins,
			LogLines: cfg.LogLines,
		}),
		metrics: newDashboardMetrics(cfg.StatsWindow),
	}
	if cfg.ExportDir != "" {
		d.exporter = &chart.Exporter{Dir: cfg.ExportDir, Format: cfg.ExportFormat}
	}
	if cfg.InputPath == "" {
		d.client = &stream.Client{
			URL:       cfg.URL,
			UserAgent: cfg.UserAgent,
			Reconnect: cfg.Reconnect,
		}
	}
	return d
}

// handle registers fn for mode, timing each redraw and exporting the
// snapshot when an export directory is configured.
func (d *dashboard) handle(mode aggregate.Mode, fn aggregate.RedrawFunc) {
	d.sched.Handle(mode, func(snap aggregate.Snapshot) {
		start := time.Now()
		fn(snap)
		if d.exporter != nil {
			if err := d.exporter.Export(snap); err != nil {
				log.Error("export chart", "mode", snap.Mode, "err", err)
			}
		}
		d.metrics.observeRedraw(time.Since(start))
	})
}

// run feeds the input into the aggregate until the input ends or ctx is done.
func (d *dashboard) run(ctx context.Context) error {
	events := make(chan stream.Event, 1024)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return d.produce(ctx, events)
	})
	g.Go(func() error {
		d.consume(events)
		return nil
	})
	return g.Wait()
}

func (d *dashboard) produce(ctx context.Context, out chan<- stream.Event) error {
	if d.client != nil {
		return d.client.Stream(ctx, out)
	}

	var r io.Reader = os.Stdin
	if d.cfg.InputPath != "-" {
		f, err := os.Open(d.cfg.InputPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return stream.ReadLines(ctx, r, stream.ReplayOptions{
		Pace:       d.cfg.Pace,
		MaxRecords: d.cfg.MaxRecords,
	}, out)
}

func (d *dashboard) consume(in <-chan stream.Event) {
	for ev := range in {
		outcome := d.ingestor.Handle([]byte(ev.Data))
		d.metrics.observeIngest(time.Now(), outcome)
	}
}

func (d *dashboard) reconnects() uint64 {
	if d.client == nil {
		return 0
	}
	return d.client.Reconnects()
}
