package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/urfave/cli/v3"

	"github.com/keilerkonzept/editstream/aggregate"
	"github.com/keilerkonzept/editstream/chart"
	"github.com/keilerkonzept/editstream/stream"
)

type Config struct {
	// input
	URL        string
	UserAgent  string
	Reconnect  bool
	InputPath  string
	Pace       time.Duration
	MaxRecords int

	// aggregation
	Retention      int
	TopN           int
	Sample         int
	Bins           int
	LogLines       int
	TrendingWindow time.Duration
	TrendingTick   time.Duration
	Wikis          []string
	NoBots         bool

	// render
	Mode         aggregate.Mode
	Interval     time.Duration
	LogScale     bool
	StatsEnabled bool
	StatsWindow  int
	AltScreen    bool
	Headless     bool
	ExportDir    string
	ExportFormat chart.Format
}

func defaultConfig() Config {
	return Config{
		URL:       stream.DefaultURL,
		UserAgent: "editstream/1.0 (https://github.com/keilerkonzept/editstream)",
		Reconnect: true,

		Retention:      1200,
		TopN:           10,
		Sample:         300,
		Bins:           20,
		LogLines:       500,
		TrendingWindow: 5 * time.Minute,
		TrendingTick:   10 * time.Second,

		Mode:         aggregate.ModeTitles,
		Interval:     2 * time.Second,
		StatsEnabled: true,
		StatsWindow:  256,
		AltScreen:    true,
		ExportFormat: chart.SVG,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cli.Command {
	def := defaultConfig()
	return &cli.Command{
		Name:  "editstream",
		Usage: "Live dashboard of Wikimedia edits: top titles, byte-change histogram, raw log",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: def.URL, Usage: "Server-sent-events endpoint", Sources: cli.EnvVars("EDITSTREAM_URL")},
			&cli.StringFlag{Name: "user-agent", Value: def.UserAgent, Usage: "User-Agent sent to the stream", Sources: cli.EnvVars("EDITSTREAM_USER_AGENT")},
			&cli.BoolFlag{Name: "reconnect", Value: def.Reconnect, Usage: "Reconnect with backoff when the stream drops"},
			&cli.StringFlag{Name: "in", Usage: "Replay newline-delimited JSON records from this file (- for stdin) instead of the stream"},
			&cli.DurationFlag{Name: "pace", Usage: "Sleep between replayed records (e.g. 5ms)"},
			&cli.IntFlag{Name: "max-records", Usage: "Stop replay after this many records (0 = unlimited)"},

			&cli.IntFlag{Name: "retention", Value: def.Retention, Usage: "Byte deltas kept for the histogram"},
			&cli.IntFlag{Name: "top", Value: def.TopN, Usage: "Titles shown in the ranking views"},
			&cli.IntFlag{Name: "sample", Value: def.Sample, Usage: "Most recent byte deltas binned by the histogram"},
			&cli.IntFlag{Name: "bins", Value: def.Bins, Usage: "Histogram buckets"},
			&cli.IntFlag{Name: "log-lines", Value: def.LogLines, Usage: "Lines kept by the raw log view"},
			&cli.DurationFlag{Name: "trending-window", Value: def.TrendingWindow, Usage: "Sliding window of the trending view"},
			&cli.DurationFlag{Name: "trending-tick", Value: def.TrendingTick, Usage: "Time bucket precision of the trending window"},
			&cli.StringSliceFlag{Name: "wiki", Usage: "Only aggregate these wikis (repeatable, e.g. --wiki enwiki)"},
			&cli.BoolFlag{Name: "no-bots", Usage: "Skip edits flagged as bot edits"},

			&cli.StringFlag{Name: "mode", Value: def.Mode.String(), Usage: "Initial view: titles, bytes, wikis, trending, none"},
			&cli.DurationFlag{Name: "interval", Value: def.Interval, Usage: "Redraw interval"},
			&cli.BoolFlag{Name: "log-scale", Usage: "Scale bars logarithmically"},
			&cli.BoolFlag{Name: "stats", Value: def.StatsEnabled, Usage: "Show runtime stats"},
			&cli.IntFlag{Name: "stats-window", Value: def.StatsWindow, Usage: "Redraw latency samples kept"},
			&cli.BoolFlag{Name: "alt-screen", Value: def.AltScreen, Usage: "Use the terminal alternate screen buffer"},
			&cli.BoolFlag{Name: "headless", Usage: "Print charts to stdout instead of running the TUI (implied when stdout is not a terminal)"},
			&cli.StringFlag{Name: "export-dir", Usage: "Write an 800x400 chart file for every redraw into this directory"},
			&cli.StringFlag{Name: "export-format", Value: string(def.ExportFormat), Usage: "Export format: svg, png"},

			&cli.StringFlag{Name: "log", Value: "error", Usage: "Log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "log-file", Usage: "Write logs to this file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			if err := validateConfig(&cfg); err != nil {
				return err
			}
			if !cfg.Headless && !term.IsTerminal(os.Stdout.Fd()) {
				cfg.Headless = true
			}

			closeLog, err := setupLogging(cmd.String("log"), cmd.String("log-file"), cfg.Headless)
			if err != nil {
				return err
			}
			defer closeLog()

			if cfg.Headless {
				d := newDashboard(&cfg, os.Stdout)
				return runHeadless(ctx, d, os.Stdout)
			}
			d := newDashboard(&cfg, nil)
			return runTUI(ctx, d)
		},
	}
}

func configFromCommand(cmd *cli.Command) (Config, error) {
	cfg := defaultConfig()
	cfg.URL = cmd.String("url")
	cfg.UserAgent = cmd.String("user-agent")
	cfg.Reconnect = cmd.Bool("reconnect")
	cfg.InputPath = cmd.String("in")
	cfg.Pace = cmd.Duration("pace")
	cfg.MaxRecords = int(cmd.Int("max-records"))

	cfg.Retention = int(cmd.Int("retention"))
	cfg.TopN = int(cmd.Int("top"))
	cfg.Sample = int(cmd.Int("sample"))
	cfg.Bins = int(cmd.Int("bins"))
	cfg.LogLines = int(cmd.Int("log-lines"))
	cfg.TrendingWindow = cmd.Duration("trending-window")
	cfg.TrendingTick = cmd.Duration("trending-tick")
	cfg.Wikis = cmd.StringSlice("wiki")
	cfg.NoBots = cmd.Bool("no-bots")

	mode, err := aggregate.ParseMode(cmd.String("mode"))
	if err != nil {
		return cfg, fmt.Errorf("--mode: %w", err)
	}
	cfg.Mode = mode
	cfg.Interval = cmd.Duration("interval")
	cfg.LogScale = cmd.Bool("log-scale")
	cfg.StatsEnabled = cmd.Bool("stats")
	cfg.StatsWindow = int(cmd.Int("stats-window"))
	cfg.AltScreen = cmd.Bool("alt-screen")
	cfg.Headless = cmd.Bool("headless")
	cfg.ExportDir = cmd.String("export-dir")
	format, err := chart.ParseFormat(cmd.String("export-format"))
	if err != nil {
		return cfg, fmt.Errorf("--export-format: %w", err)
	}
	cfg.ExportFormat = format
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.InputPath == "" && cfg.URL == "" {
		return fmt.Errorf("--url must not be empty")
	}
	if cfg.Pace < 0 {
		return fmt.Errorf("--pace must be >= 0")
	}
	if cfg.MaxRecords < 0 {
		return fmt.Errorf("--max-records must be >= 0")
	}
	if cfg.Retention < 1 {
		return fmt.Errorf("--retention must be >= 1")
	}
	if cfg.TopN < 1 {
		return fmt.Errorf("--top must be >= 1")
	}
	if cfg.Sample < 1 {
		return fmt.Errorf("--sample must be >= 1")
	}
	if cfg.Sample > cfg.Retention {
		return fmt.Errorf("--sample must be <= --retention (got sample=%d retention=%d)", cfg.Sample, cfg.Retention)
	}
	if cfg.Bins < 1 {
		return fmt.Errorf("--bins must be >= 1")
	}
	if cfg.LogLines < 1 {
		return fmt.Errorf("--log-lines must be >= 1")
	}
	if cfg.TrendingTick <= 0 {
		return fmt.Errorf("--trending-tick must be > 0")
	}
	if cfg.TrendingWindow < cfg.TrendingTick {
		return fmt.Errorf("--trending-window must be >= --trending-tick")
	}
	if cfg.TrendingWindow%cfg.TrendingTick != 0 {
		return fmt.Errorf("--trending-window must be a multiple of --trending-tick (got window=%s tick=%s)", cfg.TrendingWindow, cfg.TrendingTick)
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("--interval must be > 0")
	}
	cfg.StatsWindow = max(16, cfg.StatsWindow)
	if cfg.ExportDir != "" {
		if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
			return fmt.Errorf("--export-dir: %w", err)
		}
	}
	return nil
}

// setupLogging points the package logger at logFile when set. Without a log
// file, the TUI discards logs so they cannot tear the screen.
func setupLogging(level, logFile string, headless bool) (func(), error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		log.SetOutput(f)
		return func() { _ = f.Close() }, nil
	case headless:
		log.SetOutput(os.Stderr)
	default:
		log.SetOutput(io.Discard)
	}
	return func() {}, nil
}
