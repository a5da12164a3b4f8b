package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"

	"github.com/keilerkonzept/editstream/aggregate"
	"github.com/keilerkonzept/editstream/chart"
)

var (
	selectedColor = styles.AdaptiveColor{Light: "0", Dark: "9"}
	borderColor   = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	selectedFg    = styles.NewStyle().Foreground(selectedColor)
	borderFg      = styles.NewStyle().Foreground(borderColor)
	errorFg       = styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
	chartStyle    = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			BorderForeground(borderColor)
)

func runTUI(ctx context.Context, d *dashboard) error {
	m := newModel(ctx, d)
	_, err := tui.NewProgram(m, programOptions(ctx, d.cfg)...).Run()
	if errors.Is(err, tui.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// programOptions reads keys from the terminal rather than stdin, which may
// carry records (--in -).
func programOptions(ctx context.Context, cfg *Config) []tui.ProgramOption {
	opts := []tui.ProgramOption{tui.WithContext(ctx), tui.WithInputTTY()}
	if cfg.AltScreen {
		opts = append(opts, tui.WithAltScreen())
	}
	return opts
}

type model struct {
	ctx context.Context
	d   *dashboard

	width, height int
	bodyHeight    int

	logScale  bool
	frozen    bool
	inputDone bool
	err       error

	frame   string
	frameAt time.Time
	logPort viewport.Model
	help    help.Model
}

func newModel(ctx context.Context, d *dashboard) *model {
	const (
		defaultWidth  = 80
		defaultHeight = 24
	)
	m := &model{
		ctx:        ctx,
		d:          d,
		width:      defaultWidth,
		height:     defaultHeight,
		bodyHeight: defaultHeight / 2,
		logScale:   d.cfg.LogScale,
		logPort:    viewport.New(defaultWidth, defaultHeight/2),
		help:       help.New(),
	}

	// Redraws run inside Update, so handlers may write model fields.
	d.handle(aggregate.ModeTitles, func(snap aggregate.Snapshot) {
		m.setFrame(snap, chart.TitleBars(snap.Titles, m.chartWidth(), m.logScale))
	})
	d.handle(aggregate.ModeBytes, func(snap aggregate.Snapshot) {
		body := chart.Histogram(snap.Bins, m.chartWidth(), m.logScale)
		plotHeight := m.bodyHeight - len(snap.Bins) - 1
		if plot := chart.DeltaPlot(snap.Deltas, m.chartWidth(), plotHeight); plot != "" {
			body = styles.JoinVertical(styles.Left, body, "", plot)
		}
		m.setFrame(snap, body)
	})
	d.handle(aggregate.ModeTrending, func(snap aggregate.Snapshot) {
		m.setFrame(snap, chart.TrendingBars(snap.Trending, m.chartWidth(), m.logScale))
	})
	d.handle(aggregate.ModeWikis, func(snap aggregate.Snapshot) {
		m.logPort.SetContent(strings.Join(snap.Log, "\n"))
		m.frameAt = snap.At
	})
	return m
}

func (m *model) setFrame(snap aggregate.Snapshot, body string) {
	m.frame = body
	m.frameAt = snap.At
}

func (m *model) chartWidth() int { return max(10, m.width-2) }

type RedrawTickMsg time.Time

func doRedrawTick(interval time.Duration) tui.Cmd {
	return tui.Every(interval, func(t time.Time) tui.Msg {
		return RedrawTickMsg(t)
	})
}

type errMsg struct{ err error }

type inputDoneMsg struct{}

func (m *model) readInput() tui.Cmd {
	return func() tui.Msg {
		if err := m.d.run(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
			return errMsg{err}
		}
		return inputDoneMsg{}
	}
}

func (m *model) Init() tui.Cmd {
	return tui.Batch(m.readInput(), doRedrawTick(m.d.cfg.Interval))
}

func (m *model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case errMsg:
		m.err = msg.err
		return m, nil
	case inputDoneMsg:
		m.inputDone = true
		return m, nil
	case RedrawTickMsg:
		if !m.frozen {
			m.d.sched.Tick(time.Time(msg))
		}
		return m, doRedrawTick(m.d.cfg.Interval)
	case tui.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.d.agg.MarkPending()
		return m, nil
	case tui.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tui.Quit
		case key.Matches(msg, keys.Titles):
			m.setMode(aggregate.ModeTitles)
			return m, nil
		case key.Matches(msg, keys.Bytes):
			m.setMode(aggregate.ModeBytes)
			return m, nil
		case key.Matches(msg, keys.Wikis):
			m.setMode(aggregate.ModeWikis)
			return m, nil
		case key.Matches(msg, keys.Trending):
			m.setMode(aggregate.ModeTrending)
			return m, nil
		case key.Matches(msg, keys.None):
			m.setMode(aggregate.ModeNone)
			return m, nil
		case key.Matches(msg, keys.Scale):
			m.logScale = !m.logScale
			m.d.agg.MarkPending()
			return m, nil
		case key.Matches(msg, keys.Freeze):
			m.frozen = !m.frozen
			return m, nil
		}
	}
	if m.d.selector.Mode() == aggregate.ModeWikis {
		var cmd tui.Cmd
		m.logPort, cmd = m.logPort.Update(msg)
		return m, cmd
	}
	return m, nil
}

// setMode switches the view; the new view draws on the next tick.
func (m *model) setMode(mode aggregate.Mode) {
	if m.d.selector.Mode() == mode {
		return
	}
	m.d.selector.Set(mode)
	m.frame = ""
}

func (m *model) resize(w, h int) {
	m.width, m.height = w, h
	statsLines := 0
	if m.d.cfg.StatsEnabled {
		statsLines = len(m.statsBlock())
	}
	// header (2) + chart border (2) + help (1)
	m.bodyHeight = max(1, h-statsLines-5)
	m.logPort.Width = m.chartWidth()
	m.logPort.Height = m.bodyHeight
}

func (m *model) View() string {
	mode := m.d.selector.Mode()

	title := selectedFg.Render("editstream") + " " + m.modeTabs(mode)
	desc := borderFg.Width(max(1, m.width)).Render(mode.Description())
	header := styles.JoinVertical(styles.Left, title, desc)

	var body string
	switch {
	case mode == aggregate.ModeNone:
		body = borderFg.Render("no view selected")
	case mode == aggregate.ModeWikis:
		body = m.logPort.View()
	case m.frame == "":
		body = borderFg.Render("waiting for the next redraw…")
	default:
		body = m.frame
	}
	body = chartStyle.Width(m.chartWidth()).Height(m.bodyHeight).MaxHeight(m.bodyHeight + 2).Render(body)

	parts := []string{header, body}
	if m.err != nil {
		parts = append(parts, errorFg.Render("ERROR: "+m.err.Error()))
	}
	if m.d.cfg.StatsEnabled {
		parts = append(parts, errorFg.Render(strings.Join(m.statsBlock(), "\n")))
	}
	parts = append(parts, m.help.View(keys))
	return styles.JoinVertical(styles.Left, parts...)
}

func (m *model) modeTabs(current aggregate.Mode) string {
	modes := []aggregate.Mode{aggregate.ModeTitles, aggregate.ModeBytes, aggregate.ModeWikis, aggregate.ModeTrending}
	tabs := make([]string, len(modes))
	for i, mode := range modes {
		style := borderFg
		if mode == current {
			style = selectedFg
		}
		tabs[i] = style.Render(fmt.Sprintf("%d:%s", i+1, mode))
	}
	linColor, logColor := selectedFg, borderFg
	if m.logScale {
		linColor, logColor = borderFg, selectedFg
	}
	linLog := linColor.Render("LIN") + " " + logColor.Render("LOG")
	return strings.Join(tabs, " ") + "  " + linLog
}

func (m *model) statsBlock() []string {
	snap := m.d.metrics.snapshot()
	state := "RUNNING"
	switch {
	case m.frozen:
		state = "FROZEN"
	case m.inputDone:
		state = "INPUT ENDED"
	}
	last := "-"
	if !m.frameAt.IsZero() {
		last = m.frameAt.Format(time.TimeOnly)
	}
	return []string{
		fmt.Sprintf("STATS (%s)", state),
		fmt.Sprintf("edits: %d  ignored: %d  malformed: %d  rate: %d rec/s", snap.accepted, snap.ignored, snap.malformed, snap.avgRps),
		fmt.Sprintf("titles: %d  reconnects: %d", m.d.agg.Titles(), m.d.reconnects()),
		fmt.Sprintf("redraws: %d  last: %s  latency avg/max: %s/%s", snap.redraws, last, formatMetricDuration(snap.redraw.avg), formatMetricDuration(snap.redraw.max)),
	}
}

func formatMetricDuration(d time.Duration) string {
	if d <= 0 {
		return "0.000ms"
	}
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

type keyMap struct {
	Titles   key.Binding
	Bytes    key.Binding
	Wikis    key.Binding
	Trending key.Binding
	None     key.Binding
	Scale    key.Binding
	Freeze   key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Titles, k.Bytes, k.Wikis, k.Trending, k.Scale, k.Freeze, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Titles, k.Bytes, k.Wikis, k.Trending, k.None},
		{k.Scale, k.Freeze, k.Quit},
	}
}

var keys = keyMap{
	Titles: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "titles"),
	),
	Bytes: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "bytes"),
	),
	Wikis: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "log"),
	),
	Trending: key.NewBinding(
		key.WithKeys("4"),
		key.WithHelp("4", "trending"),
	),
	None: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "none"),
	),
	Scale: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "log/lin"),
	),
	Freeze: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "freeze"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
