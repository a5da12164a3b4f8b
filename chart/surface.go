package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/keilerkonzept/editstream/aggregate"
)

// Surface size, in pixels.
const (
	Width  = 800
	Height = 400
)

// ErrNoData is returned when a snapshot has nothing to draw.
var ErrNoData = errors.New("nothing to draw")

type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case SVG, PNG:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown export format %q (svg, png)", s)
}

func (f Format) provider() gochart.RendererProvider {
	if f == PNG {
		return gochart.PNG
	}
	return gochart.SVG
}

var (
	titleFill = drawing.ColorFromHex("4a90e2")
	bytesFill = drawing.ColorFromHex("ff7f0e")
)

// WriteTitles renders a ranking as a bar chart.
func WriteTitles(w io.Writer, rows []aggregate.TitleCount, format Format) error {
	values := make([]gochart.Value, len(rows))
	for i, r := range rows {
		values[i] = gochart.Value{Value: float64(r.Count), Label: ansi.Truncate(r.Title, 16, "…")}
	}
	return writeBars(w, "Top edited articles", values, titleFill, format)
}

func WriteTrending(w io.Writer, items []aggregate.TrendingItem, format Format) error {
	values := make([]gochart.Value, len(items))
	for i, it := range items {
		values[i] = gochart.Value{Value: float64(it.Count), Label: ansi.Truncate(it.Item, 16, "…")}
	}
	return writeBars(w, "Trending articles", values, titleFill, format)
}

// WriteHistogram renders byte delta buckets, one bar per bucket.
func WriteHistogram(w io.Writer, bins []aggregate.Bin, format Format) error {
	values := make([]gochart.Value, len(bins))
	for i, b := range bins {
		values[i] = gochart.Value{Value: float64(b.Count), Label: fmt.Sprintf("%+.0f", b.Lo)}
	}
	return writeBars(w, "Byte change per edit", values, bytesFill, format)
}

func writeBars(w io.Writer, title string, values []gochart.Value, fill drawing.Color, format Format) error {
	if len(values) == 0 {
		return ErrNoData
	}
	top := 1.0
	for i := range values {
		values[i].Style = gochart.Style{FillColor: fill, StrokeColor: fill}
		top = max(top, values[i].Value)
	}
	const spacing = 4
	barWidth := max(1, (Width-120)/len(values)-spacing)
	bc := gochart.BarChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: top}},
		Bars:       values,
	}
	return bc.Render(format.provider(), w)
}

// Exporter writes the chart of every redraw into Dir, one file per mode,
// replacing the previous file atomically.
type Exporter struct {
	Dir    string
	Format Format
}

// Export writes the snapshot. Snapshots with nothing to draw, and modes
// without a chart, are skipped.
func (e *Exporter) Export(snap aggregate.Snapshot) error {
	var write func(io.Writer) error
	switch snap.Mode {
	case aggregate.ModeTitles:
		write = func(w io.Writer) error { return WriteTitles(w, snap.Titles, e.Format) }
	case aggregate.ModeBytes:
		write = func(w io.Writer) error { return WriteHistogram(w, snap.Bins, e.Format) }
	case aggregate.ModeTrending:
		write = func(w io.Writer) error { return WriteTrending(w, snap.Trending, e.Format) }
	default:
		return nil
	}

	format := e.Format
	if format == "" {
		format = SVG
	}
	name := filepath.Join(e.Dir, snap.Mode.String()+"."+string(format))
	f, err := os.CreateTemp(e.Dir, "."+snap.Mode.String()+"-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := write(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrNoData) {
			return nil
		}
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), name)
}
