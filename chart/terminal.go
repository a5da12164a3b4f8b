// Package chart draws aggregate snapshots, either as terminal text or as an
// 800x400 SVG/PNG surface. Every call redraws from scratch.
package chart

import (
	"fmt"
	"math"
	"strings"

	styles "github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	plot "github.com/chriskim06/drawille-go"

	"github.com/keilerkonzept/editstream/aggregate"
)

var (
	titleBarColor = styles.AdaptiveColor{Light: "#1d5fb4", Dark: "#4a90e2"}
	bytesBarColor = styles.AdaptiveColor{Light: "#c65d00", Dark: "#ff7f0e"}
	labelColor    = styles.AdaptiveColor{Light: "#555", Dark: "#999"}

	titleBarFg = styles.NewStyle().Foreground(titleBarColor)
	bytesBarFg = styles.NewStyle().Foreground(bytesBarColor)
	labelFg    = styles.NewStyle().Foreground(labelColor)
)

const (
	barRune       = "█"
	maxLabelWidth = 40
)

// TitleBars draws one horizontal bar per title, longest first, with the
// count printed after the bar.
func TitleBars(rows []aggregate.TitleCount, width int, logScale bool) string {
	labels := make([]string, len(rows))
	values := make([]uint64, len(rows))
	for i, r := range rows {
		labels[i] = r.Title
		values[i] = r.Count
	}
	return bars(labels, values, width, logScale, titleBarFg)
}

// TrendingBars draws the sliding-window ranking like TitleBars.
func TrendingBars(items []aggregate.TrendingItem, width int, logScale bool) string {
	labels := make([]string, len(items))
	values := make([]uint64, len(items))
	for i, it := range items {
		labels[i] = it.Item
		values[i] = uint64(it.Count)
	}
	return bars(labels, values, width, logScale, titleBarFg)
}

// Histogram draws one horizontal bar per bucket, labelled with the bucket's
// lower bound.
func Histogram(bins []aggregate.Bin, width int, logScale bool) string {
	labels := make([]string, len(bins))
	values := make([]uint64, len(bins))
	for i, b := range bins {
		labels[i] = fmt.Sprintf("%+.0f", b.Lo)
		values[i] = uint64(b.Count)
	}
	return bars(labels, values, width, logScale, bytesBarFg)
}

func bars(labels []string, values []uint64, width int, logScale bool, barFg styles.Style) string {
	if len(values) == 0 {
		return labelFg.Render("waiting for data…")
	}

	labelWidth := 0
	var maxValue uint64
	for i, l := range labels {
		labelWidth = max(labelWidth, ansi.StringWidth(l))
		maxValue = max(maxValue, values[i])
	}
	labelWidth = min(labelWidth, maxLabelWidth, max(1, width/3))
	countWidth := len(fmt.Sprint(maxValue))
	barWidth := max(1, width-labelWidth-countWidth-2)

	var sb strings.Builder
	for i, l := range labels {
		l = ansi.Truncate(l, labelWidth, "…")
		pad := strings.Repeat(" ", labelWidth-ansi.StringWidth(l))
		n := barLength(values[i], maxValue, barWidth, logScale)

		sb.WriteString(labelFg.Render(pad + l))
		sb.WriteByte(' ')
		sb.WriteString(barFg.Render(strings.Repeat(barRune, n)))
		sb.WriteByte(' ')
		sb.WriteString(fmt.Sprint(values[i]))
		if i < len(labels)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// barLength scales v against maxValue. Non-zero values get at least one cell.
func barLength(v, maxValue uint64, width int, logScale bool) int {
	if v == 0 || maxValue == 0 {
		return 0
	}
	ratio := float64(v) / float64(maxValue)
	if logScale {
		ratio = math.Log1p(float64(v)) / math.Log1p(float64(maxValue))
	}
	return max(1, int(math.Round(ratio*float64(width))))
}

// DeltaPlot draws the byte deltas, oldest on the left, as a braille line.
// It returns an empty string for fewer than two samples.
func DeltaPlot(deltas []int64, width, height int) string {
	if len(deltas) < 2 || width < 1 || height < 1 {
		return ""
	}
	lo := deltas[0]
	for _, d := range deltas {
		lo = min(lo, d)
	}
	series := make([]float64, len(deltas))
	for i, d := range deltas {
		series[i] = float64(d - lo)
	}

	color := plot.Black
	if styles.DefaultRenderer().HasDarkBackground() {
		color = plot.Red
	}
	p := plot.NewCanvas(width, height)
	p.NumDataPoints = len(series)
	p.ShowAxis = false
	p.LineColors = []plot.Color{color}
	p.Fill([][]float64{series})
	return p.String()
}
