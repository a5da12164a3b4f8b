package aggregate

import (
	"fmt"
	"io"
	"sync"

	"github.com/keilerkonzept/editstream/internal/ring"
)

// LogView keeps the most recent formatted lines, newest first.
type LogView struct {
	mu    sync.Mutex
	lines *ring.Ring[string]
	w     io.Writer
}

// NewLogView keeps at most n lines. Every line is also written to mirror when
// it is non-nil.
func NewLogView(n int, mirror io.Writer) *LogView {
	return &LogView{lines: ring.New[string](n), w: mirror}
}

func (v *LogView) Add(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines.Add(line)
	if v.w != nil {
		fmt.Fprintln(v.w, line)
	}
}

// Lines returns up to n lines, most recent first. A negative n returns all.
func (v *LogView) Lines(n int) []string {
	v.mu.Lock()
	out := v.lines.Last(n)
	v.mu.Unlock()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (v *LogView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lines.Len()
}
