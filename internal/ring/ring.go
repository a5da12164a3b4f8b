// Package ring provides a fixed-capacity FIFO buffer.
package ring

// Ring holds the most recent entries up to its capacity. Once full, Add
// overwrites the oldest entry. It is not safe for concurrent use.
type Ring[T any] struct {
	buf   []T
	idx   int
	count int
}

// New returns a ring holding at most n entries (at least 1).
func New[T any](n int) *Ring[T] {
	if n < 1 {
		n = 1
	}
	return &Ring[T]{buf: make([]T, n)}
}

func (r *Ring[T]) Add(v T) {
	r.buf[r.idx] = v
	r.idx++
	if r.idx >= len(r.buf) {
		r.idx = 0
	}
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *Ring[T]) Len() int { return r.count }

func (r *Ring[T]) Cap() int { return len(r.buf) }

// Last copies the most recent n entries, oldest first. A negative n copies
// all of them.
func (r *Ring[T]) Last(n int) []T {
	if n > r.count || n < 0 {
		n = r.count
	}
	out := make([]T, n)
	start := r.idx - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
