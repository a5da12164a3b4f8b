package aggregate

// Bin is one histogram bucket covering [Lo, Hi). The last bucket of a
// histogram also includes Hi.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram splits values into n equal-width buckets spanning the sample's
// [min, max]. If every value is the same, buckets are one byte wide starting
// at that value. An empty sample or n < 1 returns nil.
func Histogram(values []int64, n int) []Bin {
	if len(values) == 0 || n < 1 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	// Spans of int64 extremes overflow int64, so work in float64.
	width := (float64(hi) - float64(lo)) / float64(n)
	if hi == lo {
		width = 1
	}
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = float64(lo) + float64(i)*width
		bins[i].Hi = float64(lo) + float64(i+1)*width
	}
	if hi > lo {
		bins[n-1].Hi = float64(hi)
	}

	for _, v := range values {
		i := min(max(int((float64(v)-float64(lo))/width), 0), n-1)
		bins[i].Count++
	}
	return bins
}
