package seq

import (
	"math"
	"slices"
	"sort"
)

type freqOptions struct {
	normalize  bool
	top        int
	percentile float64
	hasPct     bool
}

// FreqOption tunes Frequencies.
type FreqOption func(*freqOptions)

// Normalize divides every count by the total.
func Normalize() FreqOption { return func(o *freqOptions) { o.normalize = true } }

// Top keeps entries whose count is at least the n-th largest count, so ties
// at the boundary may keep more than n entries. n <= 0 disables the filter.
func Top(n int) FreqOption { return func(o *freqOptions) { o.top = n } }

// Percentile keeps entries whose count is at least the p-th percentile
// (0..100) of the counts, using linear interpolation between ranks. NaN
// disables the filter.
func Percentile(p float64) FreqOption {
	return func(o *freqOptions) { o.percentile, o.hasPct = p, true }
}

// Frequencies counts key(item) over s. The result is ordered by descending
// count; equal counts keep first-seen order.
func Frequencies[T any, K comparable](s Seq[T], key func(T) K, opts ...FreqOption) *Ordered[K, float64] {
	var o freqOptions
	for _, opt := range opts {
		opt(&o)
	}

	counts := make(map[K]float64)
	var order []K
	for _, it := range s.items {
		k := key(it)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	if o.normalize && len(s.items) > 0 {
		total := float64(len(s.items))
		for k := range counts {
			counts[k] /= total
		}
	}

	values := make([]float64, len(order))
	for i, k := range order {
		values[i] = counts[k]
	}
	threshold := math.Inf(-1)
	if o.top > 0 && len(values) > 0 {
		threshold = values[min(o.top, len(values))-1]
	}
	if o.hasPct && !math.IsNaN(o.percentile) && len(values) > 0 {
		threshold = max(threshold, percentile(values, o.percentile))
	}

	out := NewOrdered[K, float64]()
	for _, k := range order {
		if counts[k] >= threshold {
			out.Set(k, counts[k])
		}
	}
	return out
}

// Counts is Frequencies keyed by the items themselves.
func Counts[T comparable](s Seq[T], opts ...FreqOption) *Ordered[T, float64] {
	return Frequencies(s, func(t T) T { return t }, opts...)
}

// percentile interpolates linearly between the closest ranks of the sorted
// values: rank = p/100 * (n-1).
func percentile(values []float64, p float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p = max(0, min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
