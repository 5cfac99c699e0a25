package graph

import (
	"github.com/starford/twigraph/internal/seq"
)

const (
	Unknown      = "unknown"
	Inconsistent = "inconsistent"

	// DefaultRatio is the default dominance factor of Category.
	DefaultRatio = 1.25
)

// Resolved reports whether c is a real category and not one of the
// Unknown/Inconsistent markers.
func Resolved(c string) bool { return c != Unknown && c != Inconsistent }

// Category derives the effective category of a label sequence.
//
// No labels yields Unknown. A seeded sequence keeps its first label. Otherwise
// the most frequent label wins if it occurs at least ratio times the mean
// frequency of the distinct labels; a weaker majority, or any tie at the
// maximum, yields Inconsistent.
func Category(labels []string, initial bool, ratio float64) string {
	if len(labels) == 0 {
		return Unknown
	}
	if initial {
		return labels[0]
	}

	freqs := seq.Counts(seq.From(labels))
	k := freqs.Len()
	var top string
	var m, total float64
	ties := 0
	for label, c := range freqs.All() {
		total += c
		switch {
		case c > m:
			top, m, ties = label, c, 1
		case c == m:
			ties++
		}
	}
	avg := total / float64(k)
	if k > 1 && m < ratio*avg {
		return Inconsistent
	}
	if ties > 1 {
		return Inconsistent
	}
	return top
}
