// Package analysis holds the query vocabulary used over a built graph:
// edge predicates and extractors, text corpora, interaction matrices and
// frequency reports. Everything is expressed through the seq algebra.
package analysis

import (
	"time"

	"github.com/starford/twigraph/internal/entity"
	"github.com/starford/twigraph/internal/graph"
)

// Edge predicates, for use with Filter.
var (
	Status  = graph.Edge.IsStatus
	Retweet = graph.Edge.IsRetweet
	Reply   = graph.Edge.IsReply
	Quote   = graph.Edge.IsQuote
)

// LastHours accepts edges created within n hours before now.
func LastHours(n int, now time.Time) func(graph.Edge) bool {
	since := now.Add(-time.Duration(n) * time.Hour)
	return func(e graph.Edge) bool { return !e.Created().Before(since) }
}

// LastDays accepts edges created on or after the calendar day n days
// before now (UTC).
func LastDays(n int, now time.Time) func(graph.Edge) bool {
	y, m, d := now.UTC().AddDate(0, 0, -n).Date()
	since := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return func(e graph.Edge) bool { return !e.Created().Before(since) }
}

// Edge extractors, for use with Map.
func UserMentions(e graph.Edge) []string { return e.Mentions() }
func Hashtags(e graph.Edge) []string { return e.Hashtags() }
func Text(e graph.Edge) string { return e.Text() }

// Day returns the UTC creation day of e as YYYY-MM-DD.
func Day(e graph.Edge) string { return e.Created().UTC().Format(time.DateOnly) }

// KindOf names the interaction a raw post represents, or "unknown" for
// deleted and withheld posts.
func KindOf(p entity.Post) string {
	switch k := p.Kind(); k {
	case entity.KindDeleted, entity.KindWithheld:
		return graph.Unknown
	default:
		return string(k)
	}
}
