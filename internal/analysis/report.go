package analysis

import (
	"fmt"

	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/seq"
)

// Corpus selects the edges accepted by of whose source and destination are
// accepted by src and dest, and maps them through get. Nil predicates
// accept everything.
func Corpus[T any](g *graph.Graph, of func(graph.Edge) bool, src, dest func(graph.Node) bool, get func(graph.Edge) T) seq.Seq[T] {
	edges := g.Edges().Filter(func(e graph.Edge) bool {
		return accept(of, e) && accept(src, e.Src()) && accept(dest, e.Dest())
	})
	return seq.Map(edges, get)
}

func accept[T any](pred func(T) bool, v T) bool { return pred == nil || pred(v) }

// Matrix counts interactions between groups: Matrix[from][to].
type Matrix = seq.Ordered[string, *seq.Ordered[string, int]]

// InteractionMatrix groups account nodes by marking and counts the edges
// between every pair of groups. Each edge between two accounts is counted
// once, provided outgoing accepts its source and incoming its destination.
// Edges into the public sink are not interactions and are ignored.
func InteractionMatrix(g *graph.Graph, marking func(graph.Node) string, outgoing, incoming func(graph.Node) bool) *Matrix {
	markers := seq.Unique(seq.Map(g.Nodes(), marking)).Items()
	m := seq.NewOrdered[string, *seq.Ordered[string, int]]()
	for _, from := range markers {
		row := seq.NewOrdered[string, int]()
		for _, to := range markers {
			row.Set(to, 0)
		}
		m.Set(from, row)
	}

	for _, e := range g.Edges().Items() {
		src, dest := e.Src(), e.Dest()
		if !src.IsAccount() || !dest.IsAccount() {
			continue
		}
		if !accept(outgoing, src) || !accept(incoming, dest) {
			continue
		}
		row, _ := m.Get(marking(src))
		n, _ := row.Get(marking(dest))
		row.Set(marking(dest), n+1)
	}
	return m
}

// ByCategory is a marking grouping nodes by effective category.
func ByCategory(ratio float64) func(graph.Node) string {
	return func(n graph.Node) string { return n.Category(ratio) }
}

// Retweeter is one row of TopRetweeters.
type Retweeter struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Category string `json:"category"`
	Retweets int    `json:"retweets"`
}

// TopRetweeters ranks accounts by the number of retweets they made (retweet
// edges point from the original author to the retweeter); ties at the n-th
// place are all kept. n <= 0 keeps everyone.
func TopRetweeters(g *graph.Graph, ratio float64, n int) []Retweeter {
	counts := seq.Frequencies(g.Edges().Filter(Retweet), func(e graph.Edge) string { return e.Dest().ID() }, seq.Top(n))
	out := make([]Retweeter, 0, counts.Len())
	for id, c := range counts.All() {
		node, _ := g.Node(id)
		out = append(out, Retweeter{ID: id, Handle: node.Handle(), Category: node.Category(ratio), Retweets: int(c)})
	}
	return out
}

// Fields lists the names accepted by Frequencies.
var Fields = []string{"hashtags", "mentions", "lang", "type", "day", "category"}

// Frequencies counts one field over the graph. Edge fields (hashtags,
// mentions, lang, type, day) count over all edges; category counts over
// account nodes.
func Frequencies(g *graph.Graph, field string, ratio float64, opts ...seq.FreqOption) (*seq.Ordered[string, float64], error) {
	edges := g.Edges()
	identity := func(s string) string { return s }
	switch field {
	case "hashtags":
		return seq.Frequencies(seq.Flatten(seq.Map(edges, Hashtags)), identity, opts...), nil
	case "mentions":
		return seq.Frequencies(seq.Flatten(seq.Map(edges, UserMentions)), identity, opts...), nil
	case "lang":
		return seq.Frequencies(edges, graph.Edge.Lang, opts...), nil
	case "type":
		return seq.Frequencies(edges, func(e graph.Edge) string { return string(e.Kind()) }, opts...), nil
	case "day":
		return seq.Frequencies(edges, Day, opts...), nil
	case "category":
		return seq.Frequencies(g.Nodes(), ByCategory(ratio), opts...), nil
	}
	return nil, fmt.Errorf("analysis: unknown field %q", field)
}
