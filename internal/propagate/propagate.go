// Package propagate diffuses seeded category labels along retweet edges.
//
// Propagation runs in synchronous rounds over an explicit frontier. Every
// node of the frontier pushes its effective category to each account that
// retweeted it; a receiver whose category changed, or that was never
// visited, joins the next frontier. Runs stop at a fixpoint or after
// MaxRounds. Propagation accumulates: running it twice appends twice.
package propagate

import (
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/starford/twigraph/internal/graph"
)

// DefaultMaxRounds bounds a run when Options.MaxRounds is unset.
const DefaultMaxRounds = 10

// Tagging maps a category to the handles seeded with it.
type Tagging map[string][]string

// Options tunes a propagation run.
type Options struct {
	MaxRounds int
	Ratio     float64
	Logger    *slog.Logger
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.Ratio <= 0 {
		o.Ratio = graph.DefaultRatio
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Result reports how a run ended.
type Result struct {
	Rounds    int  `json:"rounds"`
	Appends   int  `json:"appends"`
	Visited   int  `json:"visited"`
	Converged bool `json:"converged"`
}

// Seed clears the initial flag of every account not listed in t and puts
// the category of every listed account (handle matched case-insensitively)
// at the head of its labels, marking it seeded. Categories are applied in
// sorted order and the first category listing a handle wins. It returns the
// number of seeded accounts.
func Seed(g *graph.Graph, t Tagging) int {
	byHandle := make(map[string]string)
	categories := make([]string, 0, len(t))
	for c := range t {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		for _, h := range t[c] {
			h = strings.ToLower(h)
			if _, ok := byHandle[h]; !ok {
				byHandle[h] = c
			}
		}
	}

	seeded := 0
	for _, n := range g.Nodes().Items() {
		c, ok := byHandle[n.Handle()]
		n.Seed(c)
		if ok {
			seeded++
		}
	}
	return seeded
}

// Run propagates labels from the seeded accounts.
func Run(g *graph.Graph, opts Options) Result {
	opts = opts.WithDefaults()

	frontier := g.Nodes().Filter(graph.Node.InitialLabel).Items()
	processed := make(map[graph.Node]struct{})
	var res Result

	for res.Rounds < opts.MaxRounds && len(frontier) > 0 {
		res.Rounds++
		opts.Logger.Info("propagation round", "round", res.Rounds, "frontier", len(frontier))

		next := make(map[graph.Node]struct{})
		for _, src := range frontier {
			processed[src] = struct{}{}
			for _, dest := range src.OutNodes(graph.Edge.IsRetweet).Items() {
				before := dest.Category(opts.Ratio)
				if c := src.Category(opts.Ratio); graph.Resolved(c) {
					dest.AppendLabel(c)
					res.Appends++
				}
				now := dest.Category(opts.Ratio)

				if _, seen := processed[dest]; !seen || now != before {
					next[dest] = struct{}{}
				}
			}
		}
		frontier = ordered(next)
	}

	res.Visited = len(processed)
	res.Converged = len(frontier) == 0
	opts.Logger.Info("propagation finished", "rounds", res.Rounds, "appends", res.Appends,
		"visited", res.Visited, "converged", res.Converged)
	return res
}

// SeedAndRun seeds t and runs propagation.
func SeedAndRun(g *graph.Graph, t Tagging, opts Options) (int, Result) {
	seeded := Seed(g, t)
	return seeded, Run(g, opts)
}

// ordered returns the set in node insertion order.
func ordered(set map[graph.Node]struct{}) []graph.Node {
	out := make([]graph.Node, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b graph.Node) int { return a.Index() - b.Index() })
	return out
}
