// Package centrality attaches link-analysis and centrality scores to graph
// nodes as named metrics. Every pass writes a score onto every node,
// replacing the previous value, and leaves edges and other attributes
// alone. Passes are independent of each other.
package centrality

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/starford/twigraph/internal/apperr"
	"github.com/starford/twigraph/internal/graph"
)

// Metric attribute names.
const (
	MetricHub         = "hub"
	MetricAuthority   = "authority"
	MetricPageRank    = "pagerank"
	MetricBetweenness = "betweenness"
	MetricInDegree    = "indegree"
	MetricOutDegree   = "outdegree"
	MetricCurrentFlow = "currentflow"
)

// PassHITS names the pass writing both MetricHub and MetricAuthority.
const PassHITS = "hits"

const (
	damping   = 0.85
	tolerance = 1e-10
)

var passes = map[string]func(*graph.Graph) error{
	PassHITS:          HITS,
	MetricPageRank:    PageRank,
	MetricBetweenness: Betweenness,
	MetricInDegree:    InDegree,
	MetricOutDegree:   OutDegree,
	MetricCurrentFlow: CurrentFlow,
}

// Names lists the metric passes Attach accepts.
func Names() []string {
	out := make([]string, 0, len(passes))
	for name := range passes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Attach runs the named pass.
func Attach(g *graph.Graph, name string) error {
	pass, ok := passes[name]
	if !ok {
		return fmt.Errorf("centrality: %w: %q", apperr.ErrUnknownMetric, name)
	}
	return pass(g)
}

// projection is a simple directed copy of the multigraph: parallel edges
// collapse into one and self-loops are dropped. Gonum node ids are the
// positions in nodes.
type projection struct {
	nodes []graph.Node
	pos   map[int]int64
	dg    *simple.DirectedGraph
}

func project(g *graph.Graph) projection {
	p := projection{
		nodes: g.AllNodes().Items(),
		dg:    simple.NewDirectedGraph(),
	}
	p.pos = make(map[int]int64, len(p.nodes))
	for i, n := range p.nodes {
		p.pos[n.Index()] = int64(i)
		p.dg.AddNode(simple.Node(i))
	}
	for _, e := range g.Edges().Items() {
		s, d := p.pos[e.Src().Index()], p.pos[e.Dest().Index()]
		if s == d || p.dg.HasEdgeFromTo(s, d) {
			continue
		}
		p.dg.SetEdge(simple.Edge{F: simple.Node(s), T: simple.Node(d)})
	}
	return p
}

// write stores scores[id] on every node, zero for missing ids.
func (p projection) write(name string, scores map[int64]float64) {
	for i, n := range p.nodes {
		n.SetMetric(name, scores[int64(i)])
	}
}

// HITS writes hub and authority scores, each normalized to sum to 1.
func HITS(g *graph.Graph) error {
	p := project(g)
	hubs := make(map[int64]float64)
	auths := make(map[int64]float64)
	if p.dg.Edges().Len() > 0 {
		var hubSum, authSum float64
		for id, ha := range network.HITS(p.dg, tolerance) {
			hubs[id], auths[id] = ha.Hub, ha.Authority
			hubSum += ha.Hub
			authSum += ha.Authority
		}
		scale(hubs, hubSum)
		scale(auths, authSum)
	}
	p.write(MetricHub, hubs)
	p.write(MetricAuthority, auths)
	return nil
}

// PageRank writes PageRank scores (damping 0.85), summing to 1.
func PageRank(g *graph.Graph) error {
	p := project(g)
	ranks := network.PageRankSparse(p.dg, damping, tolerance)
	var sum float64
	for _, r := range ranks {
		sum += r
	}
	scale(ranks, sum)
	p.write(MetricPageRank, ranks)
	return nil
}

// Betweenness writes directed shortest-path betweenness, normalized by
// 1/((n-1)(n-2)).
func Betweenness(g *graph.Graph) error {
	p := project(g)
	scores := network.Betweenness(p.dg)
	if n := float64(len(p.nodes)); n > 2 {
		for id := range scores {
			scores[id] /= (n - 1) * (n - 2)
		}
	}
	p.write(MetricBetweenness, scores)
	return nil
}

// InDegree writes the number of incoming edges, parallel edges included,
// divided by n-1.
func InDegree(g *graph.Graph) error {
	return degree(g, MetricInDegree, func(n graph.Node) int { return n.InEdges().Len() })
}

// OutDegree writes the number of outgoing edges, parallel edges included,
// divided by n-1.
func OutDegree(g *graph.Graph) error {
	return degree(g, MetricOutDegree, func(n graph.Node) int { return n.OutEdges().Len() })
}

func degree(g *graph.Graph, name string, deg func(graph.Node) int) error {
	nodes := g.AllNodes().Items()
	if len(nodes) == 1 {
		nodes[0].SetMetric(name, 1)
		return nil
	}
	s := 1 / float64(len(nodes)-1)
	for _, n := range nodes {
		n.SetMetric(name, float64(deg(n))*s)
	}
	return nil
}

func scale(m map[int64]float64, sum float64) {
	if sum == 0 {
		return
	}
	for k := range m {
		m[k] /= sum
	}
}
