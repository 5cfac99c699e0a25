package graph

import (
	"slices"
	"time"

	"github.com/starford/twigraph/internal/entity"
	"github.com/starford/twigraph/internal/seq"
)

// Node is a view of one node. Two views are equal when they address the
// same node of the same graph.
type Node struct {
	g   *Graph
	idx int
}

func (n Node) rec() *NodeRecord { return n.g.nodes[n.idx] }

// Index is the node's table position, stable for the life of the graph and
// increasing in insertion order.
func (n Node) Index() int { return n.idx }

// Valid reports whether the view still addresses a live node.
func (n Node) Valid() bool {
	return n.g != nil && n.idx < len(n.g.nodes) && n.g.nodes[n.idx] != nil
}

func (n Node) ID() string { return n.rec().ID }
func (n Node) Kind() NodeKind { return n.rec().Kind }
func (n Node) IsAccount() bool { return n.rec().Kind == KindAccount }
func (n Node) IsInternal() bool { return n.rec().Kind == KindInternal }
func (n Node) Handle() string { return n.rec().Handle }
func (n Node) InitialLabel() bool { return n.rec().InitialLabel }
func (n Node) Observed() time.Time { return n.rec().Observed }
func (n Node) Labels() []string { return slices.Clone(n.rec().Labels) }
func (n Node) Record() NodeRecord { return n.rec().clone() }
func (n Node) Created() time.Time { return n.rec().Created }
func (n Node) Followers() int64 { return n.rec().Followers }

// AppendLabel records one more category observation.
func (n Node) AppendLabel(label string) {
	r := n.rec()
	r.Labels = append(r.Labels, label)
}

// Seed marks the node as externally labeled with label, or clears the
// initial flag when label is empty. The seed always sits at the head of the
// label list: an earlier seed is replaced in place, otherwise the seed is
// inserted before any propagated labels. A cleared seed stays behind as an
// ordinary observation.
func (n Node) Seed(label string) {
	r := n.rec()
	switch {
	case label == "":
	case r.InitialLabel && len(r.Labels) > 0:
		r.Labels[0] = label
	default:
		r.Labels = slices.Insert(r.Labels, 0, label)
	}
	r.InitialLabel = label != ""
}

// Metric returns a named score written by a metric pass.
func (n Node) Metric(name string) entity.Opt[float64] {
	v, ok := n.rec().Metrics[name]
	if !ok {
		return entity.None[float64]()
	}
	return entity.Some(v)
}

// SetMetric writes a named score, replacing any previous value.
func (n Node) SetMetric(name string, v float64) {
	r := n.rec()
	if r.Metrics == nil {
		r.Metrics = make(map[string]float64)
	}
	r.Metrics[name] = v
}

// Category returns the effective category of the node.
func (n Node) Category(ratio float64) string {
	r := n.rec()
	return Category(r.Labels, r.InitialLabel, ratio)
}

// CategoryDistribution returns the normalized label frequencies.
func (n Node) CategoryDistribution() *seq.Ordered[string, float64] {
	return seq.Counts(seq.From(n.rec().Labels), seq.Normalize())
}

// OutEdges returns the edges leaving the node in insertion order.
func (n Node) OutEdges() seq.Seq[Edge] { return n.edgeViews(n.g.out[n.idx]) }

// InEdges returns the edges entering the node in insertion order.
func (n Node) InEdges() seq.Seq[Edge] { return n.edgeViews(n.g.in[n.idx]) }

func (n Node) edgeViews(ids []int) seq.Seq[Edge] {
	out := make([]Edge, len(ids))
	for i, ei := range ids {
		out[i] = Edge{g: n.g, idx: ei}
	}
	return seq.From(out)
}

// OutNodes returns the account destinations of the out-edges accepted by
// via, one entry per edge. A nil via accepts every edge.
func (n Node) OutNodes(via func(Edge) bool) seq.Seq[Node] {
	return n.neighbors(n.OutEdges(), via, Edge.Dest)
}

// InNodes returns the account sources of the in-edges accepted by via, one
// entry per edge.
func (n Node) InNodes(via func(Edge) bool) seq.Seq[Node] {
	return n.neighbors(n.InEdges(), via, Edge.Src)
}

func (n Node) neighbors(edges seq.Seq[Edge], via func(Edge) bool, end func(Edge) Node) seq.Seq[Node] {
	if via != nil {
		edges = edges.Filter(via)
	}
	return seq.Map(edges, end).Filter(Node.IsAccount)
}

// Edge is a view of one edge.
type Edge struct {
	g   *Graph
	idx int
}

func (e Edge) rec() *EdgeRecord { return e.g.edges[e.idx] }

func (e Edge) Kind() entity.Kind { return e.rec().Kind }
func (e Edge) Key() int { return e.rec().Key }
func (e Edge) Created() time.Time { return e.rec().Created }
func (e Edge) PostID() string { return e.rec().PostID }
func (e Edge) Text() string { return e.rec().Text }
func (e Edge) Lang() string { return e.rec().Lang }
func (e Edge) Mentions() []string { return slices.Clone(e.rec().Mentions) }
func (e Edge) Hashtags() []string { return slices.Clone(e.rec().Hashtags) }
func (e Edge) Record() EdgeRecord { return e.rec().clone() }
func (e Edge) IsStatus() bool { return e.rec().Kind == entity.KindStatus }
func (e Edge) IsRetweet() bool { return e.rec().Kind == entity.KindRetweet }
func (e Edge) IsQuote() bool { return e.rec().Kind == entity.KindQuote }
func (e Edge) IsReply() bool { return e.rec().Kind == entity.KindReply }

func (e Edge) Src() Node {
	return Node{g: e.g, idx: e.g.index[e.rec().Src]}
}

func (e Edge) Dest() Node {
	return Node{g: e.g, idx: e.g.index[e.rec().Dest]}
}

// Propagated returns the category the edge carries, that of its source.
func (e Edge) Propagated(ratio float64) string { return e.Src().Category(ratio) }
