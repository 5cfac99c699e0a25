// Package graph holds the directed, typed interaction multigraph: account
// nodes plus one synthetic public sink, and keyed parallel edges between
// them. Nodes and edges live in index-addressed tables; Node and Edge are
// lightweight views into them.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/starford/twigraph/internal/entity"
	"github.com/starford/twigraph/internal/seq"
)

// PublicID is the id of the sink node receiving original posts.
const PublicID = "public"

// NodeKind discriminates account nodes from the internal sink.
type NodeKind string

const (
	KindAccount  NodeKind = "account"
	KindInternal NodeKind = "internal"
)

var (
	ErrUnknownNode = errors.New("graph: unknown node")
	ErrPublicNode  = errors.New("graph: public node cannot be removed")
)

// Epoch is the timestamp carried by stub nodes.
var Epoch = time.Unix(0, 0).UTC()

// NodeRecord is the attribute set of a node.
type NodeRecord struct {
	ID           string             `json:"id"`
	Kind         NodeKind           `json:"type"`
	Handle       string             `json:"screenname,omitempty"`
	Labels       []string           `json:"tag"`
	InitialLabel bool               `json:"initialtag"`
	Followers    int64              `json:"followers"`
	Following    int64              `json:"friends"`
	Posts        int64              `json:"statuses"`
	Created      time.Time          `json:"created"`
	Observed     time.Time          `json:"observed"`
	Name         string             `json:"name,omitempty"`
	Description  string             `json:"description,omitempty"`
	Location     string             `json:"location,omitempty"`
	Verified     bool               `json:"verified,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

func (r NodeRecord) clone() NodeRecord {
	r.Labels = slices.Clone(r.Labels)
	if r.Metrics != nil {
		m := make(map[string]float64, len(r.Metrics))
		for k, v := range r.Metrics {
			m[k] = v
		}
		r.Metrics = m
	}
	return r
}

// EdgeRecord is the attribute set of an interaction edge.
type EdgeRecord struct {
	Src           string      `json:"src"`
	Dest          string      `json:"dest"`
	Key           int         `json:"key"`
	Kind          entity.Kind `json:"type"`
	Created       time.Time   `json:"created"`
	PostID        string      `json:"statusid"`
	CausingPostID string      `json:"causingstatusid"`
	Text          string      `json:"text"`
	ReactedText   string      `json:"reactedtext,omitempty"`
	Lang          string      `json:"lang,omitempty"`
	Mentions      []string    `json:"usermentions"`
	Hashtags      []string    `json:"hashtags"`
	Propagated    []string    `json:"propagated"`
}

func (r EdgeRecord) clone() EdgeRecord {
	r.Mentions = slices.Clone(r.Mentions)
	r.Hashtags = slices.Clone(r.Hashtags)
	r.Propagated = slices.Clone(r.Propagated)
	return r
}

type pair struct{ src, dest string }

// Graph is the interaction multigraph. It is not safe for concurrent
// mutation; one owner writes at a time.
type Graph struct {
	nodes   []*NodeRecord
	out, in [][]int
	index   map[string]int

	edges   []*EdgeRecord
	nextKey map[pair]int
}

// New returns a graph holding only the public sink.
func New() *Graph {
	g := empty()
	g.insert(NodeRecord{ID: PublicID, Kind: KindInternal})
	return g
}

func empty() *Graph {
	return &Graph{index: make(map[string]int), nextKey: make(map[pair]int)}
}

// Restore rebuilds a graph from stored records, keeping node order, edge
// order and edge keys.
func Restore(nodes []NodeRecord, edges []EdgeRecord) (*Graph, error) {
	g := empty()
	for _, n := range nodes {
		if _, dup := g.index[n.ID]; dup {
			return nil, fmt.Errorf("graph: restore: duplicate node %q", n.ID)
		}
		g.insert(n.clone())
	}
	if _, ok := g.index[PublicID]; !ok {
		g.insert(NodeRecord{ID: PublicID, Kind: KindInternal})
	}
	for _, e := range edges {
		if err := g.link(e.clone()); err != nil {
			return nil, err
		}
		p := pair{e.Src, e.Dest}
		g.nextKey[p] = max(g.nextKey[p], e.Key+1)
	}
	return g, nil
}

func (g *Graph) insert(rec NodeRecord) int {
	if rec.Labels == nil {
		rec.Labels = []string{}
	}
	g.nodes = append(g.nodes, &rec)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	idx := len(g.nodes) - 1
	g.index[rec.ID] = idx
	return idx
}

func (g *Graph) link(rec EdgeRecord) error {
	si, ok := g.index[rec.Src]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, rec.Src)
	}
	di, ok := g.index[rec.Dest]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, rec.Dest)
	}
	for _, s := range []*[]string{&rec.Mentions, &rec.Hashtags, &rec.Propagated} {
		if *s == nil {
			*s = []string{}
		}
	}
	g.edges = append(g.edges, &rec)
	ei := len(g.edges) - 1
	g.out[si] = append(g.out[si], ei)
	g.in[di] = append(g.in[di], ei)
	return nil
}

// UpsertAccount inserts an account node or replaces the profile attributes
// of an existing one. Labels, the initial flag and metrics of an existing
// node are kept.
func (g *Graph) UpsertAccount(rec NodeRecord) Node {
	rec.Kind = KindAccount
	if idx, ok := g.index[rec.ID]; ok {
		cur := g.nodes[idx]
		rec.Labels = cur.Labels
		rec.InitialLabel = cur.InitialLabel
		rec.Metrics = cur.Metrics
		*cur = rec
		return Node{g: g, idx: idx}
	}
	rec.Labels = nil
	rec.InitialLabel = false
	rec.Metrics = nil
	return Node{g: g, idx: g.insert(rec)}
}

// EnsureStub makes sure an account node exists for id, creating a minimal
// one with the given handle, zero counts and epoch timestamps if needed.
func (g *Graph) EnsureStub(id, handle string) Node {
	if idx, ok := g.index[id]; ok {
		return Node{g: g, idx: idx}
	}
	return Node{g: g, idx: g.insert(NodeRecord{
		ID:       id,
		Kind:     KindAccount,
		Handle:   handle,
		Created:  Epoch,
		Observed: Epoch,
	})}
}

// AddEdge appends an edge between two existing nodes and assigns it the
// next key for its node pair.
func (g *Graph) AddEdge(rec EdgeRecord) (Edge, error) {
	p := pair{rec.Src, rec.Dest}
	rec.Key = g.nextKey[p]
	if err := g.link(rec.clone()); err != nil {
		return Edge{}, err
	}
	g.nextKey[p]++
	return Edge{g: g, idx: len(g.edges) - 1}, nil
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	if id == PublicID {
		return ErrPublicNode
	}
	idx, ok := g.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	for _, ei := range slices.Concat(g.out[idx], g.in[idx]) {
		e := g.edges[ei]
		if e == nil {
			continue
		}
		other := g.index[e.Dest]
		if e.Dest == id {
			other = g.index[e.Src]
			g.out[other] = slices.DeleteFunc(g.out[other], func(i int) bool { return i == ei })
		} else {
			g.in[other] = slices.DeleteFunc(g.in[other], func(i int) bool { return i == ei })
		}
		delete(g.nextKey, pair{e.Src, e.Dest})
		g.edges[ei] = nil
	}
	g.nodes[idx] = nil
	g.out[idx], g.in[idx] = nil, nil
	delete(g.index, id)
	return nil
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	idx, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return Node{g: g, idx: idx}, true
}

// Nodes returns the account nodes in insertion order.
func (g *Graph) Nodes() seq.Seq[Node] {
	return g.AllNodes().Filter(Node.IsAccount)
}

// AllNodes returns every node, the public sink included, in insertion order.
func (g *Graph) AllNodes() seq.Seq[Node] {
	out := make([]Node, 0, len(g.index))
	for i, n := range g.nodes {
		if n != nil {
			out = append(out, Node{g: g, idx: i})
		}
	}
	return seq.From(out)
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() seq.Seq[Edge] {
	out := make([]Edge, 0, len(g.edges))
	for i, e := range g.edges {
		if e != nil {
			out = append(out, Edge{g: g, idx: i})
		}
	}
	return seq.From(out)
}

// NodeCount counts every node, the public sink included.
func (g *Graph) NodeCount() int { return len(g.index) }

// SetMetric writes a named score onto node id, replacing any previous value.
func (g *Graph) SetMetric(id, name string, v float64) error {
	n, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.SetMetric(name, v)
	return nil
}

// Info summarizes the graph.
type Info struct {
	Nodes    int            `json:"nodes"`
	Accounts int            `json:"accounts"`
	Edges    int            `json:"edges"`
	ByKind   map[string]int `json:"edges_by_type"`
	Labeled  int            `json:"labeled"`
	Seeded   int            `json:"seeded"`
}

func (g *Graph) Info() Info {
	info := Info{Nodes: g.NodeCount(), ByKind: map[string]int{}}
	for _, n := range g.Nodes().Items() {
		info.Accounts++
		if len(n.rec().Labels) > 0 {
			info.Labeled++
		}
		if n.InitialLabel() {
			info.Seeded++
		}
	}
	for _, e := range g.edges {
		if e != nil {
			info.Edges++
			info.ByKind[string(e.Kind)]++
		}
	}
	return info
}
