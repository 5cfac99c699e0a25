package centrality

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"

	"github.com/starford/twigraph/internal/graph"
)

// CurrentFlow writes current-flow betweenness over the undirected simple
// projection. The graph is treated as a resistor network with unit edges;
// a node's score is the current passing through it, summed over all
// source/sink pairs of its connected component and normalized by
// 2/((m-1)(m-2)) for a component of m nodes. Nodes of components smaller
// than three score zero.
//
// The pass inverts one m×m Laplacian per component and is meant for graphs
// of moderate size.
func CurrentFlow(g *graph.Graph) error {
	nodes := g.AllNodes().Items()
	ug := simple.NewUndirectedGraph()
	pos := make(map[int]int64, len(nodes))
	for i, n := range nodes {
		pos[n.Index()] = int64(i)
		ug.AddNode(simple.Node(i))
	}
	for _, e := range g.Edges().Items() {
		s, d := pos[e.Src().Index()], pos[e.Dest().Index()]
		if s == d || ug.HasEdgeBetween(s, d) {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(s), T: simple.Node(d)})
	}

	scores := make(map[int64]float64, len(nodes))
	for _, comp := range topo.ConnectedComponents(ug) {
		if len(comp) < 3 {
			continue
		}
		ids := make([]int64, len(comp))
		for i, n := range comp {
			ids[i] = n.ID()
		}
		cf, err := componentFlow(ug, ids)
		if err != nil {
			return err
		}
		for i, id := range ids {
			scores[id] = cf[i]
		}
	}

	for i, n := range nodes {
		n.SetMetric(MetricCurrentFlow, scores[int64(i)])
	}
	return nil
}

// componentFlow computes normalized current-flow betweenness for one
// connected component given by its gonum node ids.
func componentFlow(ug *simple.UndirectedGraph, ids []int64) ([]float64, error) {
	m := len(ids)
	local := make(map[int64]int, m)
	for i, id := range ids {
		local[id] = i
	}
	adj := make([][]int, m)
	for i, id := range ids {
		nb := ug.From(id)
		for nb.Next() {
			adj[i] = append(adj[i], local[nb.Node().ID()])
		}
	}

	// Ground the last node: invert the Laplacian without its row and column.
	r := m - 1
	lap := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		lap.Set(i, i, float64(len(adj[i])))
		for _, j := range adj[i] {
			if j < r {
				lap.Set(i, j, lap.At(i, j)-1)
			}
		}
	}
	inv, err := invert(lap)
	if err != nil {
		return nil, err
	}
	c := func(i, j int) float64 {
		if i == r || j == r {
			return 0
		}
		return inv.At(i, j)
	}

	flow := make([]float64, m)
	pot := make([]float64, m)
	for s := 0; s < m; s++ {
		for t := s + 1; t < m; t++ {
			for v := 0; v < m; v++ {
				pot[v] = c(v, s) - c(v, t)
			}
			for v := 0; v < m; v++ {
				if v == s || v == t {
					continue
				}
				var through float64
				for _, u := range adj[v] {
					through += math.Abs(pot[v] - pot[u])
				}
				flow[v] += through / 2
			}
		}
	}

	norm := 2 / (float64(m-1) * float64(m-2))
	for i := range flow {
		flow[i] *= norm
	}
	return flow, nil
}

// invert inverts a. An ill-conditioned but invertible a only draws a
// mat.Condition warning, which is ignored; a singular one is an error.
func invert(a mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	err := inv.Inverse(a)
	var cond mat.Condition
	switch {
	case err == nil:
	case errors.As(err, &cond) && !math.IsInf(float64(cond), 1):
	default:
		return nil, fmt.Errorf("centrality: current flow: %w", err)
	}
	return &inv, nil
}
