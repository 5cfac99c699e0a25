package centrality

import (
	"errors"
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/starford/twigraph/internal/apperr"
	"github.com/starford/twigraph/internal/entity"
	"github.com/starford/twigraph/internal/graph"
)

func newGraph(t *testing.T, edges ...[2]string) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, e := range edges {
		for _, id := range e {
			if _, ok := g.Node(id); !ok {
				g.UpsertAccount(graph.NodeRecord{ID: id, Handle: id})
			}
		}
		if _, err := g.AddEdge(graph.EdgeRecord{Src: e[0], Dest: e[1], Kind: entity.KindRetweet}); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func metric(t *testing.T, g *graph.Graph, id, name string) float64 {
	t.Helper()
	n, ok := g.Node(id)
	if !ok {
		t.Fatalf("node %s missing", id)
	}
	v, ok := n.Metric(name).Get()
	if !ok {
		t.Fatalf("%s has no %s", id, name)
	}
	return v
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestPageRank_SumsToOneAndOverwrites(t *testing.T) {
	g := newGraph(t, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"}, [2]string{"a", "c"})
	if err := Attach(g, MetricPageRank); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	first := metric(t, g, "a", MetricPageRank)
	var sum float64
	for _, n := range g.AllNodes().Items() {
		sum += n.Metric(MetricPageRank).Or(0)
	}
	if !near(sum, 1) {
		t.Errorf("sum = %v, want 1", sum)
	}
	if err := PageRank(g); err != nil {
		t.Fatal(err)
	}
	if again := metric(t, g, "a", MetricPageRank); !near(again, first) {
		t.Errorf("rerun = %v, want %v (overwrite, not accumulate)", again, first)
	}
}

func TestPageRank_LeavesOtherAttributes(t *testing.T) {
	g := newGraph(t, [2]string{"a", "b"})
	a, _ := g.Node("a")
	a.AppendLabel("Left")
	a.SetMetric("custom", 3)
	_ = PageRank(g)
	if got := a.Labels(); len(got) != 1 || got[0] != "Left" {
		t.Errorf("labels = %v", got)
	}
	if v := a.Metric("custom").Or(0); v != 3 {
		t.Errorf("custom = %v", v)
	}
	if g.Edges().Len() != 1 {
		t.Errorf("edges = %d", g.Edges().Len())
	}
}

func TestHITS_Star(t *testing.T) {
	g := newGraph(t, [2]string{"hub", "x"}, [2]string{"hub", "y"}, [2]string{"hub", "y"})
	if err := HITS(g); err != nil {
		t.Fatal(err)
	}
	if h := metric(t, g, "hub", MetricHub); !near(h, 1) {
		t.Errorf("hub score = %v, want 1", h)
	}
	if a := metric(t, g, "x", MetricAuthority); !near(a, 0.5) {
		t.Errorf("x authority = %v, want 0.5 (parallel edges collapse)", a)
	}
	if a := metric(t, g, "hub", MetricAuthority); a != 0 {
		t.Errorf("hub authority = %v, want 0", a)
	}
}

func TestHITS_NoEdges(t *testing.T) {
	g := graph.New()
	g.UpsertAccount(graph.NodeRecord{ID: "a"})
	if err := HITS(g); err != nil {
		t.Fatal(err)
	}
	if h := metric(t, g, "a", MetricHub); h != 0 {
		t.Errorf("hub = %v, want 0", h)
	}
}

func TestBetweenness_Path(t *testing.T) {
	// a -> b -> c plus the isolated public sink: n = 4.
	g := newGraph(t, [2]string{"a", "b"}, [2]string{"b", "c"})
	if err := Betweenness(g); err != nil {
		t.Fatal(err)
	}
	if b := metric(t, g, "b", MetricBetweenness); !near(b, 1.0/6) {
		t.Errorf("b = %v, want 1/6", b)
	}
	if a := metric(t, g, "a", MetricBetweenness); a != 0 {
		t.Errorf("a = %v, want 0", a)
	}
}

func TestDegree_CountsParallelEdges(t *testing.T) {
	g := newGraph(t, [2]string{"a", "b"}, [2]string{"a", "b"}, [2]string{"c", "b"})
	if err := InDegree(g); err != nil {
		t.Fatal(err)
	}
	if err := OutDegree(g); err != nil {
		t.Fatal(err)
	}
	// four nodes including public.
	if d := metric(t, g, "b", MetricInDegree); !near(d, 1) {
		t.Errorf("b indegree = %v, want 1", d)
	}
	if d := metric(t, g, "a", MetricOutDegree); !near(d, 2.0/3) {
		t.Errorf("a outdegree = %v, want 2/3", d)
	}
}

func TestCurrentFlow_Path(t *testing.T) {
	g := newGraph(t, [2]string{"a", "b"}, [2]string{"c", "b"})
	if err := CurrentFlow(g); err != nil {
		t.Fatal(err)
	}
	if v := metric(t, g, "b", MetricCurrentFlow); !near(v, 1) {
		t.Errorf("b = %v, want 1", v)
	}
	if v := metric(t, g, "a", MetricCurrentFlow); !near(v, 0) {
		t.Errorf("a = %v, want 0", v)
	}
	if v := metric(t, g, graph.PublicID, MetricCurrentFlow); v != 0 {
		t.Errorf("public = %v, want 0", v)
	}
}

func TestCurrentFlow_Cycle(t *testing.T) {
	// On a symmetric 4-cycle every node scores the same.
	g := newGraph(t, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "d"}, [2]string{"d", "a"})
	if err := CurrentFlow(g); err != nil {
		t.Fatal(err)
	}
	want := metric(t, g, "a", MetricCurrentFlow)
	if want <= 0 {
		t.Fatalf("a = %v, want positive", want)
	}
	for _, id := range []string{"b", "c", "d"} {
		if v := metric(t, g, id, MetricCurrentFlow); !near(v, want) {
			t.Errorf("%s = %v, want %v", id, v, want)
		}
	}
}

func TestAttach_Unknown(t *testing.T) {
	if err := Attach(graph.New(), "closeness"); !errors.Is(err, apperr.ErrUnknownMetric) {
		t.Errorf("err = %v, want ErrUnknownMetric", err)
	}
}

func TestNames(t *testing.T) {
	want := []string{"betweenness", "currentflow", "hits", "indegree", "outdegree", "pagerank"}
	if got := Names(); !slices.Equal(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}

func TestInvert_IllConditionedIsNotFatal(t *testing.T) {
	// Invertible, but its condition number is above mat.ConditionTolerance.
	a := mat.NewDense(2, 2, []float64{1, 1, 1, 1 + 2.3e-16})
	inv, err := invert(a)
	if err != nil {
		t.Fatalf("invert: %v", err)
	}
	for _, v := range inv.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("inverse = %v", inv.RawMatrix().Data)
		}
	}
}

func TestInvert_Singular(t *testing.T) {
	if _, err := invert(mat.NewDense(2, 2, []float64{1, 1, 1, 1})); err == nil {
		t.Fatal("singular matrix should fail")
	}
}
