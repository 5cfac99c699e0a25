package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/twigraph/internal/entity"
)

func account(id, handle string) NodeRecord {
	return NodeRecord{ID: id, Handle: handle, Created: Epoch, Observed: Epoch}
}

func mustEdge(t *testing.T, g *Graph, src, dest string, kind entity.Kind) Edge {
	t.Helper()
	e, err := g.AddEdge(EdgeRecord{Src: src, Dest: dest, Kind: kind, Created: time.Now().UTC()})
	if err != nil {
		t.Fatalf("add edge: %v", err)
	}
	return e
}

func TestNew_HasPublicSink(t *testing.T) {
	g := New()
	p, ok := g.Node(PublicID)
	if !ok {
		t.Fatal("public node missing")
	}
	if !p.IsInternal() {
		t.Errorf("public kind = %q, want internal", p.Kind())
	}
	if g.Nodes().Len() != 0 {
		t.Errorf("accounts = %d, want 0", g.Nodes().Len())
	}
	if g.AllNodes().Len() != 1 {
		t.Errorf("all nodes = %d, want 1", g.AllNodes().Len())
	}
}

func TestAddEdge_KeysPerPair(t *testing.T) {
	g := New()
	g.UpsertAccount(account("1", "a"))
	g.UpsertAccount(account("2", "b"))
	e0 := mustEdge(t, g, "1", "2", entity.KindRetweet)
	e1 := mustEdge(t, g, "1", "2", entity.KindRetweet)
	e2 := mustEdge(t, g, "2", "1", entity.KindReply)
	if e0.Key() != 0 || e1.Key() != 1 || e2.Key() != 0 {
		t.Errorf("keys = %d %d %d, want 0 1 0", e0.Key(), e1.Key(), e2.Key())
	}
	a, _ := g.Node("1")
	if n := a.OutNodes(Edge.IsRetweet).Len(); n != 2 {
		t.Errorf("retweet out nodes = %d, want 2 (one per edge)", n)
	}
}

func TestAddEdge_UnknownNode(t *testing.T) {
	g := New()
	_, err := g.AddEdge(EdgeRecord{Src: "x", Dest: PublicID, Kind: entity.KindStatus})
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("err = %v, want ErrUnknownNode", err)
	}
}

func TestOutNodes_SkipsPublic(t *testing.T) {
	g := New()
	g.UpsertAccount(account("1", "a"))
	mustEdge(t, g, "1", PublicID, entity.KindStatus)
	a, _ := g.Node("1")
	if a.OutEdges().Len() != 1 {
		t.Fatalf("out edges = %d, want 1", a.OutEdges().Len())
	}
	if a.OutNodes(nil).Len() != 0 {
		t.Errorf("out nodes should exclude the public sink")
	}
}

func TestUpsertAccount_KeepsLabelsAndMetrics(t *testing.T) {
	g := New()
	n := g.UpsertAccount(account("1", "a"))
	n.AppendLabel("Left")
	n.SetMetric("pagerank", 0.5)
	rec := account("1", "a2")
	rec.Followers = 7
	rec.Labels = []string{"ignored"}
	n = g.UpsertAccount(rec)
	if n.Handle() != "a2" || n.Followers() != 7 {
		t.Errorf("profile not replaced: %+v", n.Record())
	}
	if got := n.Labels(); len(got) != 1 || got[0] != "Left" {
		t.Errorf("labels = %v, want [Left]", got)
	}
	if v, ok := n.Metric("pagerank").Get(); !ok || v != 0.5 {
		t.Errorf("pagerank = %v, %v", v, ok)
	}
}

func TestEnsureStub(t *testing.T) {
	g := New()
	s := g.EnsureStub("9", "ghost")
	if s.Handle() != "ghost" || !s.Created().Equal(Epoch) || len(s.Labels()) != 0 {
		t.Errorf("stub = %+v", s.Record())
	}
	g.UpsertAccount(account("9", "real"))
	if again := g.EnsureStub("9", "other"); again.Handle() != "real" {
		t.Errorf("stub overwrote existing node: %q", again.Handle())
	}
}

func TestRemoveNode(t *testing.T) {
	g := New()
	g.UpsertAccount(account("1", "a"))
	g.UpsertAccount(account("2", "b"))
	mustEdge(t, g, "1", "2", entity.KindRetweet)
	mustEdge(t, g, "2", PublicID, entity.KindStatus)
	mustEdge(t, g, "1", PublicID, entity.KindStatus)

	if err := g.RemoveNode("2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := g.Node("2"); ok {
		t.Error("node still present")
	}
	if g.Edges().Len() != 1 {
		t.Errorf("edges = %d, want 1", g.Edges().Len())
	}
	a, _ := g.Node("1")
	if a.OutEdges().Len() != 1 {
		t.Errorf("out edges of 1 = %d, want 1", a.OutEdges().Len())
	}
	p, _ := g.Node(PublicID)
	if p.InEdges().Len() != 1 {
		t.Errorf("in edges of public = %d, want 1", p.InEdges().Len())
	}
	if err := g.RemoveNode(PublicID); !errors.Is(err, ErrPublicNode) {
		t.Errorf("err = %v, want ErrPublicNode", err)
	}
}

func TestRestore_KeepsKeysAndOrder(t *testing.T) {
	g := New()
	g.UpsertAccount(account("1", "a"))
	g.UpsertAccount(account("2", "b"))
	mustEdge(t, g, "1", "2", entity.KindRetweet)
	mustEdge(t, g, "1", "2", entity.KindQuote)

	var nodes []NodeRecord
	for _, n := range g.AllNodes().Items() {
		nodes = append(nodes, n.Record())
	}
	var edges []EdgeRecord
	for _, e := range g.Edges().Items() {
		edges = append(edges, e.Record())
	}
	r, err := Restore(nodes, edges)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if r.Edges().At(1).Key() != 1 || r.Edges().At(1).Kind() != entity.KindQuote {
		t.Errorf("second edge = %+v", r.Edges().At(1).Record())
	}
	e, _ := r.AddEdge(EdgeRecord{Src: "1", Dest: "2", Kind: entity.KindRetweet})
	if e.Key() != 2 {
		t.Errorf("next key = %d, want 2", e.Key())
	}
}

func TestInfo(t *testing.T) {
	g := New()
	n := g.UpsertAccount(account("1", "a"))
	n.Seed("Left")
	g.UpsertAccount(account("2", "b"))
	mustEdge(t, g, "1", "2", entity.KindRetweet)
	mustEdge(t, g, "1", PublicID, entity.KindStatus)
	info := g.Info()
	if info.Nodes != 3 || info.Accounts != 2 || info.Edges != 2 || info.Seeded != 1 {
		t.Errorf("info = %+v", info)
	}
	if info.ByKind["retweet"] != 1 || info.ByKind["status"] != 1 {
		t.Errorf("by kind = %v", info.ByKind)
	}
}

func TestCategory(t *testing.T) {
	cases := []struct {
		name    string
		labels  []string
		initial bool
		want    string
	}{
		{"empty", nil, false, Unknown},
		{"seeded keeps first", []string{"Left", "Right", "Right"}, true, "Left"},
		{"single", []string{"Left"}, false, "Left"},
		{"balanced", []string{"Left", "Right"}, false, Inconsistent},
		{"clear majority", []string{"Left", "Left", "Right"}, false, "Left"},
		{"weak majority", []string{"A", "A", "B", "B", "C", "A", "B", "C"}, false, Inconsistent},
		{"tie at max", []string{"A", "A", "B", "B", "C"}, false, Inconsistent},
	}
	for _, c := range cases {
		if got := Category(c.labels, c.initial, DefaultRatio); got != c.want {
			t.Errorf("%s: category = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestCategory_TieWithLowRatio(t *testing.T) {
	// ratio 1 lets the threshold pass, the tie still resolves to inconsistent.
	if got := Category([]string{"A", "B"}, false, 1); got != Inconsistent {
		t.Errorf("category = %q, want %q", got, Inconsistent)
	}
}

func TestCategoryDistribution(t *testing.T) {
	g := New()
	n := g.UpsertAccount(account("1", "a"))
	for _, l := range []string{"L", "L", "R", "L"} {
		n.AppendLabel(l)
	}
	d := n.CategoryDistribution()
	if v, _ := d.Get("L"); v != 0.75 {
		t.Errorf("L = %v, want 0.75", v)
	}
	if d.Keys()[0] != "L" {
		t.Errorf("keys = %v", d.Keys())
	}
}
