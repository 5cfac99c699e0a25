package builder

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/starford/twigraph/internal/entity"
	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/testutil"
)

var (
	t0     = time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	quiet  = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	noSpan = Window{}
)

func build(t *testing.T, posts ...*testutil.PostBuilder) *graph.Graph {
	t.Helper()
	g, err := Build(testutil.Records(posts...), noSpan, quiet)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func edgeKinds(g *graph.Graph) []string {
	var out []string
	for _, e := range g.Edges().Items() {
		out = append(out, e.Record().Src+">"+e.Record().Dest+":"+string(e.Kind()))
	}
	return out
}

func TestBuild_EdgePerKind(t *testing.T) {
	orig := testutil.Post("10", "1", "Alice", t0)
	g := build(t,
		orig,
		testutil.Post("11", "2", "Bob", t0.Add(time.Minute)).ReplyTo("10", "1", "Alice"),
		testutil.Post("12", "3", "Carol", t0.Add(2*time.Minute)).Retweet(orig),
		testutil.Post("13", "4", "Dave", t0.Add(3*time.Minute)).Quote(orig),
	)
	want := []string{"1>public:status", "2>1:reply", "1>3:retweet", "1>4:quote"}
	if got := edgeKinds(g); !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	reply := g.Edges().At(1).Record()
	if reply.CausingPostID != "10" || reply.PostID != "11" {
		t.Errorf("reply ids = %q/%q", reply.PostID, reply.CausingPostID)
	}
	rt := g.Edges().At(2).Record()
	if rt.CausingPostID != "10" || rt.ReactedText != "post 10" {
		t.Errorf("retweet = %+v", rt)
	}
	a, _ := g.Node("1")
	if a.Handle() != "alice" {
		t.Errorf("handle = %q, want lowercase", a.Handle())
	}
}

func TestBuild_IdempotentUnderDuplicates(t *testing.T) {
	posts := []*testutil.PostBuilder{
		testutil.Post("1", "a", "A", t0),
		testutil.Post("2", "b", "B", t0.Add(time.Hour)).Retweet(testutil.Post("1", "a", "A", t0)),
		testutil.Post("3", "c", "C", t0.Add(2*time.Hour)).ReplyTo("2", "b", "B"),
	}
	once := build(t, posts...)
	twice := build(t, append(posts, posts...)...)

	if !reflect.DeepEqual(once.Info(), twice.Info()) {
		t.Fatalf("info = %+v vs %+v", once.Info(), twice.Info())
	}
	for i, e := range once.Edges().Items() {
		if !reflect.DeepEqual(e.Record(), twice.Edges().At(i).Record()) {
			t.Errorf("edge %d differs", i)
		}
	}
	for i, n := range once.AllNodes().Items() {
		if !reflect.DeepEqual(n.Record(), twice.AllNodes().At(i).Record()) {
			t.Errorf("node %d differs", i)
		}
	}
}

func TestBuild_LastObservationWins(t *testing.T) {
	older := testutil.Post("1", "a", "Old", t0).Followers(10)
	newer := testutil.Post("2", "a", "New", t0.Add(time.Hour)).Followers(20)

	for _, order := range [][]*testutil.PostBuilder{{older, newer}, {newer, older}} {
		g := build(t, order...)
		n, _ := g.Node("a")
		if n.Handle() != "new" || n.Followers() != 20 {
			t.Errorf("node = %q/%d, want new/20", n.Handle(), n.Followers())
		}
		if !n.Observed().Equal(t0.Add(time.Hour)) {
			t.Errorf("observed = %v", n.Observed())
		}
	}
}

func TestBuild_RetweetUpdatesOriginalAuthorAtRetweetTime(t *testing.T) {
	orig := testutil.Post("1", "a", "A", t0).Followers(5)
	later := testutil.Post("2", "a", "A", t0.Add(time.Hour)).Followers(7)
	rt := testutil.Post("3", "b", "B", t0.Add(2*time.Hour)).
		Retweet(testutil.Post("1", "a", "A", t0).Followers(9))
	g := build(t, orig, later, rt)
	n, _ := g.Node("a")
	if n.Followers() != 9 {
		t.Errorf("followers = %d, want 9 from the retweet snapshot", n.Followers())
	}
	if !n.Observed().Equal(t0.Add(2 * time.Hour)) {
		t.Errorf("observed = %v", n.Observed())
	}
}

func TestBuild_ReplyStub(t *testing.T) {
	g := build(t, testutil.Post("1", "a", "A", t0).ReplyTo("99", "ghost", "GhostUser"))
	s, ok := g.Node("ghost")
	if !ok {
		t.Fatal("stub missing")
	}
	r := s.Record()
	if r.Handle != "ghostuser" || r.Followers != 0 || len(r.Labels) != 0 || !r.Created.Equal(graph.Epoch) {
		t.Errorf("stub = %+v", r)
	}
	if !s.IsAccount() {
		t.Error("stub should be an account node")
	}
}

func TestBuild_RetweetOfQuote(t *testing.T) {
	root := testutil.Post("1", "a", "A", t0)
	quote := testutil.Post("2", "b", "B", t0.Add(time.Minute)).Quote(root)
	rt := testutil.Post("3", "c", "C", t0.Add(2*time.Minute)).Retweet(quote)
	g := build(t, rt)
	want := []string{"b>c:retweet", "a>b:quote", "a>public:status"}
	if got := edgeKinds(g); !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestBuild_SkipsDeletedWithheldAndOutOfWindow(t *testing.T) {
	inner := testutil.Post("9", "z", "Z", t0)
	records := testutil.Records(
		testutil.Post("1", "a", "A", t0).Set("delete", map[string]any{"status": map[string]any{}}),
		testutil.Post("2", "b", "B", t0).Set("status_withheld", map[string]any{}),
		testutil.Post("3", "c", "C", t0.Add(-48*time.Hour)).Retweet(inner),
		testutil.Post("4", "d", "D", t0),
	)
	g, err := Build(records, Window{Start: t0.Add(-time.Hour), End: t0.Add(time.Hour)}, quiet)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := edgeKinds(g); !reflect.DeepEqual(got, []string{"d>public:status"}) {
		t.Errorf("edges = %v", got)
	}
	if _, ok := g.Node("z"); ok {
		t.Error("inner post of an out-of-window record should not be ingested")
	}
}

func TestBuild_BadTimestampIsFatal(t *testing.T) {
	records := testutil.Records(
		testutil.Post("1", "a", "A", t0),
		testutil.Post("2", "b", "B", t0).Set("created_at", "garbage"),
	)
	_, err := Build(records, noSpan, quiet)
	if !errors.Is(err, entity.ErrTimestamp) {
		t.Fatalf("err = %v, want ErrTimestamp", err)
	}
}

func TestBuild_MalformedRecordSkipped(t *testing.T) {
	noAuthor := testutil.Post("1", "a", "A", t0).Set("user", nil)
	g := build(t, noAuthor, testutil.Post("2", "b", "B", t0))
	if got := edgeKinds(g); !reflect.DeepEqual(got, []string{"b>public:status"}) {
		t.Errorf("edges = %v", got)
	}
}

func TestAddChunk_Unreadable(t *testing.T) {
	b := New(quiet)
	stats, err := b.AddChunk("chunk-1.json", []byte(`[{"id_str":`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.Unreadable {
		t.Error("expected unreadable chunk")
	}
	stats, err = b.AddChunk("chunk-2.json", testutil.Chunk(testutil.Post("1", "a", "A", t0), testutil.Post("1", "a", "A", t0)))
	if err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	if stats.Records != 2 || stats.Accepted != 1 || stats.Ignored != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestWithFilter(t *testing.T) {
	onlyEnglish := WithFilter(func(p entity.Post) bool { return p.Lang().Or("") == "en" })
	b := New(quiet, onlyEnglish)
	if ok, _ := b.Add(testutil.Post("1", "a", "A", t0).Set("lang", "de").Record()); ok {
		t.Error("filtered post accepted")
	}
	if ok, _ := b.Add(testutil.Post("2", "b", "B", t0).Record()); !ok {
		t.Error("english post rejected")
	}
}

func TestResume_SkipsKnownPosts(t *testing.T) {
	g := build(t, testutil.Post("1", "a", "A", t0.Add(time.Hour)).Followers(3))
	b := Resume(g, quiet)
	if ok, _ := b.Add(testutil.Post("1", "a", "A", t0.Add(time.Hour)).Record()); ok {
		t.Error("known post accepted again")
	}
	if ok, _ := b.Add(testutil.Post("2", "a", "A", t0).Followers(1).Record()); !ok {
		t.Fatal("new post rejected")
	}
	n, _ := g.Node("a")
	if n.Followers() != 3 {
		t.Errorf("followers = %d, older observation overwrote newer", n.Followers())
	}
	if g.Edges().Len() != 2 {
		t.Errorf("edges = %d, want 2", g.Edges().Len())
	}
}

func TestAdd_AfterRemoveRecreatesAccount(t *testing.T) {
	b := New(quiet)
	if _, err := b.Add(testutil.Post("1", "u1", "Una", t0.Add(48*time.Hour)).Record()); err != nil {
		t.Fatal(err)
	}
	if err := b.Graph().RemoveNode("u1"); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Add(testutil.Post("2", "u1", "Una", t0.Add(24*time.Hour)).Record()); err != nil {
		t.Fatalf("Add after remove: %v", err)
	}
	if _, ok := b.Graph().Node("u1"); !ok {
		t.Fatal("u1 not recreated")
	}
	if got := edgeKinds(b.Graph()); !reflect.DeepEqual(got, []string{"u1>public:status"}) {
		t.Errorf("edges = %v", got)
	}
}
