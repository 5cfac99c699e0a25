package seq

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
	"testing"
)

func TestFilterMap_DoNotMutateSource(t *testing.T) {
	src := Of(1, 2, 3, 4)
	even := src.Filter(func(n int) bool { return n%2 == 0 })
	doubled := Map(even, func(n int) int { return n * 2 })
	if got := doubled.Items(); !slices.Equal(got, []int{4, 8}) {
		t.Errorf("doubled = %v, want [4 8]", got)
	}
	if got := src.Items(); !slices.Equal(got, []int{1, 2, 3, 4}) {
		t.Errorf("source mutated: %v", got)
	}
}

func TestFlattenUniqueWithout(t *testing.T) {
	s := Flatten(Of([]string{"a", "b"}, []string{"b", "c"}, nil))
	if s.Len() != 4 {
		t.Fatalf("len = %d, want 4", s.Len())
	}
	u := Unique(s)
	if u.Len() != 3 {
		t.Errorf("unique len = %d, want 3", u.Len())
	}
	if got := Without(u, "b").Items(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("without = %v", got)
	}
	nested := FlattenSeq(Of(Of(1), Of(2, 3)))
	if got := nested.Items(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("flattenSeq = %v", got)
	}
}

func TestGroup_OrderAndMembers(t *testing.T) {
	g := Group(Of("apple", "bob", "avocado", "cat", "bee"), func(s string) byte { return s[0] })
	if got := g.Keys(); !slices.Equal(got, []byte{'a', 'b', 'c'}) {
		t.Errorf("keys = %q", got)
	}
	b, _ := g.Get('b')
	if got := b.Items(); !slices.Equal(got, []string{"bob", "bee"}) {
		t.Errorf("group b = %v", got)
	}
}

func TestReduce(t *testing.T) {
	sum, ok := Reduce(Of(1, 2, 3), func(a, b int) int { return a + b })
	if !ok || sum != 6 {
		t.Errorf("sum = %d, %v", sum, ok)
	}
	if _, ok := Reduce(Of[int](), func(a, b int) int { return a + b }); ok {
		t.Error("expected false on empty")
	}
}

type opt struct{ ok bool }

func (o opt) Present() bool { return o.ok }

func TestCompact(t *testing.T) {
	x := 1
	ptrs := Compact(Of(&x, nil, &x))
	if ptrs.Len() != 2 {
		t.Errorf("ptr compact len = %d, want 2", ptrs.Len())
	}
	opts := Compact(Of(opt{true}, opt{false}))
	if opts.Len() != 1 {
		t.Errorf("opt compact len = %d, want 1", opts.Len())
	}
	anys := Compact(Of[any](nil, "a", 0))
	if anys.Len() != 2 {
		t.Errorf("any compact len = %d, want 2", anys.Len())
	}
}

func TestSample(t *testing.T) {
	s := Of(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	got := s.Sample(4)
	if got.Len() != 4 || Unique(got).Len() != 4 {
		t.Errorf("sample = %v", got.Items())
	}
	if s.Sample(50).Len() != 10 {
		t.Error("oversized sample should return whole sequence")
	}
	if s.SampleFraction(0.5).Len() != 5 {
		t.Errorf("fraction len = %d, want 5", s.SampleFraction(0.5).Len())
	}
}

func TestFrequencies_StableDescending(t *testing.T) {
	f := Counts(Of("c", "a", "b", "a", "b", "d"))
	if got := f.Keys(); !slices.Equal(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("keys = %v, want [a b c d]", got)
	}
}

func TestFrequencies_TopKeepsTies(t *testing.T) {
	f := Counts(Of("a", "a", "b", "b", "c"), Top(1))
	if got := f.Keys(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("keys = %v, want [a b]", got)
	}
	if v, _ := f.Get("a"); v != 2 {
		t.Errorf("a = %v, want 2", v)
	}
}

func TestFrequencies_TopLargerThanDistinct(t *testing.T) {
	f := Counts(Of("a", "b"), Top(10))
	if f.Len() != 2 {
		t.Errorf("len = %d, want 2", f.Len())
	}
}

func TestFrequencies_Normalize(t *testing.T) {
	f := Counts(Of("a", "a", "a", "b"), Normalize())
	a, _ := f.Get("a")
	b, _ := f.Get("b")
	if a != 0.75 || b != 0.25 {
		t.Errorf("a = %v, b = %v", a, b)
	}
}

func TestFrequencies_Percentile(t *testing.T) {
	// counts 4,3,2,1 -> 50th percentile = 2.5
	f := Counts(Of("a", "a", "a", "a", "b", "b", "b", "c", "c", "d"), Percentile(50))
	if got := f.Keys(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("keys = %v, want [a b]", got)
	}
}

func TestFrequencies_PercentileNaNKeepsAll(t *testing.T) {
	f := Counts(Of("a", "a", "b"), Percentile(math.NaN()))
	if got := f.Keys(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("keys = %v, want [a b]", got)
	}
}

func TestFrequencies_BothThresholds(t *testing.T) {
	// top 3 -> threshold 2, percentile 75 -> 3.25; both must pass.
	f := Counts(Of("a", "a", "a", "a", "b", "b", "b", "c", "c", "d"), Top(3), Percentile(75))
	if got := f.Keys(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("keys = %v, want [a]", got)
	}
}

func TestFrequencies_KeyFunc(t *testing.T) {
	f := Frequencies(Of("Go", "go", "Rust"), strings.ToLower)
	if v, _ := f.Get("go"); v != 2 {
		t.Errorf("go = %v, want 2", v)
	}
}

func TestOrdered_MarshalJSON(t *testing.T) {
	o := NewOrdered[string, int]()
	o.Set("z", 1)
	o.Set("a", 2)
	o.Set("z", 3)
	b, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"z":3,"a":2}` {
		t.Errorf("json = %s", b)
	}
	n := NewOrdered[int, string]()
	n.Set(7, "x")
	b, _ = json.Marshal(n)
	if string(b) != `{"7":"x"}` {
		t.Errorf("json = %s", b)
	}
}
