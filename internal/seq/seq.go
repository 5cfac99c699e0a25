// Package seq is a small ordered collection algebra. A Seq is an immutable,
// duplicate-permitting sequence; every operation returns a new value and
// never mutates its receiver.
package seq

import (
	"math/rand/v2"
	"reflect"
	"slices"
)

// Seq is an ordered sequence of T.
type Seq[T any] struct {
	items []T
}

// Of builds a sequence from items. The slice is copied.
func Of[T any](items ...T) Seq[T] {
	return Seq[T]{items: slices.Clone(items)}
}

// From adopts items without copying. Callers must not mutate items after.
func From[T any](items []T) Seq[T] { return Seq[T]{items: items} }

func (s Seq[T]) Len() int { return len(s.items) }

// Items returns a copy of the underlying items.
func (s Seq[T]) Items() []T { return slices.Clone(s.items) }

// At returns the i-th item.
func (s Seq[T]) At(i int) T { return s.items[i] }

// First returns the first item, if any.
func (s Seq[T]) First() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[0], true
}

// Filter keeps the items for which keep returns true.
func (s Seq[T]) Filter(keep func(T) bool) Seq[T] {
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return Seq[T]{items: out}
}

// Count returns how many items satisfy pred.
func (s Seq[T]) Count(pred func(T) bool) int {
	n := 0
	for _, it := range s.items {
		if pred(it) {
			n++
		}
	}
	return n
}

// Concat appends other after s.
func (s Seq[T]) Concat(other Seq[T]) Seq[T] {
	out := make([]T, 0, len(s.items)+len(other.items))
	out = append(out, s.items...)
	return Seq[T]{items: append(out, other.items...)}
}

// Sample draws n items uniformly without replacement. n larger than the
// sequence yields a shuffled copy of the whole sequence.
func (s Seq[T]) Sample(n int) Seq[T] {
	if n <= 0 {
		return Seq[T]{}
	}
	out := slices.Clone(s.items)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n < len(out) {
		out = out[:n]
	}
	return Seq[T]{items: out}
}

// SampleFraction draws round(p*Len) items, p in [0,1].
func (s Seq[T]) SampleFraction(p float64) Seq[T] {
	p = max(0, min(1, p))
	return s.Sample(int(p*float64(len(s.items)) + 0.5))
}

// Map applies f to every item.
func Map[T, U any](s Seq[T], f func(T) U) Seq[U] {
	out := make([]U, len(s.items))
	for i, it := range s.items {
		out[i] = f(it)
	}
	return Seq[U]{items: out}
}

// Flatten flattens one level of slices.
func Flatten[T any](s Seq[[]T]) Seq[T] {
	var out []T
	for _, it := range s.items {
		out = append(out, it...)
	}
	return Seq[T]{items: out}
}

// FlattenSeq flattens one level of nested sequences.
func FlattenSeq[T any](s Seq[Seq[T]]) Seq[T] {
	var out []T
	for _, it := range s.items {
		out = append(out, it.items...)
	}
	return Seq[T]{items: out}
}

// Unique drops repeated items. The first occurrence is kept, although
// callers should not rely on the order.
func Unique[T comparable](s Seq[T]) Seq[T] {
	seen := make(map[T]struct{}, len(s.items))
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return Seq[T]{items: out}
}

// Group partitions s by key. Groups appear in order of first key occurrence
// and keep input order inside.
func Group[T any, K comparable](s Seq[T], key func(T) K) *Ordered[K, Seq[T]] {
	out := NewOrdered[K, Seq[T]]()
	for _, it := range s.items {
		k := key(it)
		g, _ := out.Get(k)
		g.items = append(g.items, it)
		out.Set(k, g)
	}
	return out
}

// Reduce folds s left to right with op. It reports false on an empty
// sequence.
func Reduce[T any](s Seq[T], op func(T, T) T) (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	acc := s.items[0]
	for _, it := range s.items[1:] {
		acc = op(acc, it)
	}
	return acc, true
}

type presenter interface{ Present() bool }

// Compact drops nil items and absent optionals.
func Compact[T any](s Seq[T]) Seq[T] {
	return s.Filter(func(it T) bool {
		if p, ok := any(it).(presenter); ok {
			return p.Present()
		}
		v := reflect.ValueOf(any(it))
		if !v.IsValid() {
			return false
		}
		switch v.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return !v.IsNil()
		}
		return true
	})
}

// Without drops every item equal to one of vals.
func Without[T comparable](s Seq[T], vals ...T) Seq[T] {
	return s.Filter(func(it T) bool { return !slices.Contains(vals, it) })
}
