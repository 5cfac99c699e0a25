package seq

import (
	"bytes"
	"encoding/json"
	"iter"
)

// Ordered is an insertion-ordered map. It marshals to a JSON object with
// keys in insertion order.
type Ordered[K comparable, V any] struct {
	keys []K
	vals map[K]V
}

func NewOrdered[K comparable, V any]() *Ordered[K, V] {
	return &Ordered[K, V]{vals: make(map[K]V)}
}

// Set inserts or replaces key. A replaced key keeps its position.
func (o *Ordered[K, V]) Set(key K, val V) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = val
}

func (o *Ordered[K, V]) Get(key K) (V, bool) {
	v, ok := o.vals[key]
	return v, ok
}

func (o *Ordered[K, V]) Len() int { return len(o.keys) }

// Keys returns the keys in order.
func (o *Ordered[K, V]) Keys() []K {
	out := make([]K, len(o.keys))
	copy(out, o.keys)
	return out
}

// All iterates entries in order.
func (o *Ordered[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range o.keys {
			if !yield(k, o.vals[k]) {
				return
			}
		}
	}
}

func (o *Ordered[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalKey(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalKey renders a key as a JSON string, quoting non-string keys.
func marshalKey(k any) ([]byte, error) {
	if s, ok := k.(string); ok {
		return json.Marshal(s)
	}
	b, err := json.Marshal(k)
	if err != nil {
		return nil, err
	}
	if len(b) > 0 && b[0] == '"' {
		return b, nil
	}
	return json.Marshal(string(b))
}
