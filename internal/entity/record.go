// Package entity provides read-only views over raw post and account records.
//
// Records are schemaless decoded JSON objects. Every accessor tolerates a
// missing key and reports it as an absent Opt rather than failing; only
// timestamps are strict (see ErrTimestamp).
package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrTimestamp marks a missing or unparseable timestamp. It indicates a
// structurally broken export and callers are expected to abort on it.
var ErrTimestamp = errors.New("entity: bad timestamp")

// Record is one raw decoded JSON object.
type Record map[string]any

// DecodeChunk decodes a chunk, a JSON array of records. Numbers are kept as
// json.Number so 64-bit ids are not rounded.
func DecodeChunk(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out []Record
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("entity: decode chunk: %w", err)
	}
	return out, nil
}

// DecodeRecord decodes a single JSON object.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out Record
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("entity: decode record: %w", err)
	}
	return out, nil
}

// Has reports whether key is present, even if its value is null.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Field returns the raw value of key. Missing keys and JSON null are absent.
func (r Record) Field(key string) Opt[any] {
	v, ok := r[key]
	if !ok || v == nil {
		return None[any]()
	}
	return Some(v)
}

// String returns key as a string. Numbers are rendered in their JSON form.
func (r Record) String(key string) Opt[string] {
	switch v := r[key].(type) {
	case string:
		return Some(v)
	case json.Number:
		return Some(v.String())
	case float64:
		return Some(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return None[string]()
}

// Int returns key as an integer.
func (r Record) Int(key string) Opt[int64] {
	switch v := r[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return Some(n)
		}
		if f, err := v.Float64(); err == nil {
			return Some(int64(f))
		}
	case float64:
		return Some(int64(v))
	case int:
		return Some(int64(v))
	case int64:
		return Some(v)
	}
	return None[int64]()
}

// Bool returns key as a boolean.
func (r Record) Bool(key string) Opt[bool] {
	if v, ok := r[key].(bool); ok {
		return Some(v)
	}
	return None[bool]()
}

// Sub returns the nested object stored under key.
func (r Record) Sub(key string) Opt[Record] {
	switch v := r[key].(type) {
	case map[string]any:
		return Some(Record(v))
	case Record:
		return Some(v)
	}
	return None[Record]()
}

// List returns the nested objects of the array stored under key, skipping
// elements that are not objects.
func (r Record) List(key string) []Record {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// Time parses key as a timestamp. A missing or unparseable value yields an
// error wrapping ErrTimestamp.
func (r Record) Time(key string) (time.Time, error) {
	s, ok := r.String(key).Get()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s missing", ErrTimestamp, key)
	}
	return ParseTime(s)
}

// ParseTime parses the timestamp formats seen in post exports and returns the
// instant in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RubyDate, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrTimestamp, s, err)
	}
	return t.UTC(), nil
}

// JSON renders the record indented, for log context.
func (r Record) JSON() string {
	b, err := json.MarshalIndent(r, "", "   ")
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(r))
	}
	return string(b)
}
