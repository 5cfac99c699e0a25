// Package tagging reads the seed file that assigns initial categories to
// account handles.
//
// The file maps a category to a list of handles. YAML and JSON are both
// accepted:
//
//	Left:  [alice, carol]
//	Right: [bob]
package tagging

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/twigraph/internal/graph"
	"github.com/starford/twigraph/internal/propagate"
)

// ErrDuplicateHandle is returned when a handle is listed under more than
// one category.
var ErrDuplicateHandle = errors.New("tagging: handle listed under several categories")

var reserved = []any{graph.Unknown, graph.Inconsistent}

// Load reads and parses the tagging file at path.
func Load(path string) (propagate.Tagging, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tagging: read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("tagging: %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a tagging document, lowercases and dedupes every handle
// and validates the result.
func Parse(data []byte) (propagate.Tagging, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	t := make(propagate.Tagging, len(raw))
	owner := make(map[string]string)
	for category, handles := range raw {
		category = strings.TrimSpace(category)
		if err := validation.Validate(category,
			validation.Required,
			validation.NotIn(reserved...).Error("is a reserved category"),
		); err != nil {
			return nil, fmt.Errorf("category %q: %w", category, err)
		}

		var out []string
		for _, h := range handles {
			h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
			if h == "" || slices.Contains(out, h) {
				continue
			}
			if prev, ok := owner[h]; ok && prev != category {
				return nil, fmt.Errorf("%w: %q in %q and %q", ErrDuplicateHandle, h, prev, category)
			}
			owner[h] = category
			out = append(out, h)
		}
		t[category] = append(t[category], out...)
	}
	return t, nil
}
