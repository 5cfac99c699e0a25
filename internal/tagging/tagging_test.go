package tagging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse_YAML(t *testing.T) {
	input := []byte("Left:\n  - Alice\n  - '@carol'\n  - alice\nRight: [bob]\n")
	tg, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tg["Left"]; len(got) != 2 || got[0] != "alice" || got[1] != "carol" {
		t.Errorf("Left = %v, want [alice carol]", got)
	}
	if got := tg["Right"]; len(got) != 1 || got[0] != "bob" {
		t.Errorf("Right = %v, want [bob]", got)
	}
}

func TestParse_JSON(t *testing.T) {
	tg, err := Parse([]byte(`{"Left": ["ALICE"], "Right": []}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tg["Left"][0] != "alice" {
		t.Errorf("Left = %v", tg["Left"])
	}
	if _, ok := tg["Right"]; !ok {
		t.Error("empty category dropped")
	}
}

func TestParse_ReservedCategory(t *testing.T) {
	for _, input := range []string{"unknown: [a]", "inconsistent: [a]", "'': [a]"} {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("%q: expected error", input)
		}
	}
}

func TestParse_DuplicateHandle(t *testing.T) {
	_, err := Parse([]byte("Left: [alice]\nRight: [Alice]\n"))
	if !errors.Is(err, ErrDuplicateHandle) {
		t.Errorf("err = %v, want ErrDuplicateHandle", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("- just\n- a list\n")); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagging.yaml")
	if err := os.WriteFile(path, []byte("Left: [alice]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tg["Left"]) != 1 {
		t.Errorf("tagging = %v", tg)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
