package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreAppendAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	s := &Store{Path: path}

	if got, err := s.Load(); err != nil || len(got) != 0 {
		t.Fatalf("Load on missing file: got=%v err=%v", got, err)
	}
	if err := s.Append("   ", "F1"); err != nil {
		t.Fatalf("Append whitespace: %v", err)
	}
	for _, text := range []string{"one", "two", "two"} {
		if err := s.Append(text, "F1"); err != nil {
			t.Fatalf("Append %s: %v", text, err)
		}
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Text != "one" || got[1].Text != "two" || got[1].Flow != "F1" {
		t.Fatalf("Load = %#v", got)
	}
}

func TestStoreSkipsGarbageAndLimits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join([]string{
		`{"text":"one","ts":"2025-01-01T00:00:00Z"}`,
		`{not json}`,
		`{"text":"  ","ts":"2025-01-01T00:00:00Z"}`,
		`{"text":"two","ts":"2025-01-01T00:00:00Z"}`,
		`{"text":"three","ts":"2025-01-01T00:00:00Z"}`,
		"",
	}, "\n")), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := &Store{Path: path, Limit: 2}
	got, err := s.Texts()
	if err != nil {
		t.Fatalf("Texts: %v", err)
	}
	want := []string{"two", "three"}
	if len(got) != len(want) {
		t.Fatalf("Texts = %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Texts[%d]=%q want=%q", i, got[i], want[i])
		}
	}
}

func TestStoreErrors(t *testing.T) {
	t.Parallel()

	var s *Store
	if err := s.Append("hi", ""); err == nil {
		t.Fatalf("expected error for nil store")
	}
	s = &Store{}
	if err := s.Append("hi", ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := s.Load(); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
