package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDiscoverSourceFilesFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	got, err := discoverSourceFiles(dir, []string{".go"})
	if err != nil {
		t.Fatalf("discoverSourceFiles: %v", err)
	}

	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)

	want := []string{"a.go", "b.go"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("got %v, want %v", names, want)
	}
}

func TestDiscoverSourceFilesMatchesEverythingWhenNoExtensionsGiven(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing README: %v", err)
	}

	got, err := discoverSourceFiles(dir, nil)
	if err != nil {
		t.Fatalf("discoverSourceFiles: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d files, want 1", len(got))
	}
}

func TestMatchesExtensionIsCaseInsensitive(t *testing.T) {
	if !matchesExtension("foo.GO", []string{".go"}) {
		t.Fatalf("expected .GO to match .go")
	}
	if matchesExtension("foo.py", []string{".go"}) {
		t.Fatalf("expected .py not to match .go")
	}
}
