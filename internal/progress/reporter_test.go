package progress

import (
	"testing"
)

func TestTrackerLineWithKnownTotal(t *testing.T) {
	r := NewReporter(0, nil)
	tr := r.Track("indexing", 4)
	tr.OneDone()
	tr.OneDone()

	got := tr.line()
	want := "indexing finished 2 of 4 (50%) items"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTrackerLineWithUnknownTotal(t *testing.T) {
	r := NewReporter(0, nil)
	tr := r.Track("scanning", -1)
	tr.Done(3)

	got := tr.line()
	want := "scanning finished 3 items"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTrackerLineAppendsDoneSuffixAfterClose(t *testing.T) {
	r := NewReporter(0, nil)
	tr := r.Track("parsing", 2)
	tr.Done(2)
	tr.Close()

	got := tr.line()
	want := "parsing finished 2 of 2 (100%) items and is done"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTickRemovesFinishedTrackerAfterOneLine(t *testing.T) {
	r := NewReporter(0, nil)
	tr := r.Track("cleanup", -1)
	tr.Close()

	r.tick()

	r.mu.Lock()
	n := len(r.trackers)
	r.mu.Unlock()

	if n != 0 {
		t.Fatalf("expected tracker to be removed after its final tick, got %d remaining", n)
	}
}

func TestTickKeepsUnfinishedTracker(t *testing.T) {
	r := NewReporter(0, nil)
	_ = r.Track("long-running", -1)

	r.tick()

	r.mu.Lock()
	n := len(r.trackers)
	r.mu.Unlock()

	if n != 1 {
		t.Fatalf("expected unfinished tracker to remain registered, got %d", n)
	}
}
