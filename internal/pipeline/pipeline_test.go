package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewRejectsInvalidWorkerCount(t *testing.T) {
	for _, n := range []int{0, -1, -5} {
		_, err := New(func(int) int { return 0 }, func(int) {}, n)
		if !errors.Is(err, ErrInvalidWorkerCount) {
			t.Fatalf("New(%d workers): expected ErrInvalidWorkerCount, got %v", n, err)
		}
	}
}

func TestEmptyPipelineTerminatesCleanly(t *testing.T) {
	p, err := New(func(int) int { return 0 }, func(int) {}, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.End()

	done := make(chan struct{})
	go func() {
		p.Join()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Join did not return for an empty pipeline")
	}
}

func TestAddAfterEndFails(t *testing.T) {
	p, err := New(func(int) int { return 0 }, func(int) {}, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.End()
	if err := p.Add(1); !errors.Is(err, ErrPipelineEnded) {
		t.Fatalf("expected ErrPipelineEnded, got %v", err)
	}
	p.Join()
}

// TestPreservesOrderUnderSkew mirrors the upstream ordering test: some
// inputs sleep inside the transform so that workers finish out of
// submission order, and the consumer must still see results in the order
// items were added.
func TestPreservesOrderUnderSkew(t *testing.T) {
	transform := func(i int) int {
		if i == 7 {
			time.Sleep(30 * time.Millisecond)
		}
		return i * 2
	}

	var mu sync.Mutex
	var got []int

	p, err := New(transform, func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	inputs := []int{4, 7, 2, 4, 1, 9}
	for _, v := range inputs {
		if err := p.Add(v); err != nil {
			t.Fatalf("Add(%d): %v", v, err)
		}
	}
	p.End()
	p.Join()

	want := make([]int, len(inputs))
	for i, v := range inputs {
		want[i] = v * 2
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// TestTransformPanicDropsOnlyThatItem mirrors the upstream "exception on
// one item" test: inputs [4, 7, 2, 4], transform panics on input 2, and the
// expected output drops only that item while preserving order of the rest.
func TestTransformPanicDropsOnlyThatItem(t *testing.T) {
	label := func(i int) string {
		return string(rune('a' + i))
	}

	transform := func(i int) string {
		if i == 2 {
			panic("boom")
		}
		return label(i)
	}

	var mu sync.Mutex
	var got []string

	var dropped []string
	p, err := New(transform, func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}, 3, WithDropHook(func(reason string) {
		mu.Lock()
		dropped = append(dropped, reason)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, v := range []int{4, 7, 2, 4} {
		if err := p.Add(v); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	p.End()
	p.Join()

	mu.Lock()
	defer mu.Unlock()

	want := []string{label(4), label(7), label(4)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if len(dropped) != 1 || dropped[0] != "transform" {
		t.Fatalf("expected exactly one transform drop, got %v", dropped)
	}
}

// TestConsumerPanicDropsOnlyThatItem mirrors the upstream consumer-exception
// test: inputs [4, 7, 2, 4], the consumer panics on the item corresponding
// to input 7, and only that item's result is dropped.
func TestConsumerPanicDropsOnlyThatItem(t *testing.T) {
	label := func(i int) string {
		return string(rune('a' + i))
	}

	var mu sync.Mutex
	var got []string
	var dropped []string

	p, err := New(label, func(v string) {
		if v == label(7) {
			panic("boom")
		}
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}, 3, WithDropHook(func(reason string) {
		mu.Lock()
		dropped = append(dropped, reason)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, v := range []int{4, 7, 2, 4} {
		if err := p.Add(v); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	p.End()
	p.Join()

	mu.Lock()
	defer mu.Unlock()

	want := []string{label(4), label(2), label(4)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if len(dropped) != 1 || dropped[0] != "consume" {
		t.Fatalf("expected exactly one consume drop, got %v", dropped)
	}
}

func TestSingleWorkerConsumerDoesNotBlockWorker(t *testing.T) {
	var mu sync.Mutex
	var got []int

	p, err := New(func(i int) int { return i }, func(v int) {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}, 1, WithWindow(8))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := p.Add(i); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	p.End()
	p.Join()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 10 {
		t.Fatalf("expected 10 results, got %d", len(got))
	}
	for i := range got {
		if got[i] != i {
			t.Fatalf("out of order: got %v", got)
		}
	}
}
