package taskutil

import (
	"context"
	"errors"
	"testing"
)

func TestSignalManagerTriggerRunsCallbacksInReverseOrder(t *testing.T) {
	m := NewSignalManager()

	var order []int
	_ = m.On("shutdown", context.Background(), func(context.Context) error {
		order = append(order, 1)
		return nil
	})
	_ = m.On("shutdown", context.Background(), func(context.Context) error {
		order = append(order, 2)
		return nil
	})

	if err := m.Trigger("shutdown", context.Background()); err != nil {
		t.Fatalf("Trigger returned error: %v", err)
	}

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("expected callbacks to run in reverse registration order, got %v", order)
	}
}

func TestSignalManagerOnAfterTriggerRunsImmediately(t *testing.T) {
	m := NewSignalManager()
	if err := m.Trigger("shutdown", context.Background()); err != nil {
		t.Fatalf("Trigger returned error: %v", err)
	}

	ran := false
	err := m.On("shutdown", context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("On returned error: %v", err)
	}
	if !ran {
		t.Fatalf("expected callback registered after trigger to run immediately")
	}
}

func TestSignalManagerTriggerIsIdempotent(t *testing.T) {
	m := NewSignalManager()

	count := 0
	_ = m.On("shutdown", context.Background(), func(context.Context) error {
		count++
		return nil
	})

	_ = m.Trigger("shutdown", context.Background())
	_ = m.Trigger("shutdown", context.Background())

	if count != 1 {
		t.Fatalf("expected callback to run exactly once, ran %d times", count)
	}
}

func TestSignalManagerChildInheritsTrigger(t *testing.T) {
	parent := NewSignalManager()
	_ = parent.Trigger("shutdown", context.Background())

	child := parent.NewChild()

	ran := false
	_ = child.On("shutdown", context.Background(), func(context.Context) error {
		ran = true
		return nil
	})

	if !ran {
		t.Fatalf("expected child to inherit an already-triggered signal from its parent")
	}
}

func TestSignalManagerTriggerPropagatesToChildren(t *testing.T) {
	parent := NewSignalManager()
	child := parent.NewChild()

	ran := false
	_ = child.On("shutdown", context.Background(), func(context.Context) error {
		ran = true
		return nil
	})

	_ = parent.Trigger("shutdown", context.Background())

	if !ran {
		t.Fatalf("expected triggering the parent to propagate to the child")
	}
}

func TestSignalManagerContextCanceledOnTrigger(t *testing.T) {
	m := NewSignalManager()
	ctx := m.Context("shutdown")

	select {
	case <-ctx.Done():
		t.Fatalf("context should not be done before the signal is triggered")
	default:
	}

	_ = m.Trigger("shutdown", context.Background())

	select {
	case <-ctx.Done():
	default:
		t.Fatalf("context should be done once the signal is triggered")
	}
}

func TestSignalManagerWithErrorHandler(t *testing.T) {
	m := NewSignalManager()

	boom := errors.New("boom")
	var handled error

	reg := m.WithErrorHandler(func(_ context.Context, err error) error {
		handled = err
		return nil
	})

	_ = reg.On("shutdown", context.Background(), func(context.Context) error {
		return boom
	})

	if err := m.Trigger("shutdown", context.Background()); err != nil {
		t.Fatalf("expected error handler to swallow the error, got %v", err)
	}
	if handled != boom {
		t.Fatalf("expected error handler to observe the original error, got %v", handled)
	}
}
