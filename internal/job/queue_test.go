package job

import (
	"context"
	"testing"
	"time"
)

func TestQueue_SubmitAndNext(t *testing.T) {
	q := NewQueue(2)
	a := NewWithID("a", DefaultParams("1"), "/d", 0)
	b := NewWithID("b", DefaultParams("1"), "/d", 0)
	c := NewWithID("c", DefaultParams("1"), "/d", 0)

	if err := q.Submit(a); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := q.Submit(b); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := q.Submit(c); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if q.Len() != 2 || q.Cap() != 2 {
		t.Errorf("Len/Cap = %d/%d, want 2/2", q.Len(), q.Cap())
	}

	got, err := q.Next(context.Background())
	if err != nil || got != a {
		t.Fatalf("Next() = %v, %v; want job a", got, err)
	}

	// Dequeuing frees a slot.
	if err := q.Submit(c); err != nil {
		t.Errorf("Submit() after dequeue error = %v", err)
	}
}

func TestQueue_NextRespectsContext(t *testing.T) {
	q := NewQueue(0)
	if q.Cap() != DefaultQueueCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultQueueCapacity, q.Cap())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := q.Next(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}
