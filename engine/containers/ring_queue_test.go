package containers

import (
	"errors"
	"testing"
)

func TestRingQueueOrder(t *testing.T) {
	q := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := q.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if v, _ := q.Peek(); v != 1 {
		t.Errorf("Peek() = %d, want 1", v)
	}
	for want := 1; want <= 3; want++ {
		got, err := q.Dequeue()
		if err != nil || got != want {
			t.Fatalf("Dequeue() = %d, %v; want %d", got, err, want)
		}
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestRingQueuePushOverwritesOldest(t *testing.T) {
	q := NewRingQueue[string](2)
	q.Push("a")
	q.Push("b")
	q.Push("c")

	var seen []string
	q.Each(func(s string) { seen = append(seen, s) })
	if len(seen) != 2 || seen[0] != "b" || seen[1] != "c" {
		t.Errorf("Each visited %v, want [b c]", seen)
	}
	if q.Len() != 2 || !q.IsFull() {
		t.Errorf("Len() = %d, IsFull() = %t", q.Len(), q.IsFull())
	}
}
