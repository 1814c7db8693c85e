package deps

import (
	"context"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	a, b := NPM("a", "1.0.0"), NPM("b", "1.0.0")
	q.Push(a)
	q.Push(b)

	ctx := context.Background()
	if got, ok := q.Pop(ctx); !ok || got != a {
		t.Fatalf("Pop = %v, %v; want %v", got, ok, a)
	}
	if got, ok := q.Pop(ctx); !ok || got != b {
		t.Fatalf("Pop = %v, %v; want %v", got, ok, b)
	}
	if q.InFlight() != 2 {
		t.Errorf("InFlight = %d, want 2", q.InFlight())
	}
}

func TestQueueTerminatesWhenIdle(t *testing.T) {
	q := NewQueue()
	q.Push(NPM("a", "1.0.0"))

	ctx := context.Background()
	id, ok := q.Pop(ctx)
	if !ok {
		t.Fatal("expected an identity")
	}

	done := make(chan bool)
	go func() {
		_, ok := q.Pop(ctx)
		done <- ok
	}()

	// The second Pop must block while the first identity is in flight.
	select {
	case <-done:
		t.Fatal("Pop returned while work was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	q.Done(id)
	select {
	case ok := <-done:
		if ok {
			t.Error("Pop after termination should report false")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released after termination")
	}
}

func TestQueueChildPushedBeforeDone(t *testing.T) {
	q := NewQueue()
	parent, child := NPM("parent", "1.0.0"), NPM("child", "1.0.0")
	q.Push(parent)

	ctx := context.Background()
	got, _ := q.Pop(ctx)
	q.Push(child)
	q.Done(got)

	next, ok := q.Pop(ctx)
	if !ok || next != child {
		t.Fatalf("Pop = %v, %v; want child", next, ok)
	}
	q.Done(next)
	if _, ok := q.Pop(ctx); ok {
		t.Error("queue should be terminated")
	}
}

func TestQueueContextCancel(t *testing.T) {
	q := NewQueue()
	q.Push(NPM("a", "1.0.0"))
	ctx, cancel := context.WithCancel(context.Background())
	if _, ok := q.Pop(ctx); !ok {
		t.Fatal("expected an identity")
	}

	done := make(chan bool)
	go func() {
		_, ok := q.Pop(ctx)
		done <- ok
	}()
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop should report false after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not observe cancellation")
	}
}

func TestQueueCloseKeepsPending(t *testing.T) {
	q := NewQueue()
	q.Push(NPM("a", "1.0.0"))
	q.Push(NPM("b", "1.0.0"))
	q.Close()

	if q.Push(NPM("c", "1.0.0")) {
		t.Error("Push after Close should report false")
	}
	if _, ok := q.Pop(context.Background()); ok {
		t.Error("Pop after Close should report false")
	}
	if pending := q.Drain(); len(pending) != 2 {
		t.Errorf("Drain = %v, want 2 pending", pending)
	}
	if q.Len() != 0 {
		t.Errorf("Len after Drain = %d", q.Len())
	}
}
