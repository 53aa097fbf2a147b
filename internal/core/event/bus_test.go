package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/l1jgo/fragments/internal/core/ecs"
)

func TestSwapDrainsInOrder(t *testing.T) {
	q := NewQueue()
	for i := 1; i <= 3; i++ {
		if err := q.Push(Despawn{Entity: ecs.EntityID(i)}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	got := q.Swap()
	want := []Event{Despawn{Entity: 1}, Despawn{Entity: 2}, Despawn{Entity: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
	if len(q.Swap()) != 0 {
		t.Fatal("second swap should be empty")
	}
}

func TestPushAfterCloseFails(t *testing.T) {
	q := NewQueue()
	_ = q.Push(Exit{})
	q.Close()
	if err := q.Push(Exit{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if n := len(q.Swap()); n != 1 {
		t.Fatalf("queued events should survive close, got %d", n)
	}
}

func TestWaitWakesOnPush(t *testing.T) {
	q := NewQueue()
	done := make(chan error, 1)
	go func() { done <- q.Wait(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	_ = q.Push(Exit{})
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Push")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestConcurrentProducersLoseNothing(t *testing.T) {
	q := NewQueue()
	const producers, each = 8, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				_ = q.Push(Exit{})
			}
		}()
	}
	wg.Wait()
	if n := len(q.Swap()); n != producers*each {
		t.Fatalf("expected %d events, got %d", producers*each, n)
	}
}
