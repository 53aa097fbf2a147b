package event

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Push once the queue has been closed.
var ErrClosed = errors.New("event queue closed")

// Queue is a double-buffered, unbounded, multi-producer single-consumer event
// queue. Producers append to the back buffer; the consumer swaps buffers and
// drains everything queued so far in FIFO order.
type Queue struct {
	mu     sync.Mutex
	front  []Event
	back   []Event
	ready  chan struct{} // capacity 1, signalled when back becomes non-empty
	closed bool
}

func NewQueue() *Queue {
	return &Queue{
		front: make([]Event, 0, 64),
		back:  make([]Event, 0, 64),
		ready: make(chan struct{}, 1),
	}
}

// Push queues an event. It never blocks.
func (q *Queue) Push(ev Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.back = append(q.back, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Wait blocks until at least one event is queued or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		n := len(q.back)
		q.mu.Unlock()
		if n > 0 {
			return nil
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Swap rotates back→front and returns the drained events. The returned slice
// is only valid until the next call to Swap.
func (q *Queue) Swap() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.front)
	q.front, q.back = q.back, q.front[:0]
	return q.front
}

// Close rejects further pushes. Events already queued can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued, undrained events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.back)
}
