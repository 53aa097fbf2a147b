package app

import (
	"context"

	"github.com/l1jgo/fragments/internal/core/ecs"
)

// Signal is a coalescing wake target. Any number of wakes between two waits
// collapse into one, since a watcher always re-reads current state.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Wake marks the signal. It never blocks.
func (s *Signal) Wake() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C is readable once per coalesced wake.
func (s *Signal) C() <-chan struct{} { return s.ch }

// Wait blocks until the signal has been woken or ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch subscribes a new Signal to changes of components on entities matching
// filter. The world holds the signal weakly: the subscription lives as long
// as the caller keeps the returned Signal.
func (h *Handle) Watch(ctx context.Context, filter ecs.Filter, components ...ecs.ComponentID) (*Signal, ecs.SubscriptionID, error) {
	sig := NewSignal()
	var id ecs.SubscriptionID
	err := h.Read(ctx, func(w *ecs.World) {
		id = ecs.Subscribe(w, sig, filter, components...)
	})
	if err != nil {
		return nil, 0, err
	}
	return sig, id, nil
}

// Unwatch removes a subscription made with Watch.
func (h *Handle) Unwatch(id ecs.SubscriptionID) error {
	return h.Schedule(func(w *ecs.World) { w.Unsubscribe(id) })
}
