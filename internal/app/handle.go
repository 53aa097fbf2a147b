package app

import (
	"context"
	"fmt"

	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/core/event"
	"go.uber.org/zap"
)

// Handle is the shareable reference to a running app. It can be used from any
// goroutine to queue events or to run reads on the dispatcher.
type Handle struct {
	queue   *event.Queue
	effects *Effects
	nodes   *nodeTable
	done    <-chan struct{}
	log     *zap.Logger
}

// Enqueue queues ev for the dispatcher. It fails with ErrClosed once the
// dispatcher has exited.
func (h *Handle) Enqueue(ev event.Event) error {
	return h.queue.Push(ev)
}

// Exit asks the dispatcher to stop.
func (h *Handle) Exit() error {
	return h.Enqueue(event.Exit{})
}

// Despawn removes id and its subtree.
func (h *Handle) Despawn(id ecs.EntityID) error {
	if n, ok := h.nodes.get(id); ok {
		n.advance(StateDespawning)
	}
	return h.Enqueue(event.Despawn{Entity: id})
}

// Done is closed when the dispatcher has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Logger returns the app logger.
func (h *Handle) Logger() *zap.Logger { return h.log }

// Read runs fn on the dispatcher with exclusive access to the world and waits
// for it to finish. fn must not call back into Read or Put; it would wait on
// itself.
func (h *Handle) Read(ctx context.Context, fn func(w *ecs.World)) error {
	done := make(chan struct{})
	err := h.Enqueue(event.RunShared{Fn: func(w *ecs.World) {
		defer close(done)
		fn(w)
	}})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		// The closure may have run in the final batch.
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Schedule queues fn to run on the dispatcher without waiting.
func (h *Handle) Schedule(fn func(w *ecs.World)) error {
	return h.Enqueue(event.RunShared{Fn: fn})
}

// Spawn creates a new root fragment, or a child of parent when parent is
// non-zero. It blocks until the dispatcher has created the entity.
func (h *Handle) Spawn(ctx context.Context, parent ecs.EntityID) (*Fragment, error) {
	return h.spawn(ctx, parent)
}

func (h *Handle) spawn(ctx context.Context, parent ecs.EntityID) (*Fragment, error) {
	reply := make(chan event.SpawnResult, 1)
	if err := h.Enqueue(event.SpawnEntity{Parent: parent, Reply: reply}); err != nil {
		return nil, err
	}
	var res event.SpawnResult
	select {
	case res = <-reply:
	case <-ctx.Done():
		// Nobody will own the entity; remove it once it exists.
		go func() {
			select {
			case r := <-reply:
				if r.Err == nil {
					_ = h.Despawn(r.ID)
				}
			case <-h.done:
			}
		}()
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrClosed
	}
	if res.Err != nil {
		return nil, res.Err
	}

	n, ok := h.nodes.get(res.ID)
	if !ok {
		return nil, fmt.Errorf("spawn %s: %w", res.ID, ErrDespawned)
	}
	f := &Fragment{
		id:      res.ID,
		h:       h,
		node:    n,
		staging: &staging{buf: ecs.NewBuffer()},
	}
	f.effect = h.CreateEffect(f.staging.flush(res.ID))
	if !h.nodes.bindEffect(n, f.effect) {
		f.effect.Close()
		return nil, fmt.Errorf("spawn %s: %w", res.ID, ErrDespawned)
	}
	return f, nil
}

// despawnNow removes id and its subtree and releases every removed node.
// Dispatcher only.
func (h *Handle) despawnNow(w *ecs.World, id ecs.EntityID) ([]ecs.EntityID, error) {
	removed, err := w.Despawn(id)
	if err != nil {
		// Already gone from the world; make sure its node is released too.
		h.releaseAll([]ecs.EntityID{id})
		return nil, err
	}
	h.releaseAll(removed)
	return removed, nil
}

// clearNow despawns every child of id and drops all of id's components except
// the widget tag and the parent relation. Dispatcher only.
func (h *Handle) clearNow(w *ecs.World, id ecs.EntityID) error {
	if !w.Alive(id) {
		return fmt.Errorf("clear %s: %w", id, ecs.ErrNotFound)
	}
	h.releaseAll(w.DespawnChildren(id))
	return w.Retain(id, func(c ecs.ComponentID) bool {
		return c == ecs.WidgetTag.ID() || c == ecs.ChildOf.ID()
	})
}

func (h *Handle) releaseAll(ids []ecs.EntityID) {
	for _, id := range ids {
		h.nodes.release(id)
	}
}
