package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/l1jgo/fragments/internal/core/ecs"
)

// Fragment is the handle a widget uses to operate on its own node of the tree.
// All writes are buffered locally and applied by the dispatcher.
//
// Once the fragment starts despawning, Write, Update, Read, Attach and Put
// fail with ErrDespawned.
type Fragment struct {
	id      ecs.EntityID
	h       *Handle
	node    *node
	staging *staging
	effect  *EffectHandle
	scope   scope
}

// pending is an attached child as seen by its parent's scope.
type pending interface {
	Done() <-chan struct{}
	Cancel()
}

// scope records the children attached through a fragment. When the widget
// mounted on the fragment returns, children still running are cancelled.
type scope struct {
	mu       sync.Mutex
	children []pending
}

func (s *scope) add(p pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.children[:0]
	for _, c := range s.children {
		select {
		case <-c.Done():
		default:
			live = append(live, c)
		}
	}
	s.children = append(live, p)
}

// release cancels every child that has not finished and reports how many.
func (s *scope) release() int {
	s.mu.Lock()
	children := s.children
	s.children = nil
	s.mu.Unlock()
	n := 0
	for _, c := range children {
		select {
		case <-c.Done():
		default:
			c.Cancel()
			n++
		}
	}
	return n
}

// staging holds the writes released by guards and not yet applied. The flush
// effect captures the staging area and the entity id, never the Fragment.
type staging struct {
	mu  sync.Mutex
	buf *ecs.Buffer
}

func (s *staging) merge(b *ecs.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Merge(b)
}

func (s *staging) flush(id ecs.EntityID) Effect {
	return func(w *ecs.World) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.buf.Len() == 0 {
			return nil
		}
		return s.buf.Apply(w, id)
	}
}

func (f *Fragment) ID() ecs.EntityID { return f.id }

// Handle returns the app handle, usable from any goroutine.
func (f *Fragment) Handle() *Handle { return f.h }

// Context is cancelled when the fragment is despawned.
func (f *Fragment) Context() context.Context { return f.node.ctx }

func (f *Fragment) State() State { return f.node.State() }

func (f *Fragment) alive() error {
	if f.node.State() >= StateDespawning || f.node.ctx.Err() != nil {
		return fmt.Errorf("fragment %s: %w", f.id, ErrDespawned)
	}
	return nil
}

// Write opens a write guard. Release it to apply the batch; prefer Update,
// which releases even on panic.
func (f *Fragment) Write() (*WriteGuard, error) {
	if err := f.alive(); err != nil {
		return nil, err
	}
	return &WriteGuard{frag: f, buf: ecs.NewBuffer()}, nil
}

// Update runs fn with a write guard and always releases it, so the batch is
// flushed on early return and on panic.
func (f *Fragment) Update(fn func(g *WriteGuard)) (err error) {
	g, err := f.Write()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := g.Release(); err == nil {
			err = rerr
		}
	}()
	fn(g)
	return nil
}

// Set is shorthand for an Update that stages entries.
func (f *Fragment) Set(entries ...ecs.Entry) error {
	return f.Update(func(g *WriteGuard) { g.Set(entries...) })
}

// Read runs fn on the dispatcher with a read view of this fragment and its
// descendants, after every write released before the call has been applied.
func (f *Fragment) Read(ctx context.Context, fn func(r ReadGuard)) error {
	if err := f.alive(); err != nil {
		return err
	}
	var gone bool
	err := f.h.Read(ctx, func(w *ecs.World) {
		if !w.Alive(f.id) {
			gone = true
			return
		}
		fn(ReadGuard{w: w, id: f.id})
	})
	if err != nil {
		return err
	}
	if gone {
		return fmt.Errorf("read %s: %w", f.id, ErrDespawned)
	}
	return nil
}

// Despawn requests removal of this fragment and its subtree.
func (f *Fragment) Despawn() error {
	if !f.node.advance(StateDespawning) {
		return nil
	}
	return f.h.Despawn(f.id)
}

// clear drops children and content components and waits until that is
// applied. Writes released earlier are applied before the clear.
func (f *Fragment) clear(ctx context.Context) error {
	var err error
	rerr := f.h.Read(ctx, func(w *ecs.World) {
		err = f.h.clearNow(w, f.id)
	})
	if rerr != nil {
		return rerr
	}
	if err != nil {
		return fmt.Errorf("clear %s: %w", f.id, ErrDespawned)
	}
	return nil
}
