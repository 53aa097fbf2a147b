package app

import (
	"github.com/l1jgo/fragments/internal/core/ecs"
)

// WriteGuard collects one batch of writes for a fragment. The batch is
// applied atomically, in program order, after Release.
//
// A WriteGuard is not safe for concurrent use.
type WriteGuard struct {
	frag     *Fragment
	buf      *ecs.Buffer
	released bool
}

// Set stages component values. It returns the guard for chaining.
func (g *WriteGuard) Set(entries ...ecs.Entry) *WriteGuard {
	g.buf.Add(entries...)
	return g
}

// Remove stages removal of components.
func (g *WriteGuard) Remove(ids ...ecs.ComponentID) *WriteGuard {
	for _, id := range ids {
		g.buf.Unstage(id)
	}
	return g
}

// ID returns the entity the guard writes to.
func (g *WriteGuard) ID() ecs.EntityID { return g.frag.id }

// Release hands the batch to the dispatcher. Releasing twice is a no-op.
func (g *WriteGuard) Release() error {
	if g.released {
		return nil
	}
	g.released = true
	if g.buf.Len() == 0 {
		return nil
	}
	if err := g.frag.alive(); err != nil {
		return err
	}
	g.frag.staging.merge(g.buf)
	return g.frag.effect.Schedule()
}

// ReadGuard is a read view of a fragment, valid only inside Fragment.Read.
type ReadGuard struct {
	w  *ecs.World
	id ecs.EntityID
}

func (r ReadGuard) ID() ecs.EntityID { return r.id }

// World exposes the store for queries over descendants. Do not mutate it.
func (r ReadGuard) World() *ecs.World { return r.w }

func (r ReadGuard) Children() []ecs.EntityID { return r.w.Children(r.id) }

func (r ReadGuard) Descendants() []ecs.EntityID { return r.w.Descendants(r.id) }

// Value reads a component of the guarded fragment.
func Value[T any](r ReadGuard, c ecs.Component[T]) (T, bool) {
	return ecs.Get(r.w, r.id, c)
}

// ValueOf reads a component of any entity visible through the guard.
func ValueOf[T any](r ReadGuard, id ecs.EntityID, c ecs.Component[T]) (T, bool) {
	return ecs.Get(r.w, id, c)
}
