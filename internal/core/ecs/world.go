package ecs

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation targets an entity that is not alive.
var ErrNotFound = errors.New("entity not found")

// Change is one component write or removal recorded while change tracking is on.
type Change struct {
	Entity    EntityID
	Component ComponentID
	Value     any
	Removed   bool
}

// World is the entity-component store. It owns the entity pool, the component
// registry, the parent/child index and the change subscriptions.
//
// World is not safe for concurrent use. The app dispatcher is its only owner.
type World struct {
	pool     *EntityPool
	registry *Registry
	children map[EntityID][]EntityID

	subs    map[SubscriptionID]*subscription
	nextSub SubscriptionID
	dirty   map[SubscriptionID]struct{}

	tracking bool
	changes  []Change
}

func NewWorld() *World {
	return &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
		children: make(map[EntityID][]EntityID),
		subs:     make(map[SubscriptionID]*subscription),
		dirty:    make(map[SubscriptionID]struct{}),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// Spawn creates an empty entity.
func (w *World) Spawn() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Len returns the number of live entities.
func (w *World) Len() int { return w.pool.Len() }

// Set writes a component value on a live entity.
func Set[T any](w *World, id EntityID, c Component[T], v T) error {
	if !w.Alive(id) {
		return fmt.Errorf("set %s on %s: %w", c.name, id, ErrNotFound)
	}
	if c.id == ChildOf.id {
		parent := any(v).(EntityID)
		if !w.Alive(parent) {
			return fmt.Errorf("set %s on %s: parent %s: %w", c.name, id, parent, ErrNotFound)
		}
		w.unlink(id)
		w.children[parent] = append(w.children[parent], id)
	}
	storeFor(w.registry, c).Set(id, v)
	w.touch(id, c.id, v, false)
	return nil
}

// Get reads a component value.
func Get[T any](w *World, id EntityID, c Component[T]) (T, bool) {
	s, ok := lookup(w.registry, c)
	if !ok {
		var zero T
		return zero, false
	}
	return s.Get(id)
}

// Has reports whether entity id holds component cid.
func (w *World) Has(id EntityID, cid ComponentID) bool {
	col, ok := w.registry.columns[cid]
	return ok && col.Has(id)
}

// Value returns the untyped value of a component.
func (w *World) Value(id EntityID, cid ComponentID) (any, bool) {
	col, ok := w.registry.columns[cid]
	if !ok {
		return nil, false
	}
	return col.value(id)
}

// Components lists the component ids an entity holds.
func (w *World) Components(id EntityID) []ComponentID {
	return w.registry.ComponentsOf(id)
}

// Remove detaches one component. Removing an absent component is a no-op.
func (w *World) Remove(id EntityID, cid ComponentID) error {
	if !w.Alive(id) {
		return fmt.Errorf("remove %s from %s: %w", cid, id, ErrNotFound)
	}
	w.remove(id, cid)
	return nil
}

func (w *World) remove(id EntityID, cid ComponentID) {
	col, ok := w.registry.columns[cid]
	if !ok || !col.Has(id) {
		return
	}
	w.touch(id, cid, nil, true)
	if cid == ChildOf.id {
		w.unlink(id)
	}
	col.Remove(id)
}

// Retain removes every component of id for which keep returns false.
func (w *World) Retain(id EntityID, keep func(ComponentID) bool) error {
	if !w.Alive(id) {
		return fmt.Errorf("retain on %s: %w", id, ErrNotFound)
	}
	for _, cid := range w.registry.ComponentsOf(id) {
		if !keep(cid) {
			w.remove(id, cid)
		}
	}
	return nil
}

// Parent returns the entity id is attached to.
func (w *World) Parent(id EntityID) (EntityID, bool) {
	return Get(w, id, ChildOf)
}

// Children returns the direct children of id in attach order.
func (w *World) Children(id EntityID) []EntityID {
	kids := w.children[id]
	out := make([]EntityID, len(kids))
	copy(out, kids)
	return out
}

// Descendants walks the subtree below id depth first, parents before children.
// id itself is not included.
func (w *World) Descendants(id EntityID) []EntityID {
	var out []EntityID
	var walk func(EntityID)
	walk = func(p EntityID) {
		for _, c := range w.children[p] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// Despawn removes id and every descendant. Children are removed before their
// parent. The removed ids are returned in removal order.
func (w *World) Despawn(id EntityID) ([]EntityID, error) {
	if !w.Alive(id) {
		return nil, fmt.Errorf("despawn %s: %w", id, ErrNotFound)
	}
	removed := w.DespawnChildren(id)
	w.destroy(id)
	return append(removed, id), nil
}

// DespawnChildren removes every descendant of id but keeps id itself.
func (w *World) DespawnChildren(id EntityID) []EntityID {
	var removed []EntityID
	for _, c := range w.Children(id) {
		removed = append(removed, w.DespawnChildren(c)...)
		w.destroy(c)
		removed = append(removed, c)
	}
	return removed
}

func (w *World) destroy(id EntityID) {
	for _, cid := range w.registry.ComponentsOf(id) {
		if cid != ChildOf.id {
			w.remove(id, cid)
		}
	}
	w.remove(id, ChildOf.id)
	delete(w.children, id)
	w.pool.Destroy(id)
}

func (w *World) unlink(child EntityID) {
	parent, ok := Get(w, child, ChildOf)
	if !ok {
		return
	}
	kids := w.children[parent]
	for i, k := range kids {
		if k == child {
			w.children[parent] = append(kids[:i:i], kids[i+1:]...)
			break
		}
	}
	if len(w.children[parent]) == 0 {
		delete(w.children, parent)
	}
}

// TrackChanges turns the per-batch change log on or off.
func (w *World) TrackChanges(on bool) {
	w.tracking = on
	if !on {
		w.changes = nil
	}
}

// Changes returns the changes recorded since the last ClearChanges.
func (w *World) Changes() []Change { return w.changes }

func (w *World) ClearChanges() { w.changes = w.changes[:0] }

func (w *World) touch(id EntityID, cid ComponentID, v any, removed bool) {
	if w.tracking {
		w.changes = append(w.changes, Change{Entity: id, Component: cid, Value: v, Removed: removed})
	}
	w.markSubscribers(id, cid)
}
