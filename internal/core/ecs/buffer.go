package ecs

import (
	"errors"
	"fmt"
)

type bufferEntry struct {
	id     ComponentID
	value  any
	remove bool
	apply  func(w *World, id EntityID) error
}

// Buffer is an ordered set of pending component writes for one entity.
// Staging the same component twice keeps its first position and last value.
type Buffer struct {
	entries []bufferEntry
	index   map[ComponentID]int
}

func NewBuffer() *Buffer {
	return &Buffer{index: make(map[ComponentID]int)}
}

// Stage records a pending write of c.
func Stage[T any](b *Buffer, c Component[T], v T) {
	b.put(bufferEntry{
		id:    c.id,
		value: v,
		apply: func(w *World, id EntityID) error { return Set(w, id, c, v) },
	})
}

// Unstage records a pending removal of cid.
func (b *Buffer) Unstage(cid ComponentID) {
	b.put(bufferEntry{
		id:     cid,
		remove: true,
		apply:  func(w *World, id EntityID) error { return w.Remove(id, cid) },
	})
}

func (b *Buffer) put(e bufferEntry) {
	if b.index == nil {
		b.index = make(map[ComponentID]int)
	}
	if i, ok := b.index[e.id]; ok {
		b.entries[i] = e
		return
	}
	b.index[e.id] = len(b.entries)
	b.entries = append(b.entries, e)
}

// Lookup returns the staged value of cid.
func (b *Buffer) Lookup(cid ComponentID) (v any, staged bool) {
	i, ok := b.index[cid]
	if !ok || b.entries[i].remove {
		return nil, false
	}
	return b.entries[i].value, true
}

func (b *Buffer) Len() int { return len(b.entries) }

// IDs returns the staged component ids in order.
func (b *Buffer) IDs() []ComponentID {
	ids := make([]ComponentID, len(b.entries))
	for i, e := range b.entries {
		ids[i] = e.id
	}
	return ids
}

// Merge appends other's entries after b's, then clears other.
func (b *Buffer) Merge(other *Buffer) {
	for _, e := range other.entries {
		b.put(e)
	}
	other.Clear()
}

func (b *Buffer) Clear() {
	b.entries = b.entries[:0]
	clear(b.index)
}

// Apply writes every staged entry to entity id in order and clears the buffer.
// A dead entity fails the whole batch before anything is written.
func (b *Buffer) Apply(w *World, id EntityID) error {
	defer b.Clear()
	if !w.Alive(id) {
		return fmt.Errorf("apply %d writes to %s: %w", len(b.entries), id, ErrNotFound)
	}
	var errs []error
	for _, e := range b.entries {
		if err := e.apply(w, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Entry is one component value ready to be staged.
type Entry struct {
	id    ComponentID
	stage func(b *Buffer)
}

// With pairs c with a value so it can be staged without naming T again.
func (c Component[T]) With(v T) Entry {
	return Entry{id: c.id, stage: func(b *Buffer) { Stage(b, c, v) }}
}

func (e Entry) ID() ComponentID { return e.id }

// Add stages every entry in order.
func (b *Buffer) Add(entries ...Entry) {
	for _, e := range entries {
		e.stage(b)
	}
}
