package ecs

import (
	"sync"
	"sync/atomic"
)

// ComponentID identifies a declared component type. IDs are process global.
type ComponentID uint32

var (
	nextComponentID atomic.Uint32
	componentNames  sync.Map // ComponentID -> string
)

// Component is a typed handle to a declared component. Declare once at
// package level with NewComponent and use it for every entity.
type Component[T any] struct {
	id   ComponentID
	name string
}

// NewComponent declares a new component type.
func NewComponent[T any](name string) Component[T] {
	id := ComponentID(nextComponentID.Add(1))
	componentNames.Store(id, name)
	return Component[T]{id: id, name: name}
}

func (c Component[T]) ID() ComponentID { return c.id }
func (c Component[T]) Name() string    { return c.name }

// Name returns the declared name of a component id, or "" if unknown.
func (id ComponentID) Name() string {
	if v, ok := componentNames.Load(id); ok {
		return v.(string)
	}
	return ""
}

func (id ComponentID) String() string { return id.Name() }

// column is the type-erased view of a ComponentStore the World keeps.
type column interface {
	Remove(id EntityID) bool
	Has(id EntityID) bool
	Len() int
	value(id EntityID) (any, bool)
	keys() []EntityID
}

// ComponentStore is a generic typed map store for one component.
type ComponentStore[T any] struct {
	data map[EntityID]T
}

func NewComponentStore[T any]() *ComponentStore[T] {
	return &ComponentStore[T]{
		data: make(map[EntityID]T, 64),
	}
}

func (s *ComponentStore[T]) Set(id EntityID, v T) {
	s.data[id] = v
}

func (s *ComponentStore[T]) Get(id EntityID) (T, bool) {
	v, ok := s.data[id]
	return v, ok
}

func (s *ComponentStore[T]) Remove(id EntityID) bool {
	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	return true
}

func (s *ComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ComponentStore[T]) Len() int {
	return len(s.data)
}

func (s *ComponentStore[T]) Each(fn func(EntityID, T)) {
	for id, v := range s.data {
		fn(id, v)
	}
}

func (s *ComponentStore[T]) value(id EntityID) (any, bool) {
	v, ok := s.data[id]
	return v, ok
}

// Built-in components every fragment node may carry.
var (
	// WidgetTag marks an entity as a widget node. It survives Retain in Put.
	WidgetTag = NewComponent[struct{}]("widget")
	// ChildOf stores the parent entity on the child.
	ChildOf = NewComponent[EntityID]("child_of")
	// Name is a human readable label.
	Name = NewComponent[string]("name")
)
