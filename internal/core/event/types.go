package event

import "github.com/l1jgo/fragments/internal/core/ecs"

// Event is a control message consumed by the dispatcher. The set of events is
// closed: only the types in this file implement it.
type Event interface {
	event()
}

// RunEffect runs a registered effect by key.
type RunEffect struct {
	Key ecs.EntityID
}

// RunShared runs a one-off closure with exclusive world access.
type RunShared struct {
	Fn func(w *ecs.World)
}

// SpawnEntity creates a widget node. The dispatcher replies exactly once.
type SpawnEntity struct {
	Parent ecs.EntityID // zero for a root node
	Reply  chan<- SpawnResult
}

type SpawnResult struct {
	ID  ecs.EntityID
	Err error
}

// Despawn removes an entity and its descendants.
type Despawn struct {
	Entity ecs.EntityID
}

// Exit stops the dispatcher.
type Exit struct{}

func (RunEffect) event()   {}
func (RunShared) event()   {}
func (SpawnEntity) event() {}
func (Despawn) event()     {}
func (Exit) event()        {}
