package app

import (
	"sync"
	"sync/atomic"

	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/core/event"
)

// EffectKey identifies a registered effect. Keys are generational: a removed
// key is never handed out again.
type EffectKey = ecs.EntityID

// Effect flushes deferred state into the world. It only ever runs on the
// dispatcher goroutine.
type Effect func(w *ecs.World) error

// Effects is the registry of effects, indexed by key.
type Effects struct {
	mu   sync.Mutex
	keys *ecs.EntityPool
	fns  map[EffectKey]Effect
}

func NewEffects() *Effects {
	return &Effects{
		keys: ecs.NewEntityPool(),
		fns:  make(map[EffectKey]Effect, 64),
	}
}

func (e *Effects) Create(fn Effect) EffectKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := e.keys.Create()
	e.fns[key] = fn
	return key
}

// Run invokes the effect for key. A stale key is a no-op and reports false.
func (e *Effects) Run(w *ecs.World, key EffectKey) (bool, error) {
	e.mu.Lock()
	fn, ok := e.fns[key]
	e.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, fn(w)
}

func (e *Effects) Remove(key EffectKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.keys.Destroy(key) {
		return false
	}
	delete(e.fns, key)
	return true
}

func (e *Effects) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fns)
}

// EffectHandle owns one registration. Close unregisters it.
type EffectHandle struct {
	key    EffectKey
	h      *Handle
	closed atomic.Bool
}

// CreateEffect registers fn and returns the owning handle.
func (h *Handle) CreateEffect(fn Effect) *EffectHandle {
	return &EffectHandle{key: h.effects.Create(fn), h: h}
}

func (eh *EffectHandle) Key() EffectKey { return eh.key }

// Schedule asks the dispatcher to run the effect.
func (eh *EffectHandle) Schedule() error {
	if eh.closed.Load() {
		return ErrDespawned
	}
	return eh.h.Enqueue(event.RunEffect{Key: eh.key})
}

func (eh *EffectHandle) Close() {
	if eh.closed.CompareAndSwap(false, true) {
		eh.h.effects.Remove(eh.key)
	}
}
