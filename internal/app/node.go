package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/l1jgo/fragments/internal/core/ecs"
)

// State is the lifecycle state of a fragment.
type State int32

const (
	StateSpawned    State = iota // entity exists, nothing mounted yet
	StateActive                  // a widget is mounted and may write
	StateDespawning              // removal requested, not yet applied
	StateGone                    // entity removed from the world
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateActive:
		return "active"
	case StateDespawning:
		return "despawning"
	case StateGone:
		return "gone"
	}
	return "unknown"
}

// node is the lifetime record of one fragment entity. Its context is
// cancelled when the entity is despawned, which is how widget goroutines learn
// that their subtree is gone.
type node struct {
	id     ecs.EntityID
	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32
	effect *EffectHandle // guarded by nodeTable.mu
}

func (n *node) State() State { return State(n.state.Load()) }

// advance moves the node forward to s. States never move backwards.
func (n *node) advance(s State) bool {
	for {
		cur := n.state.Load()
		if State(cur) >= s {
			return false
		}
		if n.state.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

type nodeTable struct {
	mu    sync.Mutex
	base  context.Context
	nodes map[ecs.EntityID]*node
}

func newNodeTable() *nodeTable {
	return &nodeTable{
		base:  context.Background(),
		nodes: make(map[ecs.EntityID]*node, 64),
	}
}

func (t *nodeTable) setBase(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = ctx
}

// add registers id with a context derived from its parent's, or from the
// app's base context for roots and for parents that are not fragment nodes.
func (t *nodeTable) add(id, parent ecs.EntityID) *node {
	t.mu.Lock()
	defer t.mu.Unlock()
	parentCtx := t.base
	if p, ok := t.nodes[parent]; ok {
		parentCtx = p.ctx
	}
	ctx, cancel := context.WithCancel(parentCtx)
	n := &node{id: id, ctx: ctx, cancel: cancel}
	t.nodes[id] = n
	return n
}

func (t *nodeTable) get(id ecs.EntityID) (*node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	return n, ok
}

// bindEffect records the node's flush effect. It fails if the node was
// released in the meantime.
func (t *nodeTable) bindEffect(n *node, eh *EffectHandle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.nodes[n.id]; !ok || cur != n {
		return false
	}
	n.effect = eh
	return true
}

// release marks the node Gone, cancels its context and unregisters its
// effect. It reports whether id was a live node.
func (t *nodeTable) release(id ecs.EntityID) bool {
	t.mu.Lock()
	n, ok := t.nodes[id]
	if ok {
		delete(t.nodes, id)
	}
	eh := n.effect
	t.mu.Unlock()
	if !ok {
		return false
	}
	n.state.Store(int32(StateGone))
	n.cancel()
	if eh != nil {
		eh.Close()
	}
	return true
}

func (t *nodeTable) ids() []ecs.EntityID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]ecs.EntityID, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	return ids
}

func (t *nodeTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}
