package app

import (
	"sort"

	"github.com/l1jgo/fragments/internal/core/ecs"
)

// Hook reacts to an event broadcast to the tree. It runs on the dispatcher
// with exclusive world access and may write to the world directly.
type Hook func(id ecs.EntityID, w *ecs.World, ev any)

// EventHook is the component holding a fragment's hook.
var EventHook = ecs.NewComponent[Hook]("event_hook")

// OnEvent stages hook on the guard's fragment.
func (g *WriteGuard) OnEvent(hook Hook) *WriteGuard {
	return g.Set(EventHook.With(hook))
}

// Broadcast delivers ev to every hooked entity, in entity index order.
func (h *Handle) Broadcast(ev any) error {
	return h.Schedule(func(w *ecs.World) {
		type hooked struct {
			id ecs.EntityID
			fn Hook
		}
		var hooks []hooked
		ecs.Each(w, EventHook, func(id ecs.EntityID, fn Hook) {
			hooks = append(hooks, hooked{id, fn})
		})
		sort.Slice(hooks, func(i, j int) bool { return hooks[i].id.Index() < hooks[j].id.Index() })
		for _, hk := range hooks {
			if w.Alive(hk.id) {
				hk.fn(hk.id, w, ev)
			}
		}
	})
}
