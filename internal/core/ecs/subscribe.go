package ecs

import "weak"

// Waker is woken when a watched component changes.
type Waker interface {
	Wake()
}

// SubscriptionID identifies a registered subscription.
type SubscriptionID uint64

type filterKind uint8

const (
	filterAny filterKind = iota
	filterEntity
	filterChildrenOf
)

// Filter restricts which entities a subscription watches.
type Filter struct {
	kind   filterKind
	entity EntityID
}

// AnyEntity watches every entity.
func AnyEntity() Filter { return Filter{kind: filterAny} }

// OnEntity watches a single entity.
func OnEntity(id EntityID) Filter { return Filter{kind: filterEntity, entity: id} }

// ChildrenOf watches the direct children of parent.
func ChildrenOf(parent EntityID) Filter { return Filter{kind: filterChildrenOf, entity: parent} }

func (f Filter) match(w *World, id EntityID) bool {
	switch f.kind {
	case filterEntity:
		return id == f.entity
	case filterChildrenOf:
		p, ok := Get(w, id, ChildOf)
		return ok && p == f.entity
	default:
		return true
	}
}

type subscription struct {
	components map[ComponentID]struct{}
	filter     Filter
	target     func() Waker
}

// Subscribe registers target to be woken when any of the components changes
// on an entity matching filter. The world holds target weakly: once the
// caller drops it the subscription goes inert and is pruned on the next flush.
func Subscribe[T any, PT interface {
	*T
	Waker
}](w *World, target PT, filter Filter, components ...ComponentID) SubscriptionID {
	wp := weak.Make((*T)(target))
	set := make(map[ComponentID]struct{}, len(components))
	for _, c := range components {
		set[c] = struct{}{}
	}
	w.nextSub++
	id := w.nextSub
	w.subs[id] = &subscription{
		components: set,
		filter:     filter,
		target: func() Waker {
			p := wp.Value()
			if p == nil {
				return nil
			}
			return PT(p)
		},
	}
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (w *World) Unsubscribe(id SubscriptionID) {
	delete(w.subs, id)
	delete(w.dirty, id)
}

// Subscriptions returns the number of registered subscriptions.
func (w *World) Subscriptions() int { return len(w.subs) }

func (w *World) markSubscribers(id EntityID, cid ComponentID) {
	for sid, s := range w.subs {
		if _, ok := s.components[cid]; !ok {
			continue
		}
		if _, ok := w.dirty[sid]; ok {
			continue
		}
		if s.filter.match(w, id) {
			w.dirty[sid] = struct{}{}
		}
	}
}

// FlushNotifications wakes every target whose watched components changed
// since the last flush, once each, and prunes subscriptions whose target has
// been collected. It returns the number of targets woken.
func (w *World) FlushNotifications() int {
	woken := 0
	for sid := range w.dirty {
		delete(w.dirty, sid)
		s, ok := w.subs[sid]
		if !ok {
			continue
		}
		t := s.target()
		if t == nil {
			delete(w.subs, sid)
			continue
		}
		t.Wake()
		woken++
	}
	for sid, s := range w.subs {
		if s.target() == nil {
			delete(w.subs, sid)
		}
	}
	return woken
}
