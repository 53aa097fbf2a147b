package ecs

import "sort"

// Each calls fn for every entity holding component c.
func Each[T any](w *World, c Component[T], fn func(EntityID, T)) {
	s, ok := lookup(w.registry, c)
	if !ok {
		return
	}
	s.Each(fn)
}

// Query returns all entities that hold every listed component, filtered by f,
// sorted by index so results are stable between calls.
func (w *World) Query(f Filter, ids ...ComponentID) []EntityID {
	if len(ids) == 0 {
		return nil
	}
	smallest, ok := w.registry.columns[ids[0]]
	if !ok {
		return nil
	}
	for _, cid := range ids[1:] {
		col, ok := w.registry.columns[cid]
		if !ok {
			return nil
		}
		if col.Len() < smallest.Len() {
			smallest = col
		}
	}
	var result []EntityID
	for _, id := range smallest.keys() {
		match := true
		for _, cid := range ids {
			if !w.registry.columns[cid].Has(id) {
				match = false
				break
			}
		}
		if match && f.match(w, id) {
			result = append(result, id)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index() < result[j].Index() })
	return result
}

func (s *ComponentStore[T]) keys() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids
}
