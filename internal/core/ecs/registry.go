package ecs

// Registry tracks all component stores in first-use order.
type Registry struct {
	columns map[ComponentID]column
	order   []ComponentID
}

func NewRegistry() *Registry {
	return &Registry{
		columns: make(map[ComponentID]column, 16),
		order:   make([]ComponentID, 0, 16),
	}
}

// storeFor returns the typed store for c, creating it on first use.
func storeFor[T any](r *Registry, c Component[T]) *ComponentStore[T] {
	if col, ok := r.columns[c.id]; ok {
		return col.(*ComponentStore[T])
	}
	s := NewComponentStore[T]()
	r.columns[c.id] = s
	r.order = append(r.order, c.id)
	return s
}

// lookup returns the typed store for c without creating it.
func lookup[T any](r *Registry, c Component[T]) (*ComponentStore[T], bool) {
	col, ok := r.columns[c.id]
	if !ok {
		return nil, false
	}
	return col.(*ComponentStore[T]), true
}

// ComponentsOf lists the component ids held by an entity, in declaration
// order of first use.
func (r *Registry) ComponentsOf(id EntityID) []ComponentID {
	var ids []ComponentID
	for _, cid := range r.order {
		if r.columns[cid].Has(id) {
			ids = append(ids, cid)
		}
	}
	return ids
}
