package ecs

import "github.com/rotisserie/eris"

// CreateEntity allocates a new entity in w.
func CreateEntity(w *World) Entity {
	return w.CreateEntity()
}

// DestroyEntity removes e and all its components. Destroying a dead or
// stale handle returns ErrInvalidEntity.
func DestroyEntity(w *World, e Entity) error {
	return w.DestroyEntity(e)
}

// IsAlive reports whether e is a live handle in w.
func IsAlive(w *World, e Entity) bool {
	return w.IsAlive(e)
}

// Entities returns every live entity in index order.
func Entities(w *World) []Entity {
	if w == nil {
		return nil
	}
	out := make([]Entity, 0, w.entities.count)
	w.entities.each(func(e Entity) { out = append(out, e) })
	return out
}

// Add attaches value to e. An entity holds at most one record per kind.
func Add[T any](w *World, e Entity, kind ComponentKind[T], value *T) error {
	if !kind.Valid() {
		return ErrInvalidComponentKind
	}
	if value == nil {
		return eris.Wrapf(ErrNilComponent, "add %s to %s", kind.Name(), e)
	}
	return w.addComponent(e, kind, value)
}

// Get returns the stored record, which callers may mutate in place.
func Get[T any](w *World, e Entity, kind ComponentKind[T]) (*T, bool) {
	v, ok := w.getComponent(e, kind)
	if !ok {
		return nil, false
	}
	cast, ok := v.(*T)
	return cast, ok
}

// Require is Get with an error describing why the record is unavailable.
func Require[T any](w *World, e Entity, kind ComponentKind[T]) (*T, error) {
	if !w.IsAlive(e) {
		return nil, eris.Wrapf(ErrInvalidEntity, "get %s from %s", kind.Name(), e)
	}
	v, ok := Get(w, e, kind)
	if !ok {
		return nil, eris.Wrapf(ErrMissingComponent, "get %s from %s", kind.Name(), e)
	}
	return v, nil
}

// Remove detaches the kind from e.
func Remove[T any](w *World, e Entity, kind ComponentKind[T]) error {
	if !w.IsAlive(e) {
		return eris.Wrapf(ErrInvalidEntity, "remove %s from %s", kind.Name(), e)
	}
	if !w.store(kind, false).Remove(e) {
		return eris.Wrapf(ErrMissingComponent, "remove %s from %s", kind.Name(), e)
	}
	return nil
}

// Has reports whether e holds every listed kind.
func Has(w *World, e Entity, kinds ...AnyKind) bool {
	if !w.IsAlive(e) {
		return false
	}
	for _, k := range kinds {
		if !w.hasComponent(e, k) {
			return false
		}
	}
	return true
}

func ForEach[A any](w *World, ka ComponentKind[A], fn func(Entity, *A)) {
	for e := range View(w, ka) {
		a, ok := Get(w, e, ka)
		if !ok {
			continue
		}
		fn(e, a)
	}
}

func ForEach2[A, B any](w *World, ka ComponentKind[A], kb ComponentKind[B], fn func(Entity, *A, *B)) {
	for e := range View(w, ka, kb) {
		a, okA := Get(w, e, ka)
		b, okB := Get(w, e, kb)
		if !okA || !okB {
			continue
		}
		fn(e, a, b)
	}
}

func ForEach3[A, B, C any](w *World, ka ComponentKind[A], kb ComponentKind[B], kc ComponentKind[C], fn func(Entity, *A, *B, *C)) {
	for e := range View(w, ka, kb, kc) {
		a, okA := Get(w, e, ka)
		b, okB := Get(w, e, kb)
		c, okC := Get(w, e, kc)
		if !okA || !okB || !okC {
			continue
		}
		fn(e, a, b, c)
	}
}
