package ecs

import "iter"

// View yields every live entity holding all kinds. Each pass snapshots the
// first kind's dense list, so the sequence is restartable and tolerates
// destruction mid-iteration. Order follows that store and is not a contract.
func View(w *World, kinds ...AnyKind) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		if w == nil || len(kinds) == 0 {
			return
		}
		driver := w.store(kinds[0], false)
		if driver.Len() == 0 {
			return
		}
		snapshot := append([]Entity(nil), driver.Entities()...)
		for _, e := range snapshot {
			if !Has(w, e, kinds...) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Query collects View into a slice.
func Query(w *World, kinds ...AnyKind) []Entity {
	var out []Entity
	for e := range View(w, kinds...) {
		out = append(out, e)
	}
	return out
}

// First returns the first entity matching all kinds.
func First(w *World, kinds ...AnyKind) (Entity, bool) {
	for e := range View(w, kinds...) {
		return e, true
	}
	return Null, false
}

// IntersectEntities returns entities present in both sets.
func IntersectEntities(a, b *SparseSet) []Entity {
	if a == nil || b == nil {
		return nil
	}
	// iterate smaller set
	if len(a.denseEntities) > len(b.denseEntities) {
		a, b = b, a
	}
	out := make([]Entity, 0, len(a.denseEntities))
	for _, e := range a.denseEntities {
		if b.Has(e) {
			out = append(out, e)
		}
	}
	return out
}
