package ecs

import "github.com/rotisserie/eris"

var (
	ErrInvalidEntity        = eris.New("ecs: invalid or stale entity")
	ErrDuplicateComponent   = eris.New("ecs: entity already has component")
	ErrMissingComponent     = eris.New("ecs: entity does not have component")
	ErrNilComponent         = eris.New("ecs: component is nil")
	ErrInvalidComponentKind = eris.New("ecs: invalid component kind")
)

// World owns entities and their component stores.
type World struct {
	entities entityStore
	stores   map[ComponentID]*SparseSet
	events   EventQueue
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{stores: make(map[ComponentID]*SparseSet)}
}

// Prepare declares component stores ahead of first use. Kinds that were never
// prepared still work; their store is created on the first Add.
func (w *World) Prepare(kinds ...AnyKind) {
	for _, k := range kinds {
		w.store(k, true)
	}
}

func (w *World) store(k AnyKind, create bool) *SparseSet {
	if w == nil || k == nil || k.ID() == 0 {
		return nil
	}
	if w.stores == nil {
		w.stores = make(map[ComponentID]*SparseSet)
	}
	s := w.stores[k.ID()]
	if s == nil && create {
		s = newSparseSet(k.Name())
		w.stores[k.ID()] = s
	}
	return s
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// EnsureEntity returns the live entity at index id, creating it if that index is free.
func (w *World) EnsureEntity(id uint32) Entity {
	return w.entities.createAt(entityID(id))
}

// DestroyEntity invalidates e and drops every component attached to it.
func (w *World) DestroyEntity(e Entity) error {
	if w == nil || !w.entities.isAlive(e) {
		return eris.Wrapf(ErrInvalidEntity, "destroy %s", e)
	}
	for _, s := range w.stores {
		s.Remove(e)
	}
	w.entities.destroy(e)
	return nil
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	if w == nil {
		return false
	}
	return w.entities.isAlive(e)
}

// Count returns the number of live entities.
func (w *World) Count() int {
	if w == nil {
		return 0
	}
	return w.entities.count
}

// Clear destroys every entity and component. Prepared stores are kept.
func (w *World) Clear() {
	if w == nil {
		return
	}
	for _, s := range w.stores {
		s.clear()
	}
	w.entities = entityStore{}
	w.events.flush()
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

func (w *World) addComponent(e Entity, k AnyKind, v any) error {
	if !w.IsAlive(e) {
		return eris.Wrapf(ErrInvalidEntity, "add %s to %s", k.Name(), e)
	}
	s := w.store(k, true)
	if s == nil {
		return ErrInvalidComponentKind
	}
	if s.Has(e) {
		return eris.Wrapf(ErrDuplicateComponent, "add %s to %s", k.Name(), e)
	}
	s.Set(e, v)
	return nil
}

func (w *World) getComponent(e Entity, k AnyKind) (any, bool) {
	if !w.IsAlive(e) {
		return nil, false
	}
	s := w.store(k, false)
	if s == nil {
		return nil, false
	}
	v := s.Get(e)
	return v, v != nil
}

func (w *World) hasComponent(e Entity, k AnyKind) bool {
	if !w.IsAlive(e) {
		return false
	}
	return w.store(k, false).Has(e)
}
