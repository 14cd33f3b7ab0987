package system

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
)

type bodySlot struct {
	gen      uint32
	live     bool
	body     *cp.Body
	shapes   []*cp.Shape
	entity   ecs.Entity
	bodyType component.BodyType2D
	shape    shapeKind
}

// bodyTable owns every live Chipmunk body. Components only hold
// generation-checked handles into it, never *cp.Body.
type bodyTable struct {
	slots []bodySlot
	free  []uint32
	live  int
}

func (t *bodyTable) insert(slot bodySlot) component.BodyHandle {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, bodySlot{})
		idx = uint32(len(t.slots))
	}
	gen := t.slots[idx-1].gen
	slot.gen = gen
	slot.live = true
	t.slots[idx-1] = slot
	t.live++
	return component.BodyHandle{Index: idx, Generation: gen}
}

func (t *bodyTable) lookup(h component.BodyHandle) (*bodySlot, bool) {
	if h.IsNull() || int(h.Index) > len(t.slots) {
		return nil, false
	}
	slot := &t.slots[h.Index-1]
	if !slot.live || slot.gen != h.Generation {
		return nil, false
	}
	return slot, true
}

func (t *bodyTable) release(h component.BodyHandle) bool {
	slot, ok := t.lookup(h)
	if !ok {
		return false
	}
	gen := slot.gen + 1
	*slot = bodySlot{gen: gen}
	t.free = append(t.free, h.Index)
	t.live--
	return true
}

func (t *bodyTable) each(fn func(component.BodyHandle, *bodySlot)) {
	for i := range t.slots {
		slot := &t.slots[i]
		if !slot.live {
			continue
		}
		fn(component.BodyHandle{Index: uint32(i + 1), Generation: slot.gen}, slot)
	}
}
