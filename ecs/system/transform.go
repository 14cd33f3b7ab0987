package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/rotisserie/eris"
)

var ErrParentCycle = eris.New("transform: parent would create a cycle")

// maxHierarchyDepth bounds parent walks over documents that were edited by hand.
const maxHierarchyDepth = 256

// TransformSystem derives Local and World matrices, parents before children.
type TransformSystem struct{}

func NewTransformSystem() *TransformSystem {
	return &TransformSystem{}
}

func (s *TransformSystem) Update(w *ecs.World, _ float64) {
	if w == nil {
		return
	}
	done := make(map[ecs.Entity]bool)
	var resolve func(e ecs.Entity, t *component.Transform, depth int) mgl64.Mat4
	resolve = func(e ecs.Entity, t *component.Transform, depth int) mgl64.Mat4 {
		if done[e] {
			return t.World
		}
		t.Local = t.LocalMatrix()
		t.World = t.Local
		if depth < maxHierarchyDepth {
			if parent, ok := parentTransform(w, t); ok {
				t.World = resolve(t.Parent, parent, depth+1).Mul4(t.Local)
			}
		}
		done[e] = true
		return t.World
	}
	ecs.ForEach(w, component.TransformComponent.Kind(), func(e ecs.Entity, t *component.Transform) {
		resolve(e, t, 0)
	})
}

// SetParent links child under parent. ecs.Null detaches child to the root.
func SetParent(w *ecs.World, child, parent ecs.Entity) error {
	t, err := ecs.Require(w, child, component.TransformComponent.Kind())
	if err != nil {
		return err
	}
	if parent == ecs.Null {
		t.Parent = ecs.Null
		return nil
	}
	if !ecs.Has(w, parent, component.TransformComponent) {
		return eris.Wrapf(ecs.ErrMissingComponent, "parent %s has no Transform", parent)
	}
	if parent == child || isAncestor(w, child, parent) {
		return eris.Wrapf(ErrParentCycle, "%s under %s", child, parent)
	}
	t.Parent = parent
	return nil
}

// isAncestor reports whether anc appears on the parent chain of e.
func isAncestor(w *ecs.World, anc, e ecs.Entity) bool {
	cur := e
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		t, ok := ecs.Get(w, cur, component.TransformComponent.Kind())
		if !ok || t.Parent == ecs.Null || !ecs.IsAlive(w, t.Parent) {
			return false
		}
		if t.Parent == anc {
			return true
		}
		cur = t.Parent
	}
	return true
}

// Children returns the live entities whose Transform.Parent is parent.
func Children(w *ecs.World, parent ecs.Entity) []ecs.Entity {
	var out []ecs.Entity
	ecs.ForEach(w, component.TransformComponent.Kind(), func(e ecs.Entity, t *component.Transform) {
		if t.Parent == parent && parent != ecs.Null {
			out = append(out, e)
		}
	})
	return out
}

// Descendants returns every entity below parent, breadth first.
func Descendants(w *ecs.World, parent ecs.Entity) []ecs.Entity {
	var out []ecs.Entity
	seen := map[ecs.Entity]bool{parent: true}
	queue := []ecs.Entity{parent}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range Children(w, cur) {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

func parentTransform(w *ecs.World, t *component.Transform) (*component.Transform, bool) {
	if t.Parent == ecs.Null || !ecs.IsAlive(w, t.Parent) {
		return nil, false
	}
	return ecs.Get(w, t.Parent, component.TransformComponent.Kind())
}

// worldMatrix computes t's world matrix from the live hierarchy without
// relying on a previous TransformSystem pass.
func worldMatrix(w *ecs.World, t *component.Transform) mgl64.Mat4 {
	m := t.LocalMatrix()
	cur := t
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		parent, ok := parentTransform(w, cur)
		if !ok {
			break
		}
		m = parent.LocalMatrix().Mul4(m)
		cur = parent
	}
	return m
}
