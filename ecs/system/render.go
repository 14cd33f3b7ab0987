package system

import (
	"sort"

	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
)

// DrawOrder returns every entity with a Transform, back to front. Sprites
// sort by ZIndex (entities without a sprite count as 0), then by world Z,
// then by entity id so the order is stable between frames.
func DrawOrder(w *ecs.World) []ecs.Entity {
	entities := ecs.Query(w, component.TransformComponent.Kind())
	type key struct {
		layer int
		z     float64
	}
	keys := make(map[ecs.Entity]key, len(entities))
	for _, e := range entities {
		var k key
		if s, ok := ecs.Get(w, e, component.SpriteRendererComponent.Kind()); ok {
			k.layer = s.ZIndex
		}
		if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
			k.z = worldZ(w, t)
		}
		keys[e] = k
	}
	sort.SliceStable(entities, func(i, j int) bool {
		ki, kj := keys[entities[i]], keys[entities[j]]
		if ki.layer != kj.layer {
			return ki.layer < kj.layer
		}
		if ki.z != kj.z {
			return ki.z < kj.z
		}
		return entities[i].ID() < entities[j].ID()
	})
	return entities
}
