// Package component holds the plain data records attached to entities.
package component

import "github.com/milk9111/cocoa2d/ecs"

// Kinds lists every persisted component kind in serialization order.
func Kinds() []ecs.AnyKind {
	return []ecs.AnyKind{
		TransformComponent,
		TagComponent,
		SpriteRendererComponent,
		FontRendererComponent,
		Rigidbody2DComponent,
		Box2DComponent,
		CircleComponent,
		AABBComponent,
	}
}
