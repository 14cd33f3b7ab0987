package component

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/ecs"
)

// Transform holds local position, scale and euler rotation (degrees) relative
// to Parent. Local and World are derived by the transform system.
type Transform struct {
	Position      mgl64.Vec3
	Scale         mgl64.Vec3
	EulerRotation mgl64.Vec3

	// Parent is a weak reference; a dead parent is treated as the scene root.
	Parent ecs.Entity

	Local mgl64.Mat4
	World mgl64.Mat4
}

var TransformComponent = ecs.NewComponent[Transform]("Transform")

// NewTransform returns a root transform with derived matrices filled in.
func NewTransform(position, scale, eulerRotation mgl64.Vec3) Transform {
	t := Transform{Position: position, Scale: scale, EulerRotation: eulerRotation}
	t.Local = t.LocalMatrix()
	t.World = t.Local
	return t
}

// DefaultTransform sits at the origin with unit scale.
func DefaultTransform() Transform {
	return NewTransform(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{})
}

// LocalMatrix computes T * Rz * S from the local fields.
func (t *Transform) LocalMatrix() mgl64.Mat4 {
	translate := mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := mgl64.HomogRotate3DZ(mgl64.DegToRad(t.EulerRotation.Z()))
	scale := mgl64.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// WorldPosition returns the translation of the derived world matrix, or the
// local position when the matrix has not been computed yet.
func (t *Transform) WorldPosition() mgl64.Vec3 {
	if t.World == (mgl64.Mat4{}) {
		return t.Position
	}
	return t.World.Col(3).Vec3()
}
