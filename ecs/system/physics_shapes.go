package system

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
)

type shapeKind int

const (
	shapeDefaultBox shapeKind = iota
	shapeBox
	shapeCircle
	shapeAABB
)

func (k shapeKind) String() string {
	switch k {
	case shapeBox:
		return "Box2D"
	case shapeCircle:
		return "Circle"
	case shapeAABB:
		return "AABB"
	default:
		return "DefaultBox"
	}
}

type shapeDef struct {
	kind     shapeKind
	halfSize mgl64.Vec2
	offset   mgl64.Vec2
	radius   float64
}

// resolveShape picks the collider for e. Box2D wins over Circle, Circle over
// AABB, and an entity with no collider gets a unit box.
func resolveShape(w *ecs.World, e ecs.Entity, scale mgl64.Vec2) shapeDef {
	abs := mgl64.Vec2{math.Abs(scale.X()), math.Abs(scale.Y())}
	if box, ok := ecs.Get(w, e, component.Box2DComponent.Kind()); ok {
		return shapeDef{kind: shapeBox, halfSize: mulElem(box.HalfSize, abs)}
	}
	if circle, ok := ecs.Get(w, e, component.CircleComponent.Kind()); ok {
		return shapeDef{
			kind:   shapeCircle,
			radius: circle.Radius * math.Max(abs.X(), abs.Y()),
			offset: mulElem(circle.Offset, scale),
		}
	}
	if aabb, ok := ecs.Get(w, e, component.AABBComponent.Kind()); ok {
		return shapeDef{
			kind:     shapeAABB,
			halfSize: mulElem(aabb.HalfSize, abs),
			offset:   mulElem(aabb.Offset, scale),
		}
	}
	return shapeDef{kind: shapeDefaultBox, halfSize: mulElem(mgl64.Vec2{0.5, 0.5}, abs)}
}

func (d shapeDef) degenerate() bool {
	if d.kind == shapeCircle {
		return !(d.radius > 0) || math.IsInf(d.radius, 0)
	}
	for _, v := range []float64{d.halfSize.X(), d.halfSize.Y()} {
		if !(v > 0) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func (d shapeDef) bb() cp.BB {
	return cp.BB{
		L: d.offset.X() - d.halfSize.X(),
		B: d.offset.Y() - d.halfSize.Y(),
		R: d.offset.X() + d.halfSize.X(),
		T: d.offset.Y() + d.halfSize.Y(),
	}
}

func (d shapeDef) moment(mass float64) float64 {
	switch d.kind {
	case shapeCircle:
		return cp.MomentForCircle(mass, 0, d.radius, toCP(d.offset))
	case shapeAABB:
		return cp.MomentForBox2(mass, d.bb())
	default:
		return cp.MomentForBox(mass, d.halfSize.X()*2, d.halfSize.Y()*2)
	}
}

func (d shapeDef) build(body *cp.Body) *cp.Shape {
	switch d.kind {
	case shapeCircle:
		return cp.NewCircle(body, d.radius, toCP(d.offset))
	case shapeAABB:
		return cp.NewBox2(body, d.bb(), 0)
	default:
		return cp.NewBox(body, d.halfSize.X()*2, d.halfSize.Y()*2, 0)
	}
}

func mulElem(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{a.X() * b.X(), a.Y() * b.Y()}
}

// worldPose returns the 2D world position, angle (radians) and scale of t.
func worldPose(w *ecs.World, t *component.Transform) (mgl64.Vec2, float64, mgl64.Vec2) {
	m := worldMatrix(w, t)
	sx := mgl64.Vec2{m.At(0, 0), m.At(1, 0)}.Len()
	sy := mgl64.Vec2{m.At(0, 1), m.At(1, 1)}.Len()
	if t.Scale.X() < 0 {
		sx = -sx
	}
	if t.Scale.Y() < 0 {
		sy = -sy
	}
	angle := math.Atan2(m.At(1, 0), m.At(0, 0))
	if sx < 0 {
		angle = math.Atan2(-m.At(1, 0), -m.At(0, 0))
	}
	return mgl64.Vec2{m.At(0, 3), m.At(1, 3)}, angle, mgl64.Vec2{sx, sy}
}

// writeBack stores a simulated world pose into t. Children keep parent-local
// values so the hierarchy stays intact.
func writeBack(w *ecs.World, t *component.Transform, pos mgl64.Vec2, angle float64) {
	deg := mgl64.RadToDeg(angle)
	if parent, ok := parentTransform(w, t); ok {
		parentWorld := worldMatrix(w, parent)
		local := parentWorld.Inv().Mul4x1(mgl64.Vec4{pos.X(), pos.Y(), worldZ(w, t), 1})
		_, parentAngle, _ := worldPose(w, parent)
		t.Position = mgl64.Vec3{local.X(), local.Y(), t.Position.Z()}
		t.EulerRotation[2] = deg - mgl64.RadToDeg(parentAngle)
		t.Local = t.LocalMatrix()
		t.World = parentWorld.Mul4(t.Local)
		return
	}
	t.Position = mgl64.Vec3{pos.X(), pos.Y(), t.Position.Z()}
	t.EulerRotation[2] = deg
	t.Local = t.LocalMatrix()
	t.World = t.Local
}

func worldZ(w *ecs.World, t *component.Transform) float64 {
	return worldMatrix(w, t).At(2, 3)
}

// Bounds is the axis-aligned world box covering an entity's collider, ignoring
// rotation. Circles report their radius on both axes.
type Bounds struct {
	Center   mgl64.Vec2
	HalfSize mgl64.Vec2
	Circle   bool
}

func (b Bounds) Contains(p mgl64.Vec2) bool {
	d := p.Sub(b.Center)
	if b.Circle {
		return d.Len() <= b.HalfSize.X()
	}
	return math.Abs(d.X()) <= b.HalfSize.X() && math.Abs(d.Y()) <= b.HalfSize.Y()
}

// WorldBounds resolves e's collider the same way bodies are built.
func WorldBounds(w *ecs.World, e ecs.Entity) (Bounds, bool) {
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return Bounds{}, false
	}
	pos, angle, scale := worldPose(w, t)
	def := resolveShape(w, e, scale)
	rot := mgl64.Rotate2D(angle)
	b := Bounds{Center: pos.Add(rot.Mul2x1(def.offset)), HalfSize: def.halfSize}
	if def.kind == shapeCircle {
		b.Circle = true
		b.HalfSize = mgl64.Vec2{def.radius, def.radius}
	}
	return b, true
}
