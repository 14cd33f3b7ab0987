package component

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/ecs"
)

type BodyType2D int

const (
	BodyStatic BodyType2D = iota
	BodyDynamic
	BodyKinematic
)

func (b BodyType2D) String() string {
	switch b {
	case BodyStatic:
		return "Static"
	case BodyDynamic:
		return "Dynamic"
	case BodyKinematic:
		return "Kinematic"
	default:
		return "Unknown"
	}
}

// ParseBodyType2D maps a persisted name back to the enum; unknown names are Dynamic.
func ParseBodyType2D(s string) BodyType2D {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return BodyStatic
	case "kinematic":
		return BodyKinematic
	default:
		return BodyDynamic
	}
}

// BodyHandle indexes the physics system's body table. The zero value is null;
// a handle whose generation no longer matches its slot is stale.
type BodyHandle struct {
	Index      uint32
	Generation uint32
}

func (h BodyHandle) IsNull() bool {
	return h.Index == 0
}

type Rigidbody2D struct {
	BodyType            BodyType2D
	Mass                float64
	LinearDamping       float64
	AngularDamping      float64
	FixedRotation       bool
	ContinuousCollision bool
	Velocity            mgl64.Vec2

	// Body is cleared by the physics system when the body is destroyed.
	Body BodyHandle
}

var Rigidbody2DComponent = ecs.NewComponent[Rigidbody2D]("Rigidbody2D")

type Box2D struct {
	HalfSize mgl64.Vec2
	Size     mgl64.Vec2
}

var Box2DComponent = ecs.NewComponent[Box2D]("Box2D")

func NewBox2D(halfSize mgl64.Vec2) Box2D {
	return Box2D{HalfSize: halfSize, Size: halfSize.Mul(2)}
}

type Circle struct {
	Radius float64
	Offset mgl64.Vec2
}

var CircleComponent = ecs.NewComponent[Circle]("Circle")

type AABB struct {
	HalfSize mgl64.Vec2
	Size     mgl64.Vec2
	Offset   mgl64.Vec2
}

var AABBComponent = ecs.NewComponent[AABB]("AABB")

func NewAABB(halfSize, offset mgl64.Vec2) AABB {
	return AABB{HalfSize: halfSize, Size: halfSize.Mul(2), Offset: offset}
}
