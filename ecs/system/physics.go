package system

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var (
	ErrPhysicsInitialized    = eris.New("physics: world already initialized")
	ErrPhysicsNotInitialized = eris.New("physics: world not initialized")
	ErrUnregisteredBody      = eris.New("physics: entity has no registered body")
)

const collisionTypeBody cp.CollisionType = 1

const (
	defaultFriction = 0.6
	defaultMass     = 1.0
)

// PhysicsSystem owns the Chipmunk space and mirrors Transform, Rigidbody2D
// and collider shapes into it.
type PhysicsSystem struct {
	settings config.PhysicsSettings
	log      zerolog.Logger

	space       *cp.Space
	bodies      bodyTable
	accumulator float64
	continuous  bool

	// events receives contact begin/end while stepping.
	events *ecs.EventQueue
}

func NewPhysicsSystem(settings config.PhysicsSettings, logger zerolog.Logger) *PhysicsSystem {
	if settings.Timestep <= 0 {
		settings.Timestep = 1.0 / 60.0
	}
	if settings.MaxSubsteps < 1 {
		settings.MaxSubsteps = 1
	}
	if settings.Iterations < 1 {
		settings.Iterations = 10
	}
	return &PhysicsSystem{settings: settings, log: logger}
}

// Init allocates the space. It may run once until Destroy.
func (ps *PhysicsSystem) Init(gravity mgl64.Vec2) error {
	if ps.space != nil {
		return ErrPhysicsInitialized
	}
	space := cp.NewSpace()
	space.Iterations = uint(ps.settings.Iterations)
	space.SetGravity(cp.Vector{X: gravity.X(), Y: gravity.Y()})
	ps.space = space
	ps.accumulator = 0
	ps.continuous = false
	ps.installContactListener()
	return nil
}

func (ps *PhysicsSystem) Initialized() bool {
	return ps != nil && ps.space != nil
}

// Space returns the underlying Chipmunk space.
func (ps *PhysicsSystem) Space() *cp.Space {
	if ps == nil {
		return nil
	}
	return ps.space
}

// BodyCount returns the number of live bodies.
func (ps *PhysicsSystem) BodyCount() int {
	if ps == nil {
		return 0
	}
	return ps.bodies.live
}

func (ps *PhysicsSystem) installContactListener() {
	handler := ps.space.NewCollisionHandler(collisionTypeBody, collisionTypeBody)
	handler.UserData = ps
	handler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		if sys, ok := userData.(*PhysicsSystem); ok {
			sys.pushContact(arb, ecs.CollisionBegin)
		}
		return true
	}
	handler.SeparateFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) {
		if sys, ok := userData.(*PhysicsSystem); ok {
			sys.pushContact(arb, ecs.CollisionEnd)
		}
	}
}

func (ps *PhysicsSystem) pushContact(arb *cp.Arbiter, kind ecs.CollisionEventKind) {
	if ps.events == nil {
		return
	}
	a, b := arb.Shapes()
	ea, _ := a.UserData.(ecs.Entity)
	eb, _ := b.UserData.(ecs.Entity)
	ps.events.Push(ecs.Event{Type: ecs.EventCollision, Data: ecs.CollisionEvent{A: ea, B: eb, Kind: kind}})
}

// AddEntity creates a body for e. Entities without Transform or Rigidbody2D
// are skipped so partially configured entities can exist while editing.
func (ps *PhysicsSystem) AddEntity(w *ecs.World, e ecs.Entity) {
	if ps.space == nil {
		ps.log.Warn().Err(ErrPhysicsNotInitialized).Stringer("entity", e).Msg("cannot add entity to physics")
		return
	}
	transform, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return
	}
	rb, ok := ecs.Get(w, e, component.Rigidbody2DComponent.Kind())
	if !ok {
		return
	}
	if _, live := ps.bodies.lookup(rb.Body); live {
		return
	}

	pos, angle, scale := worldPose(w, transform)
	shapeDef := resolveShape(w, e, scale)
	if shapeDef.degenerate() {
		// A zero-area shape has zero moment and would step to NaN.
		ps.log.Warn().Stringer("entity", e).Stringer("shape", shapeDef.kind).Msg("skipping body with zero-size collider")
		return
	}

	var body *cp.Body
	switch rb.BodyType {
	case component.BodyStatic:
		body = cp.NewStaticBody()
	case component.BodyKinematic:
		body = cp.NewKinematicBody()
	default:
		mass := rb.Mass
		if mass <= 0 {
			mass = defaultMass
		}
		moment := shapeDef.moment(mass)
		if rb.FixedRotation {
			moment = math.Inf(1)
		}
		body = cp.NewBody(mass, moment)
		applyDamping(body, rb.LinearDamping, rb.AngularDamping)
	}
	body.SetPosition(cp.Vector{X: pos.X(), Y: pos.Y()})
	body.SetAngle(angle)
	if rb.BodyType != component.BodyStatic {
		body.SetVelocityVector(cp.Vector{X: rb.Velocity.X(), Y: rb.Velocity.Y()})
	}
	body.UserData = e

	shape := shapeDef.build(body)
	shape.SetFriction(defaultFriction)
	shape.SetCollisionType(collisionTypeBody)
	shape.UserData = e

	ps.space.AddBody(body)
	ps.space.AddShape(shape)

	if rb.ContinuousCollision && !ps.continuous {
		// Chipmunk has no CCD; more solver iterations reduce tunnelling instead.
		ps.continuous = true
		ps.space.Iterations = uint(ps.settings.Iterations * 2)
	}

	rb.Body = ps.bodies.insert(bodySlot{
		body:     body,
		shapes:   []*cp.Shape{shape},
		entity:   e,
		bodyType: rb.BodyType,
		shape:    shapeDef.kind,
	})
}

// DeleteEntity destroys e's body if it has one. Deleting an entity that was
// never registered is common while editing and only logs a warning.
func (ps *PhysicsSystem) DeleteEntity(w *ecs.World, e ecs.Entity) {
	ps.deleteEntity(w, e, true)
}

func (ps *PhysicsSystem) deleteEntity(w *ecs.World, e ecs.Entity, warn bool) {
	rb, ok := ecs.Get(w, e, component.Rigidbody2DComponent.Kind())
	if !ok {
		return
	}
	if !ps.removeBody(rb.Body) && warn {
		ps.log.Warn().Err(ErrUnregisteredBody).Stringer("entity", e).Msg("removed entity from physics engine that wasn't registered")
	}
	rb.Body = component.BodyHandle{}
}

func (ps *PhysicsSystem) removeBody(h component.BodyHandle) bool {
	slot, ok := ps.bodies.lookup(h)
	if !ok {
		return false
	}
	if ps.space != nil {
		for _, shape := range slot.shapes {
			shape.UserData = nil
			ps.space.RemoveShape(shape)
		}
		slot.body.UserData = nil
		ps.space.RemoveBody(slot.body)
	}
	ps.bodies.release(h)
	return true
}

// sweep drops bodies whose entity died without going through DeleteEntity.
func (ps *PhysicsSystem) sweep(w *ecs.World) {
	var orphans []component.BodyHandle
	ps.bodies.each(func(h component.BodyHandle, slot *bodySlot) {
		rb, ok := ecs.Get(w, slot.entity, component.Rigidbody2DComponent.Kind())
		if !ok || rb.Body != h {
			orphans = append(orphans, h)
		}
	})
	for _, h := range orphans {
		ps.removeBody(h)
	}
}

// Update advances the simulation in fixed substeps and copies dynamic body
// poses back into their transforms.
func (ps *PhysicsSystem) Update(w *ecs.World, dt float64) {
	if ps == nil || ps.space == nil || w == nil || dt <= 0 {
		return
	}
	ps.sweep(w)
	ps.events = w.Events()
	defer func() { ps.events = nil }()

	step := ps.settings.Timestep
	tolerance := step * 1e-9
	ps.accumulator += dt
	steps := 0
	for ps.accumulator+tolerance >= step {
		if steps == ps.settings.MaxSubsteps {
			dropped := ps.accumulator
			ps.accumulator = math.Mod(ps.accumulator, step)
			ps.log.Debug().Float64("dropped_seconds", dropped-ps.accumulator).Int("max_substeps", steps).Msg("physics catch-up capped")
			break
		}
		ps.space.Step(step)
		ps.accumulator -= step
		steps++
	}
	if ps.accumulator < 0 {
		ps.accumulator = 0
	}
	if steps == 0 {
		return
	}

	ecs.ForEach2(w, component.TransformComponent.Kind(), component.Rigidbody2DComponent.Kind(), func(e ecs.Entity, t *component.Transform, rb *component.Rigidbody2D) {
		slot, ok := ps.bodies.lookup(rb.Body)
		if !ok || slot.bodyType != component.BodyDynamic {
			return
		}
		pos := slot.body.Position()
		vel := slot.body.Velocity()
		writeBack(w, t, mgl64.Vec2{pos.X, pos.Y}, slot.body.Angle())
		rb.Velocity = mgl64.Vec2{vel.X, vel.Y}
	})
}

// Destroy detaches every body and frees the space. It must run before the
// registry holding the Rigidbody2D records is cleared.
func (ps *PhysicsSystem) Destroy(w *ecs.World) {
	if ps == nil {
		return
	}
	for e := range ecs.View(w, component.Rigidbody2DComponent) {
		ps.deleteEntity(w, e, false)
	}
	var rest []component.BodyHandle
	ps.bodies.each(func(h component.BodyHandle, _ *bodySlot) { rest = append(rest, h) })
	for _, h := range rest {
		ps.removeBody(h)
	}
	ps.space = nil
	ps.bodies = bodyTable{}
	ps.accumulator = 0
	ps.continuous = false
}

func (ps *PhysicsSystem) mustBody(rb *component.Rigidbody2D, op string) *cp.Body {
	if ps == nil || rb == nil {
		panic(fmt.Sprintf("physics: invalid rigidbody, cannot %s", op))
	}
	slot, ok := ps.bodies.lookup(rb.Body)
	if !ok {
		panic(fmt.Sprintf("physics: invalid rigidbody, cannot %s", op))
	}
	return slot.body
}

func (ps *PhysicsSystem) ApplyForceToCenter(rb *component.Rigidbody2D, force mgl64.Vec2) {
	ps.mustBody(rb, "apply force to center").ApplyForceAtLocalPoint(toCP(force), cp.Vector{})
}

func (ps *PhysicsSystem) ApplyForce(rb *component.Rigidbody2D, force, point mgl64.Vec2) {
	ps.mustBody(rb, "apply force").ApplyForceAtWorldPoint(toCP(force), toCP(point))
}

func (ps *PhysicsSystem) ApplyLinearImpulseToCenter(rb *component.Rigidbody2D, impulse mgl64.Vec2) {
	ps.mustBody(rb, "apply impulse to center").ApplyImpulseAtLocalPoint(toCP(impulse), cp.Vector{})
}

func (ps *PhysicsSystem) ApplyLinearImpulse(rb *component.Rigidbody2D, impulse, point mgl64.Vec2) {
	ps.mustBody(rb, "apply impulse").ApplyImpulseAtWorldPoint(toCP(impulse), toCP(point))
}

// Velocity returns the live linear velocity of rb's body.
func (ps *PhysicsSystem) Velocity(rb *component.Rigidbody2D) (mgl64.Vec2, bool) {
	if ps == nil || rb == nil {
		return mgl64.Vec2{}, false
	}
	slot, ok := ps.bodies.lookup(rb.Body)
	if !ok {
		return mgl64.Vec2{}, false
	}
	v := slot.body.Velocity()
	return mgl64.Vec2{v.X, v.Y}, true
}

// Registered reports whether rb refers to a live body.
func (ps *PhysicsSystem) Registered(rb *component.Rigidbody2D) bool {
	if ps == nil || rb == nil {
		return false
	}
	_, ok := ps.bodies.lookup(rb.Body)
	return ok
}

func toCP(v mgl64.Vec2) cp.Vector {
	return cp.Vector{X: v.X(), Y: v.Y()}
}

// applyDamping installs per-body damping: v *= 1/(1+dt*damping).
func applyDamping(body *cp.Body, linear, angular float64) {
	if linear <= 0 && angular <= 0 {
		return
	}
	body.SetVelocityUpdateFunc(func(b *cp.Body, gravity cp.Vector, damping float64, dt float64) {
		cp.BodyUpdateVelocity(b, gravity, damping, dt)
		if linear > 0 {
			b.SetVelocityVector(b.Velocity().Mult(1.0 / (1.0 + dt*linear)))
		}
		if angular > 0 {
			b.SetAngularVelocity(b.AngularVelocity() / (1.0 + dt*angular))
		}
	})
}

// SetBodyPosition teleports rb's body to a world position. Static shapes
// are re-added so the static index sees their new bounds.
func (ps *PhysicsSystem) SetBodyPosition(rb *component.Rigidbody2D, pos mgl64.Vec2) {
	body := ps.mustBody(rb, "set position")
	body.SetPosition(toCP(pos))
	if ps.space == nil || body.GetType() != cp.BODY_STATIC {
		return
	}
	slot, _ := ps.bodies.lookup(rb.Body)
	for _, shape := range slot.shapes {
		ps.space.RemoveShape(shape)
		ps.space.AddShape(shape)
	}
}
