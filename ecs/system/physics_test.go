package system

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPhysics(t *testing.T, maxSubsteps int) *PhysicsSystem {
	t.Helper()
	settings := config.Default().Physics
	settings.MaxSubsteps = maxSubsteps
	ps := NewPhysicsSystem(settings, zerolog.Nop())
	require.NoError(t, ps.Init(mgl64.Vec2{0, -9.8}))
	return ps
}

func addBody(t *testing.T, w *ecs.World, pos mgl64.Vec3, rb component.Rigidbody2D) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	tr := component.NewTransform(pos, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{})
	require.NoError(t, ecs.Add(w, e, component.TransformComponent.Kind(), &tr))
	require.NoError(t, ecs.Add(w, e, component.Rigidbody2DComponent.Kind(), &rb))
	return e
}

func addBox(t *testing.T, w *ecs.World, e ecs.Entity, half mgl64.Vec2) {
	t.Helper()
	box := component.NewBox2D(half)
	require.NoError(t, ecs.Add(w, e, component.Box2DComponent.Kind(), &box))
}

func positionOf(t *testing.T, w *ecs.World, e ecs.Entity) mgl64.Vec3 {
	t.Helper()
	tr, err := ecs.Require(w, e, component.TransformComponent.Kind())
	require.NoError(t, err)
	return tr.Position
}

func TestPhysicsFreeFall(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)
	e := addBody(t, w, mgl64.Vec3{0, 10, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	addBox(t, w, e, mgl64.Vec2{0.5, 0.5})
	ps.AddEntity(w, e)

	rb, _ := ecs.Get(w, e, component.Rigidbody2DComponent.Kind())
	require.False(t, rb.Body.IsNull())

	prev := 10.0
	for i := 0; i < 60; i++ {
		ps.Update(w, 1.0/60.0)
		y := positionOf(t, w, e).Y()
		assert.LessOrEqual(t, y, prev)
		prev = y
	}
	assert.Less(t, prev, 10.0)
	assert.InDelta(t, 10-0.5*9.8, prev, 0.25)

	vel, ok := ps.Velocity(rb)
	require.True(t, ok)
	assert.InDelta(t, -9.8, vel.Y(), 0.01)
}

func TestPhysicsFixedStepDeterminism(t *testing.T) {
	splits := map[string][]float64{
		"sixtieths":  repeat(1.0/60.0, 60),
		"thirtieths": repeat(1.0/30.0, 30),
		"uneven":     {0.5, 0.25, 0.125, 0.125},
		"jitter":     append(repeat(1.0/120.0, 20), append(repeat(1.0/40.0, 20), repeat(1.0/60.0, 20)...)...),
	}

	var reference *mgl64.Vec3
	for name, dts := range splits {
		t.Run(name, func(t *testing.T) {
			w := ecs.NewWorld()
			ps := newTestPhysics(t, 1000)
			e := addBody(t, w, mgl64.Vec3{0, 10, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
			addBox(t, w, e, mgl64.Vec2{0.5, 0.5})
			ps.AddEntity(w, e)
			for _, dt := range dts {
				ps.Update(w, dt)
			}
			pos := positionOf(t, w, e)
			if reference == nil {
				reference = &pos
				return
			}
			assert.InDelta(t, reference.Y(), pos.Y(), 1e-9)
			assert.InDelta(t, reference.X(), pos.X(), 1e-9)
		})
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestPhysicsSubstepCap(t *testing.T) {
	capped := ecs.NewWorld()
	ps := newTestPhysics(t, 8)
	e := addBody(t, capped, mgl64.Vec3{0, 10, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	ps.AddEntity(capped, e)
	ps.Update(capped, 1.0)

	stepped := ecs.NewWorld()
	ref := newTestPhysics(t, 8)
	f := addBody(t, stepped, mgl64.Vec3{0, 10, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	ref.AddEntity(stepped, f)
	for i := 0; i < 8; i++ {
		ref.Update(stepped, 1.0/60.0)
	}

	assert.InDelta(t, positionOf(t, stepped, f).Y(), positionOf(t, capped, e).Y(), 1e-12)
	assert.Less(t, ps.accumulator, ps.settings.Timestep)
}

func TestPhysicsShapePrecedence(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)

	both := addBody(t, w, mgl64.Vec3{}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	addBox(t, w, both, mgl64.Vec2{1, 2})
	circle := component.Circle{Radius: 3}
	require.NoError(t, ecs.Add(w, both, component.CircleComponent.Kind(), &circle))

	circleOnly := addBody(t, w, mgl64.Vec3{10, 0, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	c2 := component.Circle{Radius: 1}
	require.NoError(t, ecs.Add(w, circleOnly, component.CircleComponent.Kind(), &c2))
	aabb := component.NewAABB(mgl64.Vec2{1, 1}, mgl64.Vec2{})
	require.NoError(t, ecs.Add(w, circleOnly, component.AABBComponent.Kind(), &aabb))

	bare := addBody(t, w, mgl64.Vec3{20, 0, 0}, component.Rigidbody2D{BodyType: component.BodyStatic})

	tests := []struct {
		name string
		e    ecs.Entity
		want shapeKind
	}{
		{"box over circle", both, shapeBox},
		{"circle over aabb", circleOnly, shapeCircle},
		{"no collider", bare, shapeDefaultBox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps.AddEntity(w, tt.e)
			rb, _ := ecs.Get(w, tt.e, component.Rigidbody2DComponent.Kind())
			slot, ok := ps.bodies.lookup(rb.Body)
			require.True(t, ok)
			assert.Equal(t, tt.want, slot.shape)
		})
	}
	assert.Equal(t, 3, ps.BodyCount())
}

func TestPhysicsAddEntityRequiresTransformAndBody(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)
	e := ecs.CreateEntity(w)
	tr := component.DefaultTransform()
	require.NoError(t, ecs.Add(w, e, component.TransformComponent.Kind(), &tr))

	ps.AddEntity(w, e)
	assert.Zero(t, ps.BodyCount())
}

func TestPhysicsDeletionSafety(t *testing.T) {
	var logs bytes.Buffer
	settings := config.Default().Physics
	ps := NewPhysicsSystem(settings, zerolog.New(&logs))
	require.NoError(t, ps.Init(mgl64.Vec2{0, -9.8}))

	w := ecs.NewWorld()
	e := addBody(t, w, mgl64.Vec3{0, 5, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	ps.AddEntity(w, e)
	require.Equal(t, 1, ps.BodyCount())

	require.NoError(t, ecs.DestroyEntity(w, e))
	assert.NotPanics(t, func() { ps.Update(w, 1.0/60.0) })
	assert.Zero(t, ps.BodyCount())

	never := addBody(t, w, mgl64.Vec3{}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	assert.NotPanics(t, func() { ps.DeleteEntity(w, never) })
	assert.Contains(t, logs.String(), "wasn't registered")
}

func TestPhysicsDeleteEntityClearsHandle(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)
	e := addBody(t, w, mgl64.Vec3{}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	ps.AddEntity(w, e)

	rb, _ := ecs.Get(w, e, component.Rigidbody2DComponent.Kind())
	stale := *rb
	ps.DeleteEntity(w, e)

	assert.True(t, rb.Body.IsNull())
	assert.False(t, ps.Registered(&stale))
	assert.Panics(t, func() { ps.ApplyLinearImpulseToCenter(&stale, mgl64.Vec2{1, 0}) })

	// The freed slot is reused under a new generation.
	ps.AddEntity(w, e)
	assert.Equal(t, stale.Body.Index, rb.Body.Index)
	assert.NotEqual(t, stale.Body.Generation, rb.Body.Generation)
}

func TestPhysicsForceOnNullBodyPanics(t *testing.T) {
	ps := newTestPhysics(t, 8)
	rb := &component.Rigidbody2D{}
	assert.Panics(t, func() { ps.ApplyForceToCenter(rb, mgl64.Vec2{1, 0}) })
	assert.Panics(t, func() { ps.ApplyForce(rb, mgl64.Vec2{1, 0}, mgl64.Vec2{}) })
	assert.Panics(t, func() { ps.ApplyLinearImpulse(rb, mgl64.Vec2{1, 0}, mgl64.Vec2{}) })
}

func TestPhysicsImpulseMovesBody(t *testing.T) {
	w := ecs.NewWorld()
	settings := config.Default().Physics
	ps := NewPhysicsSystem(settings, zerolog.Nop())
	require.NoError(t, ps.Init(mgl64.Vec2{}))
	e := addBody(t, w, mgl64.Vec3{}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 2})
	ps.AddEntity(w, e)

	rb, _ := ecs.Get(w, e, component.Rigidbody2DComponent.Kind())
	ps.ApplyLinearImpulseToCenter(rb, mgl64.Vec2{4, 0})
	vel, ok := ps.Velocity(rb)
	require.True(t, ok)
	assert.InDelta(t, 2.0, vel.X(), 1e-9)

	ps.Update(w, 1.0/60.0)
	assert.Greater(t, positionOf(t, w, e).X(), 0.0)
	assert.InDelta(t, 2.0, rb.Velocity.X(), 1e-9)
}

func TestPhysicsInitTwice(t *testing.T) {
	ps := newTestPhysics(t, 8)
	err := ps.Init(mgl64.Vec2{})
	assert.ErrorIs(t, err, ErrPhysicsInitialized)

	ps.Destroy(ecs.NewWorld())
	assert.False(t, ps.Initialized())
	assert.NoError(t, ps.Init(mgl64.Vec2{}))
}

func TestPhysicsDestroyClearsHandles(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)
	a := addBody(t, w, mgl64.Vec3{}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	b := addBody(t, w, mgl64.Vec3{3, 0, 0}, component.Rigidbody2D{BodyType: component.BodyStatic})
	ps.AddEntity(w, a)
	ps.AddEntity(w, b)

	ps.Destroy(w)
	for _, e := range []ecs.Entity{a, b} {
		rb, _ := ecs.Get(w, e, component.Rigidbody2DComponent.Kind())
		assert.True(t, rb.Body.IsNull())
	}
	assert.Zero(t, ps.BodyCount())
	assert.Nil(t, ps.Space())
}

func TestPhysicsStaticAndKinematicNotWrittenBack(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)
	static := addBody(t, w, mgl64.Vec3{0, 3, 0}, component.Rigidbody2D{BodyType: component.BodyStatic})
	kinematic := addBody(t, w, mgl64.Vec3{5, 3, 0}, component.Rigidbody2D{BodyType: component.BodyKinematic, Velocity: mgl64.Vec2{1, 0}})
	ps.AddEntity(w, static)
	ps.AddEntity(w, kinematic)

	for i := 0; i < 30; i++ {
		ps.Update(w, 1.0/60.0)
	}
	assert.Equal(t, mgl64.Vec3{0, 3, 0}, positionOf(t, w, static))
	assert.Equal(t, mgl64.Vec3{5, 3, 0}, positionOf(t, w, kinematic))
}

func TestPhysicsContactEvents(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)
	ground := addBody(t, w, mgl64.Vec3{0, 0, 0}, component.Rigidbody2D{BodyType: component.BodyStatic})
	addBox(t, w, ground, mgl64.Vec2{5, 0.5})
	box := addBody(t, w, mgl64.Vec3{0, 1.2, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	addBox(t, w, box, mgl64.Vec2{0.5, 0.5})
	ps.AddEntity(w, ground)
	ps.AddEntity(w, box)

	var begins []ecs.CollisionEvent
	for i := 0; i < 60; i++ {
		ps.Update(w, 1.0/60.0)
		for _, evt := range w.Events().Drain() {
			if evt.Type != ecs.EventCollision {
				continue
			}
			ce := evt.Data.(ecs.CollisionEvent)
			if ce.Kind == ecs.CollisionBegin {
				begins = append(begins, ce)
			}
		}
	}
	require.NotEmpty(t, begins)
	pair := []ecs.Entity{begins[0].A, begins[0].B}
	assert.ElementsMatch(t, []ecs.Entity{ground, box}, pair)
	assert.Less(t, positionOf(t, w, box).Y(), 1.2)
	assert.Greater(t, positionOf(t, w, box).Y(), 0.8)
}

func TestPhysicsChildWriteBackStaysLocal(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)

	parent := ecs.CreateEntity(w)
	pt := component.NewTransform(mgl64.Vec3{100, 0, 0}, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{})
	require.NoError(t, ecs.Add(w, parent, component.TransformComponent.Kind(), &pt))

	child := addBody(t, w, mgl64.Vec3{0, 10, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1, FixedRotation: true})
	require.NoError(t, SetParent(w, child, parent))
	ps.AddEntity(w, child)

	ps.Update(w, 1.0/60.0)
	ps.Update(w, 1.0/60.0)
	local := positionOf(t, w, child)
	assert.InDelta(t, 0, local.X(), 1e-9)
	assert.Less(t, local.Y(), 10.0)

	tr, _ := ecs.Get(w, child, component.TransformComponent.Kind())
	assert.InDelta(t, 100, tr.WorldPosition().X(), 1e-9)
}

func TestPhysicsTeleportedStaticBodyCollidesAtNewPosition(t *testing.T) {
	w := ecs.NewWorld()
	ps := newTestPhysics(t, 8)
	ground := addBody(t, w, mgl64.Vec3{0, 0, 0}, component.Rigidbody2D{BodyType: component.BodyStatic})
	addBox(t, w, ground, mgl64.Vec2{2, 0.5})
	ps.AddEntity(w, ground)

	rb, _ := ecs.Get(w, ground, component.Rigidbody2DComponent.Kind())
	ps.SetBodyPosition(rb, mgl64.Vec2{20, 0})

	landed := addBody(t, w, mgl64.Vec3{20, 1.2, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	addBox(t, w, landed, mgl64.Vec2{0.5, 0.5})
	fell := addBody(t, w, mgl64.Vec3{0, 1.2, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
	addBox(t, w, fell, mgl64.Vec2{0.5, 0.5})
	ps.AddEntity(w, landed)
	ps.AddEntity(w, fell)

	for i := 0; i < 60; i++ {
		ps.Update(w, 1.0/60.0)
	}
	assert.Greater(t, positionOf(t, w, landed).Y(), 0.8)
	assert.Less(t, positionOf(t, w, fell).Y(), 0.0)
}

func TestPhysicsSkipsZeroSizeColliders(t *testing.T) {
	for _, tc := range []struct {
		name  string
		scale mgl64.Vec3
		add   func(t *testing.T, w *ecs.World, e ecs.Entity)
	}{
		{"zero scale", mgl64.Vec3{0, 0, 0}, func(t *testing.T, w *ecs.World, e ecs.Entity) {
			addBox(t, w, e, mgl64.Vec2{0.5, 0.5})
		}},
		{"zero half size", mgl64.Vec3{1, 1, 1}, func(t *testing.T, w *ecs.World, e ecs.Entity) {
			addBox(t, w, e, mgl64.Vec2{0, 0.5})
		}},
		{"zero radius", mgl64.Vec3{1, 1, 1}, func(t *testing.T, w *ecs.World, e ecs.Entity) {
			require.NoError(t, ecs.Add(w, e, component.CircleComponent.Kind(), &component.Circle{}))
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var logs bytes.Buffer
			w := ecs.NewWorld()
			ps := NewPhysicsSystem(config.Default().Physics, zerolog.New(&logs))
			require.NoError(t, ps.Init(mgl64.Vec2{0, -9.8}))

			e := addBody(t, w, mgl64.Vec3{0, 5, 0}, component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1})
			tr, _ := ecs.Get(w, e, component.TransformComponent.Kind())
			tr.Scale = tc.scale
			tr.Local = tr.LocalMatrix()
			tr.World = tr.Local
			tc.add(t, w, e)

			ps.AddEntity(w, e)
			assert.Equal(t, 0, ps.BodyCount())
			assert.Contains(t, logs.String(), "zero-size collider")

			for i := 0; i < 10; i++ {
				ps.Update(w, 1.0/60.0)
			}
			pos := positionOf(t, w, e)
			assert.Equal(t, mgl64.Vec3{0, 5, 0}, pos)
		})
	}
}
