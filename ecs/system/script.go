package system

import (
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// ScriptSystem runs the scene's tengo module while the scene is playing.
// The module may define on_start(engine) and update(engine, dt); either is
// optional.
type ScriptSystem struct {
	log     zerolog.Logger
	physics *PhysicsSystem

	path      string
	compiled  *tengo.Compiled
	state     *tengo.Map
	hasStart  bool
	hasUpdate bool
	started   bool
	disabled  bool
}

func NewScriptSystem(physics *PhysicsSystem, logger zerolog.Logger) *ScriptSystem {
	return &ScriptSystem{physics: physics, log: logger}
}

// Load compiles the module at path. A missing file leaves the scene without
// scripts.
func (s *ScriptSystem) Load(path string) error {
	s.Unload()
	if strings.TrimSpace(path) == "" {
		return nil
	}
	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.log.Debug().Str("path", path).Msg("no script module")
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "read script module %s", path)
	}

	hasStart, hasUpdate, err := detectHooks(src)
	if err != nil {
		return eris.Wrapf(err, "compile script module %s", path)
	}

	script := tengo.NewScript(append(append([]byte{}, src...), dispatchSuffix(hasStart, hasUpdate)...))
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	for name, value := range map[string]any{"__phase": "", "__engine": map[string]any{}, "__dt": 0.0} {
		if err := script.Add(name, value); err != nil {
			return eris.Wrapf(err, "bind %s in script module %s", name, path)
		}
	}
	compiled, err := script.Compile()
	if err != nil {
		return eris.Wrapf(err, "compile script module %s", path)
	}

	s.path = path
	s.compiled = compiled
	s.state = &tengo.Map{Value: map[string]tengo.Object{}}
	s.hasStart = hasStart
	s.hasUpdate = hasUpdate
	s.log.Info().Str("path", path).Bool("on_start", hasStart).Bool("update", hasUpdate).Msg("script module loaded")
	return nil
}

// Unload drops the compiled module so the file can be replaced.
func (s *ScriptSystem) Unload() {
	s.path = ""
	s.compiled = nil
	s.state = nil
	s.hasStart = false
	s.hasUpdate = false
	s.started = false
	s.disabled = false
}

func (s *ScriptSystem) Loaded() bool {
	return s != nil && s.compiled != nil
}

// Disabled reports whether a runtime error stopped the module.
func (s *ScriptSystem) Disabled() bool {
	return s != nil && s.disabled
}

// Restart makes the next Update call on_start again.
func (s *ScriptSystem) Restart() {
	s.started = false
	s.disabled = false
	if s.compiled != nil {
		s.state = &tengo.Map{Value: map[string]tengo.Object{}}
	}
}

func (s *ScriptSystem) Update(w *ecs.World, dt float64) {
	if s == nil || s.compiled == nil || s.disabled || w == nil {
		return
	}
	engine := s.engine(w)
	if !s.started {
		s.started = true
		if s.hasStart {
			if err := s.run("start", engine, 0); err != nil {
				s.fail("on_start", err)
				return
			}
		}
	}
	if s.hasUpdate {
		if err := s.run("update", engine, dt); err != nil {
			s.fail("update", err)
		}
	}
}

func (s *ScriptSystem) fail(hook string, err error) {
	s.disabled = true
	s.log.Warn().Err(err).Str("path", s.path).Str("hook", hook).Msg("script error, module disabled until reload")
}

func (s *ScriptSystem) run(phase string, engine *tengo.ImmutableMap, dt float64) error {
	if err := s.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := s.compiled.Set("__engine", engine); err != nil {
		return err
	}
	if err := s.compiled.Set("__dt", dt); err != nil {
		return err
	}
	return runCompiled(s.compiled)
}

// runCompiled runs c and turns VM panics (integer division by zero and the
// like) into errors.
func runCompiled(c *tengo.Compiled) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("script panic: %v", r)
		}
	}()
	return c.Run()
}

// detectHooks runs the bare module once to see which hooks it defines.
func detectHooks(src []byte) (bool, bool, error) {
	bare := tengo.NewScript(src)
	bare.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	compiled, err := bare.Compile()
	if err != nil {
		return false, false, err
	}
	if err := runCompiled(compiled); err != nil {
		return false, false, err
	}
	return compiled.IsDefined("on_start"), compiled.IsDefined("update"), nil
}

func dispatchSuffix(hasStart, hasUpdate bool) string {
	var b strings.Builder
	b.WriteString("\n")
	if hasStart {
		b.WriteString("if __phase == \"start\" { on_start(__engine) }\n")
	}
	if hasUpdate {
		b.WriteString("if __phase == \"update\" { update(__engine, __dt) }\n")
	}
	return b.String()
}

func (s *ScriptSystem) engine(w *ecs.World) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}
	values["state"] = s.state

	values["entities"] = &tengo.UserFunction{Name: "entities", Value: func(args ...tengo.Object) (tengo.Object, error) {
		out := &tengo.Array{}
		for _, e := range ecs.Entities(w) {
			out.Value = append(out.Value, &tengo.Int{Value: int64(e)})
		}
		return out, nil
	}}

	values["tag"] = &tengo.UserFunction{Name: "tag", Value: func(args ...tengo.Object) (tengo.Object, error) {
		e, ok := entityArg(args)
		if !ok {
			return tengo.UndefinedValue, nil
		}
		tag, ok := ecs.Get(w, e, component.TagComponent.Kind())
		if !ok {
			return tengo.UndefinedValue, nil
		}
		return &tengo.ImmutableMap{Value: map[string]tengo.Object{
			"name": &tengo.String{Value: tag.Name},
			"id":   &tengo.Int{Value: int64(tag.ID)},
		}}, nil
	}}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		e, ok := entityArg(args)
		if !ok {
			return tengo.UndefinedValue, nil
		}
		t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
		if !ok {
			return tengo.UndefinedValue, nil
		}
		return &tengo.Array{Value: []tengo.Object{&tengo.Float{Value: t.Position.X()}, &tengo.Float{Value: t.Position.Y()}}}, nil
	}}

	values["set_position"] = &tengo.UserFunction{Name: "set_position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		e, ok := entityArg(args)
		v, vok := vecArgs(args, 1)
		if !ok || !vok {
			return tengo.FalseValue, nil
		}
		t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
		if !ok {
			return tengo.FalseValue, nil
		}
		t.Position = mgl64.Vec3{v.X(), v.Y(), t.Position.Z()}
		t.Local = t.LocalMatrix()
		if rb, ok := ecs.Get(w, e, component.Rigidbody2DComponent.Kind()); ok && s.physics.Registered(rb) {
			pos, _, _ := worldPose(w, t)
			s.physics.SetBodyPosition(rb, pos)
		}
		return tengo.TrueValue, nil
	}}

	values["apply_force"] = &tengo.UserFunction{Name: "apply_force", Value: func(args ...tengo.Object) (tengo.Object, error) {
		rb, v, ok := s.bodyArgs(w, args)
		if !ok {
			return tengo.FalseValue, nil
		}
		s.physics.ApplyForceToCenter(rb, v)
		return tengo.TrueValue, nil
	}}

	values["apply_impulse"] = &tengo.UserFunction{Name: "apply_impulse", Value: func(args ...tengo.Object) (tengo.Object, error) {
		rb, v, ok := s.bodyArgs(w, args)
		if !ok {
			return tengo.FalseValue, nil
		}
		s.physics.ApplyLinearImpulseToCenter(rb, v)
		return tengo.TrueValue, nil
	}}

	// collisions lists this frame's contact events; physics runs first.
	values["collisions"] = &tengo.UserFunction{Name: "collisions", Value: func(args ...tengo.Object) (tengo.Object, error) {
		events := w.Events().Peek()
		out := make([]tengo.Object, 0, len(events))
		for _, evt := range events {
			c, ok := evt.Data.(ecs.CollisionEvent)
			if evt.Type != ecs.EventCollision || !ok {
				continue
			}
			out = append(out, &tengo.ImmutableMap{Value: map[string]tengo.Object{
				"a":    &tengo.Int{Value: int64(c.A)},
				"b":    &tengo.Int{Value: int64(c.B)},
				"kind": &tengo.String{Value: string(c.Kind)},
			}})
		}
		return &tengo.ImmutableArray{Value: out}, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		s.log.Info().Str("path", s.path).Msg(strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

// bodyArgs resolves (id, x, y) to a registered rigidbody. Scripts never reach
// the panicking physics paths with a missing body.
func (s *ScriptSystem) bodyArgs(w *ecs.World, args []tengo.Object) (*component.Rigidbody2D, mgl64.Vec2, bool) {
	e, ok := entityArg(args)
	v, vok := vecArgs(args, 1)
	if !ok || !vok || s.physics == nil {
		return nil, mgl64.Vec2{}, false
	}
	rb, ok := ecs.Get(w, e, component.Rigidbody2DComponent.Kind())
	if !ok || !s.physics.Registered(rb) {
		return nil, mgl64.Vec2{}, false
	}
	return rb, v, true
}

func entityArg(args []tengo.Object) (ecs.Entity, bool) {
	if len(args) < 1 {
		return ecs.Null, false
	}
	id, ok := tengo.ToInt64(args[0])
	if !ok {
		return ecs.Null, false
	}
	return ecs.Entity(id), true
}

func vecArgs(args []tengo.Object, at int) (mgl64.Vec2, bool) {
	if len(args) < at+2 {
		return mgl64.Vec2{}, false
	}
	x, ok := tengo.ToFloat64(args[at])
	if !ok {
		return mgl64.Vec2{}, false
	}
	y, ok := tengo.ToFloat64(args[at+1])
	if !ok {
		return mgl64.Vec2{}, false
	}
	return mgl64.Vec2{x, y}, true
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
