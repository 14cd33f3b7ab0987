// Package scene owns the registry, the physics bridge and the on-disk scene
// document, and keeps the three consistent across save, load, play and stop.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/milk9111/cocoa2d/ecs/system"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var (
	ErrMalformedDocument = eris.New("scene: malformed document")
	ErrNotPlaying        = eris.New("scene: not playing")
	ErrAlreadyPlaying    = eris.New("scene: already playing")
	ErrNoScenePath       = eris.New("scene: no scene path")
)

type State int

const (
	Editing State = iota
	Playing
)

func (s State) String() string {
	switch s {
	case Editing:
		return "Editing"
	case Playing:
		return "Playing"
	default:
		return "Unknown"
	}
}

// Releaser frees render-side resources (textures, framebuffers) tied to the
// current registry.
type Releaser interface {
	Release()
}

type Option func(*Scene)

func WithReleaser(r Releaser) Option {
	return func(s *Scene) {
		if r != nil {
			s.releasers = append(s.releasers, r)
		}
	}
}

type Scene struct {
	settings config.Settings
	log      zerolog.Logger

	world      *ecs.World
	physics    *system.PhysicsSystem
	transforms *system.TransformSystem
	scripts    *system.ScriptSystem
	play       *ecs.Scheduler

	camera    Camera
	path      string
	state     State
	snapshot  string
	releasers []Releaser
}

// New returns an empty scene in the Editing state with its physics world
// initialized.
func New(settings config.Settings, logger zerolog.Logger, opts ...Option) (*Scene, error) {
	s := &Scene{
		settings:   settings,
		log:        logger,
		world:      newWorld(),
		transforms: system.NewTransformSystem(),
		camera:     NewCamera(),
		path:       settings.General.CurrentScene,
	}
	s.physics = system.NewPhysicsSystem(settings.Physics, logger.With().Str("system", "physics").Logger())
	s.scripts = system.NewScriptSystem(s.physics, logger.With().Str("system", "script").Logger())
	s.play = ecs.NewScheduler(s.physics, s.scripts, s.transforms)
	for _, opt := range opts {
		opt(s)
	}
	if err := s.physics.Init(s.gravity()); err != nil {
		return nil, err
	}
	return s, nil
}

func newWorld() *ecs.World {
	w := ecs.NewWorld()
	w.Prepare(component.Kinds()...)
	return w
}

func (s *Scene) gravity() mgl64.Vec2 {
	return mgl64.Vec2{s.settings.Physics.Gravity.X, s.settings.Physics.Gravity.Y}
}

func (s *Scene) World() *ecs.World { return s.world }
func (s *Scene) Physics() *system.PhysicsSystem { return s.physics }
func (s *Scene) Scripts() *system.ScriptSystem { return s.scripts }
func (s *Scene) Camera() *Camera { return &s.camera }
func (s *Scene) State() State { return s.state }
func (s *Scene) Path() string { return s.path }
func (s *Scene) SetPath(path string) { s.path = path }
func (s *Scene) Settings() config.Settings { return s.settings }
func (s *Scene) Log() zerolog.Logger { return s.log }

// NewScene discards the current registry and starts an empty one. A running
// play session is abandoned without restoring its snapshot.
func (s *Scene) NewScene() error {
	if s.state == Playing {
		s.discardSnapshot()
		s.state = Editing
	}
	s.FreeResources()
	s.world = newWorld()
	s.path = ""
	s.camera = NewCamera()
	return s.physics.Init(s.gravity())
}

// FreeResources releases physics bodies, the script module and render
// resources before clearing the registry. Bodies go first since they are
// keyed by the components about to be dropped.
func (s *Scene) FreeResources() {
	s.physics.Destroy(s.world)
	s.scripts.Unload()
	for _, r := range s.releasers {
		r.Release()
	}
	s.world.Clear()
}

// Update advances one frame. Only a playing scene simulates; an editing scene
// just refreshes world matrices.
func (s *Scene) Update(dt float64) {
	if s.state == Playing {
		s.play.Update(s.world, dt)
		return
	}
	s.transforms.Update(s.world, dt)
}

// adopt swaps in a freshly decoded registry and rebuilds its runtime state.
func (s *Scene) adopt(w *ecs.World) error {
	s.FreeResources()
	s.world = w
	if err := s.physics.Init(s.gravity()); err != nil {
		return err
	}
	s.transforms.Update(w, 0)
	for e := range ecs.View(w, component.TransformComponent, component.Rigidbody2DComponent) {
		s.physics.AddEntity(w, e)
	}
	if err := s.scripts.Load(s.settings.General.ScriptModule); err != nil {
		s.log.Warn().Err(err).Str("path", s.settings.General.ScriptModule).Msg("script module not loaded")
	}
	return nil
}
