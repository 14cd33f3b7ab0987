// Package editor drives a scene from user input: camera pan and zoom,
// selection, clipboard shortcuts, play mode and script hot reload.
package editor

import (
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/common"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/milk9111/cocoa2d/ecs/system"
	"github.com/milk9111/cocoa2d/scene"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var ErrNoClipboard = eris.New("editor: no clipboard attached")

// Clipboard carries copied entity documents as text.
type Clipboard interface {
	ReadText() ([]byte, error)
	WriteText(data []byte) error
}

type Option func(*Session)

func WithClipboard(c Clipboard) Option {
	return func(s *Session) { s.clipboard = c }
}

// WithWatcher makes Update hot reload the script module when the watcher
// reports the staged module file.
func WithWatcher(w *Watcher) Option {
	return func(s *Session) { s.watcher = w }
}

type Session struct {
	scene     *scene.Scene
	settings  config.EditorSettings
	general   config.GeneralSettings
	log       zerolog.Logger
	clipboard Clipboard
	watcher   *Watcher

	control  bool
	debounce float64

	dragging   bool
	dragOrigin mgl64.Vec2
	dragTarget mgl64.Vec3

	zoom     zoomScale
	zoomStep float64
	tween    *zoomTween

	selection []ecs.Entity
}

func NewSession(sc *scene.Scene, logger zerolog.Logger, opts ...Option) *Session {
	settings := sc.Settings()
	s := &Session{
		scene:    sc,
		settings: settings.Editor,
		general:  settings.General,
		log:      logger.With().Str("component", "editor").Logger(),
		zoom:     newZoomScale(settings.Editor.MinZoom, settings.Editor.MaxZoom, settings.Editor.ZoomSteps),
		zoomStep: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Scene() *scene.Scene { return s.scene }
func (s *Session) Dragging() bool      { return s.dragging }
func (s *Session) ControlHeld() bool   { return s.control }

// ZoomStep is the current wheel step, or -1 before the first scroll.
func (s *Session) ZoomStep() float64 { return s.zoomStep }

// Selection returns the selected entities, pruned of any that no longer exist.
func (s *Session) Selection() []ecs.Entity {
	w := s.scene.World()
	live := s.selection[:0]
	for _, e := range s.selection {
		if ecs.IsAlive(w, e) {
			live = append(live, e)
		}
	}
	s.selection = live
	return append([]ecs.Entity(nil), live...)
}

// Active is the primary selected entity.
func (s *Session) Active() (ecs.Entity, bool) {
	sel := s.Selection()
	if len(sel) == 0 {
		return ecs.Null, false
	}
	return sel[0], true
}

func (s *Session) Select(entities ...ecs.Entity) {
	s.selection = append(s.selection[:0], entities...)
}

func (s *Session) ClearSelection() {
	s.selection = s.selection[:0]
}

// HandleKeyPressed applies editor shortcuts. It reports whether the key was
// consumed.
func (s *Session) HandleKeyPressed(key Key) bool {
	if key.isControl() {
		s.control = true
		return true
	}
	if s.debounce > 0 {
		return false
	}

	var err error
	handled := true
	switch {
	case s.control && key == KeyS:
		err = s.scene.Save("")
	case s.control && key == KeyD:
		err = s.duplicate()
	case s.control && key == KeyC:
		err = s.copy()
	case s.control && key == KeyV:
		err = s.paste()
	case s.control && key == KeyP:
		err = s.TogglePlay()
	case key == KeyDelete:
		err = s.deleteSelection()
	default:
		handled = false
	}
	if handled {
		s.debounce = s.settings.KeyDebounce
	}
	if err != nil {
		s.log.Error().Err(err).Int("key", int(key)).Msg("shortcut failed")
	}
	return handled
}

func (s *Session) HandleKeyReleased(key Key) bool {
	if key.isControl() {
		s.control = false
		return true
	}
	return false
}

// HandleMouseButtonPressed starts a camera drag on the middle button and
// picks an entity on the left button. cursor is in world space.
func (s *Session) HandleMouseButtonPressed(button MouseButton, cursor mgl64.Vec2) bool {
	switch button {
	case MouseButtonMiddle:
		s.dragging = true
		s.dragOrigin = cursor
		s.dragTarget = s.scene.Camera().Position
		return true
	case MouseButtonLeft:
		if e, ok := s.Pick(cursor); ok {
			s.Select(e)
		} else {
			s.ClearSelection()
		}
		return true
	}
	return false
}

func (s *Session) HandleMouseButtonReleased(button MouseButton) bool {
	if button == MouseButtonMiddle && s.dragging {
		s.dragging = false
		return true
	}
	return false
}

// HandleMouseScroll moves one zoom step per wheel notch on a logarithmic
// scale and eases the camera toward the new zoom.
func (s *Session) HandleMouseScroll(yOffset float64) bool {
	if yOffset == 0 || s.settings.ZoomSteps < 2 {
		return false
	}
	cam := s.scene.Camera()
	if s.zoomStep < 0 {
		s.zoomStep = math.Round(s.zoom.stepFor(cam.Zoom))
	}
	s.zoomStep = s.zoom.clamp(s.zoomStep - yOffset)
	target := s.zoom.zoomFor(s.zoomStep)

	if s.settings.ZoomTweenSeconds <= 0 {
		cam.Zoom = target
		s.tween = nil
		return true
	}
	s.tween = newZoomTween(cam.Zoom, target, s.settings.ZoomTweenSeconds)
	return true
}

// Update advances the editor by dt seconds: key debounce, zoom easing,
// camera drag, hot reload and, while playing, the scene itself.
func (s *Session) Update(dt float64, cursor mgl64.Vec2) {
	if s.debounce > 0 {
		s.debounce = math.Max(0, s.debounce-dt)
	}

	cam := s.scene.Camera()
	if s.tween != nil {
		zoom, done := s.tween.advance(dt)
		cam.Zoom = zoom
		if done {
			s.tween = nil
		}
	}

	if s.dragging {
		delta := s.dragOrigin.Sub(cursor)
		s.dragTarget = cam.Position.Add(mgl64.Vec3{delta.X(), delta.Y(), 0})
		cam.Position = common.LerpVec3(cam.Position, s.dragTarget, dt*s.settings.DragSharpness)
	}

	s.pollReload()
	s.scene.Update(dt)
}

// TogglePlay starts play mode or stops it and restores the edited scene.
func (s *Session) TogglePlay() error {
	if s.scene.State() == scene.Playing {
		return s.scene.Stop()
	}
	return s.scene.Play()
}

// Pick returns the front-most entity whose collider bounds contain p.
func (s *Session) Pick(p mgl64.Vec2) (ecs.Entity, bool) {
	w := s.scene.World()
	order := system.DrawOrder(w)
	for i := len(order) - 1; i >= 0; i-- {
		if b, ok := system.WorldBounds(w, order[i]); ok && b.Contains(p) {
			return order[i], true
		}
	}
	return ecs.Null, false
}

func (s *Session) duplicate() error {
	e, ok := s.Active()
	if !ok {
		return nil
	}
	dup, err := s.scene.DuplicateEntity(e)
	if err != nil {
		return err
	}
	s.Select(dup)
	return nil
}

func (s *Session) copy() error {
	e, ok := s.Active()
	if !ok {
		return nil
	}
	if s.clipboard == nil {
		return ErrNoClipboard
	}
	doc, err := s.scene.CopyEntity(e)
	if err != nil {
		return err
	}
	return eris.Wrap(s.clipboard.WriteText(doc), "editor: write clipboard")
}

func (s *Session) paste() error {
	if s.clipboard == nil {
		return ErrNoClipboard
	}
	doc, err := s.clipboard.ReadText()
	if err != nil {
		return eris.Wrap(err, "editor: read clipboard")
	}
	if len(doc) == 0 {
		return nil
	}
	pasted, err := s.scene.PasteEntities(doc)
	if err != nil {
		return err
	}
	s.Select(roots(s.scene.World(), pasted)...)
	return nil
}

func (s *Session) deleteSelection() error {
	w := s.scene.World()
	for _, e := range s.Selection() {
		// An earlier cascade may already have taken it.
		if !ecs.IsAlive(w, e) {
			continue
		}
		if err := s.scene.DeleteEntity(e); err != nil {
			return err
		}
	}
	s.ClearSelection()
	return nil
}

// pollReload swaps in the staged script module when it appears. With a
// watcher only reported changes are checked; without one the staged path is
// stat'ed every frame.
func (s *Session) pollReload() {
	tmp := s.general.ScriptModuleTmp
	if tmp == "" {
		return
	}
	if s.watcher != nil {
		if !s.watcher.Changed(tmp) {
			return
		}
	}
	if _, err := os.Stat(tmp); err != nil {
		return
	}
	if err := s.scene.HotReload(tmp, s.general.ScriptModule); err != nil {
		s.log.Error().Err(err).Str("module", s.general.ScriptModule).Msg("hot reload failed")
		return
	}
	s.log.Info().Str("module", s.general.ScriptModule).Msg("hot reloaded scripts")
}

// roots filters entities down to those whose parent is not in the set.
func roots(w *ecs.World, entities []ecs.Entity) []ecs.Entity {
	in := make(map[ecs.Entity]bool, len(entities))
	for _, e := range entities {
		in[e] = true
	}
	var out []ecs.Entity
	for _, e := range entities {
		if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok && in[t.Parent] {
			continue
		}
		out = append(out, e)
	}
	return out
}
