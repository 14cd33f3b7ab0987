package editor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/milk9111/cocoa2d/ecs/system"
	"github.com/milk9111/cocoa2d/scene"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClipboard struct {
	data []byte
}

func (c *memClipboard) ReadText() ([]byte, error) { return c.data, nil }

func (c *memClipboard) WriteText(data []byte) error {
	c.data = append([]byte(nil), data...)
	return nil
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	settings := config.Default()
	dir := t.TempDir()
	settings.General.SnapshotDir = dir
	settings.General.ScriptModule = filepath.Join(dir, "module.tengo")
	settings.General.ScriptModuleTmp = filepath.Join(dir, "module.tengo.tmp")
	settings.Editor.KeyDebounce = 0.1
	settings.Editor.ZoomTweenSeconds = 0.2
	settings.Editor.DragSharpness = 15
	return settings
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	sc, err := scene.New(testSettings(t), logger)
	require.NoError(t, err)
	return NewSession(sc, logger, opts...), &logs
}

func press(s *Session, keys ...Key) {
	for _, k := range keys {
		s.HandleKeyPressed(k)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		s.HandleKeyReleased(keys[i])
	}
}

func TestScrollZoomIsLogarithmicAndClamped(t *testing.T) {
	s, _ := newTestSession(t)
	cam := s.Scene().Camera()
	settings := s.Scene().Settings().Editor
	s.settings.ZoomTweenSeconds = 0

	assert.Equal(t, -1.0, s.ZoomStep())
	require.True(t, s.HandleMouseScroll(1))
	start := s.zoom.stepFor(1)
	assert.Equal(t, mustRound(start)-1, s.ZoomStep())
	assert.Less(t, cam.Zoom, 1.0)

	// Every notch scales zoom by the same ratio.
	z1 := cam.Zoom
	s.HandleMouseScroll(1)
	z2 := cam.Zoom
	s.HandleMouseScroll(1)
	z3 := cam.Zoom
	assert.InDelta(t, z1/z2, z2/z3, 1e-9)

	s.HandleMouseScroll(-1000)
	assert.Equal(t, float64(settings.ZoomSteps-1), s.ZoomStep())
	assert.InDelta(t, settings.MaxZoom, cam.Zoom, 1e-9)

	s.HandleMouseScroll(1000)
	assert.Equal(t, 0.0, s.ZoomStep())
	assert.InDelta(t, settings.MinZoom, cam.Zoom, 1e-9)

	assert.False(t, s.HandleMouseScroll(0))
}

func mustRound(v float64) float64 {
	return float64(int64(v + 0.5))
}

func TestScrollZoomEasesTowardTarget(t *testing.T) {
	s, _ := newTestSession(t)
	cam := s.Scene().Camera()

	s.HandleMouseScroll(-5)
	target := s.zoom.zoomFor(s.ZoomStep())
	assert.Equal(t, 1.0, cam.Zoom, "zoom only moves on update")

	s.Update(0.05, mgl64.Vec2{})
	assert.Greater(t, cam.Zoom, 1.0)
	assert.Less(t, cam.Zoom, target)

	s.Update(0.5, mgl64.Vec2{})
	assert.Equal(t, target, cam.Zoom)
	assert.Nil(t, s.tween)
}

func TestMiddleDragPansCamera(t *testing.T) {
	s, _ := newTestSession(t)
	cam := s.Scene().Camera()

	require.True(t, s.HandleMouseButtonPressed(MouseButtonMiddle, mgl64.Vec2{0, 0}))
	assert.True(t, s.Dragging())

	s.Update(1.0/60.0, mgl64.Vec2{-10, 4})
	assert.InDelta(t, 2.5, cam.Position.X(), 1e-9)
	assert.InDelta(t, -1.0, cam.Position.Y(), 1e-9)

	require.True(t, s.HandleMouseButtonReleased(MouseButtonMiddle))
	assert.False(t, s.Dragging())
	before := cam.Position
	s.Update(1.0/60.0, mgl64.Vec2{-50, 50})
	assert.Equal(t, before, cam.Position)
}

func TestLeftClickPicksEntity(t *testing.T) {
	s, _ := newTestSession(t)
	e, err := s.Scene().CreateEntity("Box", mgl64.Vec3{3, 3, 0})
	require.NoError(t, err)

	s.HandleMouseButtonPressed(MouseButtonLeft, mgl64.Vec2{3.2, 2.9})
	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, e, active)

	s.HandleMouseButtonPressed(MouseButtonLeft, mgl64.Vec2{-20, 0})
	assert.Empty(t, s.Selection())
}

func TestDuplicateShortcutIsDebounced(t *testing.T) {
	s, _ := newTestSession(t)
	w := s.Scene().World()
	e, err := s.Scene().CreateEntity("Box", mgl64.Vec3{})
	require.NoError(t, err)
	s.Select(e)

	press(s, KeyLeftControl, KeyD)
	require.Len(t, ecs.Entities(w), 2)
	dup, _ := s.Active()
	assert.NotEqual(t, e, dup)

	press(s, KeyLeftControl, KeyD)
	assert.Len(t, ecs.Entities(w), 2, "second press inside the debounce window is ignored")

	s.Update(0.2, mgl64.Vec2{})
	press(s, KeyLeftControl, KeyD)
	assert.Len(t, ecs.Entities(w), 3)
}

func TestShortcutsNeedControl(t *testing.T) {
	s, _ := newTestSession(t)
	e, err := s.Scene().CreateEntity("Box", mgl64.Vec3{})
	require.NoError(t, err)
	s.Select(e)

	assert.False(t, s.HandleKeyPressed(KeyD))
	assert.Len(t, ecs.Entities(s.Scene().World()), 1)
	assert.False(t, s.ControlHeld())
}

func TestCopyPasteThroughClipboard(t *testing.T) {
	clip := &memClipboard{}
	s, _ := newTestSession(t, WithClipboard(clip))
	w := s.Scene().World()
	parent, err := s.Scene().CreateEntity("Parent", mgl64.Vec3{1, 0, 0})
	require.NoError(t, err)
	child, err := s.Scene().CreateEntity("Child", mgl64.Vec3{0, 1, 0})
	require.NoError(t, err)
	require.NoError(t, system.SetParent(w, child, parent))
	s.Select(parent)

	press(s, KeyLeftControl, KeyC)
	require.NotEmpty(t, clip.data)

	s.Update(0.2, mgl64.Vec2{})
	press(s, KeyRightControl, KeyV)
	require.Len(t, ecs.Entities(w), 4)

	sel := s.Selection()
	require.Len(t, sel, 1, "only the pasted root is selected")
	assert.NotEqual(t, parent, sel[0])
	tag, ok := ecs.Get(w, sel[0], component.TagComponent.Kind())
	require.True(t, ok)
	assert.Equal(t, "Parent", tag.Name)
	assert.Len(t, system.Children(w, sel[0]), 1)
}

func TestPasteWithoutClipboardLogs(t *testing.T) {
	s, logs := newTestSession(t)
	press(s, KeyLeftControl, KeyV)
	assert.Contains(t, logs.String(), "shortcut failed")
	assert.Contains(t, logs.String(), "no clipboard attached")
}

func TestSaveShortcutWithoutPathLogs(t *testing.T) {
	s, logs := newTestSession(t)
	press(s, KeyLeftControl, KeyS)
	assert.Contains(t, logs.String(), "shortcut failed")

	path := filepath.Join(t.TempDir(), "level.json")
	s.Scene().SetPath(path)
	s.Update(0.2, mgl64.Vec2{})
	press(s, KeyLeftControl, KeyS)
	assert.FileExists(t, path)
}

func TestDeleteRemovesSelection(t *testing.T) {
	s, logs := newTestSession(t)
	w := s.Scene().World()
	parent, err := s.Scene().CreateEntity("Parent", mgl64.Vec3{})
	require.NoError(t, err)
	child, err := s.Scene().CreateEntity("Child", mgl64.Vec3{})
	require.NoError(t, err)
	require.NoError(t, system.SetParent(w, child, parent))

	s.Select(parent, child)
	require.True(t, s.HandleKeyPressed(KeyDelete))
	assert.False(t, ecs.IsAlive(w, parent))
	assert.False(t, ecs.IsAlive(w, child))
	assert.Empty(t, s.Selection())
	assert.NotContains(t, logs.String(), "shortcut failed")
}

func TestTogglePlayRestoresScene(t *testing.T) {
	s, _ := newTestSession(t)
	w := s.Scene().World()
	e, err := s.Scene().CreateEntity("Ball", mgl64.Vec3{0, 10, 0})
	require.NoError(t, err)
	rb := component.Rigidbody2D{BodyType: component.BodyDynamic, Mass: 1}
	require.NoError(t, ecs.Add(w, e, component.Rigidbody2DComponent.Kind(), &rb))

	require.NoError(t, s.TogglePlay())
	assert.Equal(t, scene.Playing, s.Scene().State())
	for i := 0; i < 30; i++ {
		s.Update(1.0/60.0, mgl64.Vec2{})
	}
	moved, _ := ecs.Get(s.Scene().World(), e, component.TransformComponent.Kind())
	assert.Less(t, moved.Position.Y(), 10.0)

	require.NoError(t, s.TogglePlay())
	assert.Equal(t, scene.Editing, s.Scene().State())
	restored, ok := ecs.Get(s.Scene().World(), e, component.TransformComponent.Kind())
	require.True(t, ok)
	assert.Equal(t, 10.0, restored.Position.Y())
}

func TestUpdateHotReloadsStagedModule(t *testing.T) {
	s, _ := newTestSession(t)
	general := s.Scene().Settings().General
	require.NoError(t, os.WriteFile(general.ScriptModuleTmp, []byte("update := func(engine, dt) {}\n"), 0o644))

	s.Update(1.0/60.0, mgl64.Vec2{})
	assert.NoFileExists(t, general.ScriptModuleTmp)
	assert.FileExists(t, general.ScriptModule)
	assert.True(t, s.Scene().Scripts().Loaded())
}

func TestRootsSkipsChildrenInSet(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.CreateEntity(w)
	b := ecs.CreateEntity(w)
	for _, e := range []ecs.Entity{a, b} {
		tr := component.DefaultTransform()
		require.NoError(t, ecs.Add(w, e, component.TransformComponent.Kind(), &tr))
	}
	require.NoError(t, system.SetParent(w, b, a))
	assert.Equal(t, []ecs.Entity{a}, roots(w, []ecs.Entity{a, b}))
	assert.Equal(t, []ecs.Entity{b}, roots(w, []ecs.Entity{b}))
}
