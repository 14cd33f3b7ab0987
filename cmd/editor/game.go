package main

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/milk9111/cocoa2d/ecs/system"
	"github.com/milk9111/cocoa2d/editor"
	"github.com/milk9111/cocoa2d/scene"
	"golang.org/x/image/colornames"
)

// Modifiers come first so a chord pressed within one frame still registers.
var keyMap = []struct {
	key    ebiten.Key
	mapped editor.Key
}{
	{ebiten.KeyControlLeft, editor.KeyLeftControl},
	{ebiten.KeyControlRight, editor.KeyRightControl},
	{ebiten.KeyS, editor.KeyS},
	{ebiten.KeyD, editor.KeyD},
	{ebiten.KeyC, editor.KeyC},
	{ebiten.KeyV, editor.KeyV},
	{ebiten.KeyP, editor.KeyP},
	{ebiten.KeyDelete, editor.KeyDelete},
}

var buttonMap = map[ebiten.MouseButton]editor.MouseButton{
	ebiten.MouseButtonLeft:   editor.MouseButtonLeft,
	ebiten.MouseButtonMiddle: editor.MouseButtonMiddle,
	ebiten.MouseButtonRight:  editor.MouseButtonRight,
}

// Game adapts an editor session to ebiten's update and draw loop.
type Game struct {
	session  *editor.Session
	textures *textureCache
	debug    bool
	viewport mgl64.Vec2
}

func newGame(session *editor.Session, textures *textureCache, debug bool) *Game {
	return &Game{session: session, textures: textures, debug: debug, viewport: mgl64.Vec2{1280, 720}}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	cursor := g.cursorWorld()

	for _, k := range keyMap {
		if inpututil.IsKeyJustPressed(k.key) {
			g.session.HandleKeyPressed(k.mapped)
		}
		if inpututil.IsKeyJustReleased(k.key) {
			g.session.HandleKeyReleased(k.mapped)
		}
	}
	for button, mapped := range buttonMap {
		if inpututil.IsMouseButtonJustPressed(button) {
			g.session.HandleMouseButtonPressed(mapped, cursor)
		}
		if inpututil.IsMouseButtonJustReleased(button) {
			g.session.HandleMouseButtonReleased(mapped)
		}
	}
	if _, wheel := ebiten.Wheel(); wheel != 0 {
		g.session.HandleMouseScroll(wheel)
	}

	g.session.Update(1/float64(ebiten.TPS()), cursor)
	return nil
}

func (g *Game) cursorWorld() mgl64.Vec2 {
	x, y := ebiten.CursorPosition()
	return g.session.Scene().Camera().ScreenToOrtho(mgl64.Vec2{float64(x), float64(y)}, g.viewport)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Darkslategray)
	sc := g.session.Scene()
	cam := sc.Camera()
	settings := sc.Settings().Editor

	if settings.DrawGrid {
		width := float32(settings.GridStrokeWidth)
		for _, l := range editor.GridLines(cam, settings) {
			a := cam.OrthoToScreen(l.From, g.viewport)
			b := cam.OrthoToScreen(l.To, g.viewport)
			vector.StrokeLine(screen, float32(a.X()), float32(a.Y()), float32(b.X()), float32(b.Y()), width, color.NRGBA{R: 255, G: 255, B: 255, A: 24}, false)
		}
	}

	g.drawEntities(screen, sc)
	if g.debug && sc.State() == scene.Playing {
		drawPhysicsDebug(screen, sc.Physics().Space(), cam, g.viewport)
	}

	status := fmt.Sprintf("%s  zoom %.2f  entities %d", sc.State(), cam.Zoom, len(ecs.Entities(sc.World())))
	if sc.Path() != "" {
		status += "  " + sc.Path()
	}
	ebitenutil.DebugPrintAt(screen, status, 8, 8)
}

func (g *Game) drawEntities(screen *ebiten.Image, sc *scene.Scene) {
	w := sc.World()
	cam := sc.Camera()
	selected := make(map[ecs.Entity]bool)
	for _, e := range g.session.Selection() {
		selected[e] = true
	}

	for _, e := range system.DrawOrder(w) {
		b, ok := system.WorldBounds(w, e)
		if !ok {
			continue
		}
		topLeft := cam.OrthoToScreen(b.Center.Add(mgl64.Vec2{-b.HalfSize.X(), b.HalfSize.Y()}), g.viewport)
		bottomRight := cam.OrthoToScreen(b.Center.Add(mgl64.Vec2{b.HalfSize.X(), -b.HalfSize.Y()}), g.viewport)
		x, y := float32(topLeft.X()), float32(topLeft.Y())
		width, height := float32(bottomRight.X()-topLeft.X()), float32(bottomRight.Y()-topLeft.Y())

		if sprite, ok := ecs.Get(w, e, component.SpriteRendererComponent.Kind()); ok {
			g.drawSprite(screen, sprite, x, y, width, height)
		}
		if font, ok := ecs.Get(w, e, component.FontRendererComponent.Kind()); ok {
			ebitenutil.DebugPrintAt(screen, font.Text, int(x), int(y))
		}

		outline := color.Color(colornames.Lightgrey)
		if selected[e] {
			outline = colornames.Orange
		}
		if b.Circle {
			c := cam.OrthoToScreen(b.Center, g.viewport)
			vector.StrokeCircle(screen, float32(c.X()), float32(c.Y()), width/2, 1, outline, true)
			continue
		}
		vector.StrokeRect(screen, x, y, width, height, 1, outline, false)
	}
}

func (g *Game) drawSprite(screen *ebiten.Image, sprite *component.SpriteRenderer, x, y, width, height float32) {
	tint := color.NRGBA{
		R: uint8(clamp01(float32(sprite.Color.X())) * 255),
		G: uint8(clamp01(float32(sprite.Color.Y())) * 255),
		B: uint8(clamp01(float32(sprite.Color.Z())) * 255),
		A: uint8(clamp01(float32(sprite.Color.W())) * 255),
	}
	img := g.textures.Get(sprite.Texture)
	if img == nil {
		vector.FillRect(screen, x, y, width, height, tint, false)
		return
	}
	size := img.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(width)/float64(size.X), float64(height)/float64(size.Y))
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(tint)
	screen.DrawImage(img, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.viewport = mgl64.Vec2{float64(outsideWidth), float64(outsideHeight)}
	return outsideWidth, outsideHeight
}
