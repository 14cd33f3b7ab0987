package editor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/scene"
)

type Line struct {
	From mgl64.Vec2
	To   mgl64.Vec2
}

// GridLines returns the world-space grid segments covering the camera view
// plus one cell of margin on every side. Lines sit half a cell off the grid
// origin so cell centers land on multiples of the cell size.
func GridLines(cam *scene.Camera, settings config.EditorSettings) []Line {
	gw, gh := settings.GridSize.X, settings.GridSize.Y
	if gw <= 0 || gh <= 0 {
		return nil
	}
	visible := cam.VisibleSize()
	left := cam.Position.X() - visible.X()/2
	bottom := cam.Position.Y() - visible.Y()/2

	firstX := (math.Floor(left/gw) - 1) * gw
	firstY := (math.Floor(bottom/gh) - 1) * gh
	columns := int(math.Ceil((visible.X()+gw)/gw)) + 2
	rows := int(math.Ceil((visible.Y()+gh)/gh)) + 2

	y0, y1 := firstY-gh, firstY+float64(rows+1)*gh
	x0, x1 := firstX-gw, firstX+float64(columns+1)*gw

	lines := make([]Line, 0, columns+rows)
	for i := 0; i < columns; i++ {
		x := firstX + float64(i)*gw + gw/2
		lines = append(lines, Line{From: mgl64.Vec2{x, y0}, To: mgl64.Vec2{x, y1}})
	}
	for i := 0; i < rows; i++ {
		y := firstY + float64(i)*gh + gh/2
		lines = append(lines, Line{From: mgl64.Vec2{x0, y}, To: mgl64.Vec2{x1, y}})
	}
	return lines
}
