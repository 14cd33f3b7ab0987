package scene

import "github.com/go-gl/mathgl/mgl64"

// Camera is an orthographic editor camera. ProjectionSize is the visible
// world area at Zoom 1.
type Camera struct {
	Position       mgl64.Vec3
	Zoom           float64
	ProjectionSize mgl64.Vec2
}

func NewCamera() Camera {
	return Camera{Zoom: 1, ProjectionSize: mgl64.Vec2{1920, 1080}}
}

// VisibleSize is the world area currently in view.
func (c *Camera) VisibleSize() mgl64.Vec2 {
	return c.ProjectionSize.Mul(c.Zoom)
}

// ScreenToOrtho maps a viewport pixel (origin top left) to world space.
func (c *Camera) ScreenToOrtho(screen, viewport mgl64.Vec2) mgl64.Vec2 {
	if viewport.X() <= 0 || viewport.Y() <= 0 {
		return mgl64.Vec2{c.Position.X(), c.Position.Y()}
	}
	nx := screen.X()/viewport.X()*2 - 1
	ny := 1 - screen.Y()/viewport.Y()*2
	half := c.VisibleSize().Mul(0.5)
	return mgl64.Vec2{c.Position.X() + nx*half.X(), c.Position.Y() + ny*half.Y()}
}

// OrthoToScreen is the inverse of ScreenToOrtho.
func (c *Camera) OrthoToScreen(world, viewport mgl64.Vec2) mgl64.Vec2 {
	half := c.VisibleSize().Mul(0.5)
	if half.X() == 0 || half.Y() == 0 {
		return mgl64.Vec2{}
	}
	nx := (world.X() - c.Position.X()) / half.X()
	ny := (world.Y() - c.Position.Y()) / half.Y()
	return mgl64.Vec2{(nx + 1) / 2 * viewport.X(), (1 - ny) / 2 * viewport.Y()}
}

// Projection returns the orthographic projection for the current zoom.
func (c *Camera) Projection() mgl64.Mat4 {
	half := c.VisibleSize().Mul(0.5)
	return mgl64.Ortho(-half.X(), half.X(), -half.Y(), half.Y(), 0.01, 100)
}
