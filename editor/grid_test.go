package editor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridLinesCoverView(t *testing.T) {
	settings := config.Default().Editor
	settings.GridSize = config.Vec2{X: 32, Y: 32}

	for _, tc := range []struct {
		name string
		pos  mgl64.Vec3
		zoom float64
	}{
		{"origin", mgl64.Vec3{}, 1},
		{"offset", mgl64.Vec3{-700, 333, 0}, 1},
		{"zoomed out", mgl64.Vec3{50, -20, 0}, 2.5},
		{"zoomed in", mgl64.Vec3{1, 1, 0}, 0.3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cam := scene.NewCamera()
			cam.Position = tc.pos
			cam.Zoom = tc.zoom
			half := cam.VisibleSize().Mul(0.5)
			left, right := tc.pos.X()-half.X(), tc.pos.X()+half.X()
			bottom, top := tc.pos.Y()-half.Y(), tc.pos.Y()+half.Y()

			lines := GridLines(&cam, settings)
			require.NotEmpty(t, lines)

			minX, maxX := math.Inf(1), math.Inf(-1)
			minY, maxY := math.Inf(1), math.Inf(-1)
			for _, l := range lines {
				if l.From.X() == l.To.X() {
					x := l.From.X()
					assert.InDelta(t, 16, math.Mod(math.Mod(x, 32)+32, 32), 1e-9)
					assert.LessOrEqual(t, l.From.Y(), bottom)
					assert.GreaterOrEqual(t, l.To.Y(), top)
					minX, maxX = math.Min(minX, x), math.Max(maxX, x)
					continue
				}
				require.Equal(t, l.From.Y(), l.To.Y())
				y := l.From.Y()
				assert.LessOrEqual(t, l.From.X(), left)
				assert.GreaterOrEqual(t, l.To.X(), right)
				minY, maxY = math.Min(minY, y), math.Max(maxY, y)
			}
			assert.LessOrEqual(t, minX, left)
			assert.GreaterOrEqual(t, maxX, right)
			assert.LessOrEqual(t, minY, bottom)
			assert.GreaterOrEqual(t, maxY, top)
		})
	}
}

func TestGridLinesNeedPositiveCells(t *testing.T) {
	settings := config.Default().Editor
	settings.GridSize = config.Vec2{}
	cam := scene.NewCamera()
	assert.Nil(t, GridLines(&cam, settings))
}
