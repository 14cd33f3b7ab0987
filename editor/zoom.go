package editor

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// zoomScale maps integer scroll steps onto a logarithmic zoom range so each
// wheel notch changes zoom by the same ratio.
type zoomScale struct {
	logMin float64
	logMax float64
	steps  float64
}

func newZoomScale(minZoom, maxZoom float64, steps int) zoomScale {
	return zoomScale{logMin: math.Log(minZoom), logMax: math.Log(maxZoom), steps: float64(steps)}
}

func (z zoomScale) stepFor(zoom float64) float64 {
	return (math.Log(zoom) - z.logMin) * ((z.steps - 1) / (z.logMax - z.logMin))
}

func (z zoomScale) zoomFor(step float64) float64 {
	return math.Exp(z.logMin + (z.logMax-z.logMin)*step/(z.steps-1))
}

func (z zoomScale) clamp(step float64) float64 {
	return math.Max(0, math.Min(step, z.steps-1))
}

type zoomTween struct {
	tween  *gween.Tween
	target float64
}

func newZoomTween(from, to, seconds float64) *zoomTween {
	return &zoomTween{
		tween:  gween.New(float32(from), float32(to), float32(seconds), ease.OutQuad),
		target: to,
	}
}

// advance returns the eased zoom and whether the tween has finished. The
// final value is the exact target rather than its float32 rounding.
func (z *zoomTween) advance(dt float64) (float64, bool) {
	v, done := z.tween.Update(float32(dt))
	if done {
		return z.target, true
	}
	return float64(v), false
}
