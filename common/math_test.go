package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestLerpVec3ClampsFactor(t *testing.T) {
	a := mgl64.Vec3{0, 0, 0}
	b := mgl64.Vec3{10, -4, 2}
	assert.Equal(t, mgl64.Vec3{5, -2, 1}, LerpVec3(a, b, 0.5))
	assert.Equal(t, b, LerpVec3(a, b, 3))
	assert.Equal(t, a, LerpVec3(a, b, -1))
	assert.InDelta(t, 2.5, Lerp(0, 10, 0.25), 1e-12)
}
