package vmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0.0, NormalizeAngle(0), 1e-12)
	assert.InDelta(t, math.Pi, NormalizeAngle(-math.Pi), 1e-12)
	assert.InDelta(t, 0.5, NormalizeAngle(TwoPi+0.5), 1e-12)
	assert.InDelta(t, TwoPi-0.25, NormalizeAngle(-0.25), 1e-12)

	for _, a := range []float64{-100, -1e-18, 7, 1000.5} {
		got := NormalizeAngle(a)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, TwoPi)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	assert.Equal(t, Vec2{}, Vec2{}.Normalize())
	n := V(3, 4).Normalize()
	assert.InDelta(t, 1.0, n.Len(), 1e-12)
	assert.InDelta(t, 0.6, n.X, 1e-12)
}

func TestDistIsSymmetric(t *testing.T) {
	a, b := V(1, 2), V(-4, 10)
	assert.Equal(t, a.Dist(b), b.Dist(a))
}
