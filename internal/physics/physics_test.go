package physics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/annelo/starfall-server/internal/vmath"
)

type body struct {
	Kinetics
}

func TestAdvanceMovesByVelocity(t *testing.T) {
	b := &body{Kinetics{Pos: vmath.V(100, 100), Vel: vmath.V(50, -20)}}
	Advance(b, 500, Bounds{Width: 1000, Height: 1000})
	assert.InDelta(t, 125.0, b.Pos.X, 1e-9)
	assert.InDelta(t, 90.0, b.Pos.Y, 1e-9)
}

func TestAdvanceClampsRegardlessOfSpeed(t *testing.T) {
	bounds := Bounds{Width: 500, Height: 300}
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		b := &body{Kinetics{
			Pos: vmath.V(rnd.Float64()*500, rnd.Float64()*300),
			Vel: vmath.V((rnd.Float64()*2-1)*1e7, (rnd.Float64()*2-1)*1e7),
		}}
		Advance(b, rnd.Float64()*100, bounds)
		assert.GreaterOrEqual(t, b.Pos.X, 0.0)
		assert.LessOrEqual(t, b.Pos.X, bounds.Width)
		assert.GreaterOrEqual(t, b.Pos.Y, 0.0)
		assert.LessOrEqual(t, b.Pos.Y, bounds.Height)
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		a := &body{Kinetics{Pos: vmath.V(rnd.Float64()*100, rnd.Float64()*100), Radius: rnd.Float64() * 30}}
		b := &body{Kinetics{Pos: vmath.V(rnd.Float64()*100, rnd.Float64()*100), Radius: rnd.Float64() * 30}}
		assert.Equal(t, Overlaps(a, b), Overlaps(b, a))
	}
}

func TestOverlapsBoundaryIsExclusive(t *testing.T) {
	a := &body{Kinetics{Pos: vmath.V(0, 0), Radius: 5}}
	b := &body{Kinetics{Pos: vmath.V(10, 0), Radius: 5}}
	assert.False(t, Overlaps(a, b), "touching circles do not collide")
	b.Pos.X = 9.999
	assert.True(t, Overlaps(a, b))
}

func TestSeparateResolvesOverlap(t *testing.T) {
	bounds := Bounds{Width: 1000, Height: 1000}
	enemy := &body{Kinetics{Pos: vmath.V(510, 500), Radius: 25}}
	ship := &body{Kinetics{Pos: vmath.V(500, 500), Radius: 30}}
	Separate(enemy, ship, bounds)
	assert.InDelta(t, 555.0, enemy.Pos.X, 1e-9)
	assert.InDelta(t, 500.0, enemy.Pos.Y, 1e-9)
	assert.False(t, Overlaps(enemy, ship))
}

func TestElapsedFallback(t *testing.T) {
	now := time.UnixMilli(10_000)
	assert.InDelta(t, 16.0, Elapsed(now, time.Time{}, 16*time.Millisecond), 1e-9)
	assert.InDelta(t, 16.0, Elapsed(now, now, 16*time.Millisecond), 1e-9)
	assert.InDelta(t, 40.0, Elapsed(now, now.Add(-40*time.Millisecond), 16*time.Millisecond), 1e-9)
}
