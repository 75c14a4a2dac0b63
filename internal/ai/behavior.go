// Package ai управляет врагами, которыми играет сервер.
package ai

import (
	"math"
	"math/rand"

	"github.com/annelo/starfall-server/internal/vmath"
	"github.com/annelo/starfall-server/internal/world"
)

const (
	// wanderChance задаёт вероятность за тик, что базовый враг бросит погоню.
	wanderChance = 0.05
	// idleTurnChance задаёт вероятность за тик, что враг без цели сменит курс.
	idleTurnChance = 0.02
	jitter         = 0.3
	hoverDecay     = 0.95
	// closeRange задаёт порог погони в радиусах врага.
	closeRange = 3
)

// Behavior ведёт врага, у которого есть цель. toTarget содержит ненормированное
// смещение от врага до цели.
type Behavior interface {
	Steer(e *world.Enemy, toTarget vmath.Vec2, rnd *rand.Rand)
	Shoots() bool
}

// For возвращает поведение для вида k.
func For(k world.EnemyKind) Behavior {
	switch k {
	case world.Medium:
		return hover{}
	case world.Boss:
		return orbit{}
	default:
		return skirmish{}
	}
}

// pursue направляет врага прямо на цель на полной скорости, если она
// дальше closeRange радиусов, и сообщает, сделал ли это.
func pursue(e *world.Enemy, toTarget vmath.Vec2) bool {
	dist := toTarget.Len()
	if dist <= closeRange*e.Radius {
		return false
	}
	e.Vel = toTarget.Scale(1 / dist).Scale(e.Speed)
	return true
}

// hover сближается с целью и гасит скорость рядом с ней.
type hover struct{}

func (hover) Shoots() bool { return true }

func (hover) Steer(e *world.Enemy, toTarget vmath.Vec2, _ *rand.Rand) {
	if pursue(e, toTarget) {
		return
	}
	e.Vel = e.Vel.Scale(hoverDecay)
}

// orbit сближается с целью и кружит вокруг неё на половине скорости.
type orbit struct{}

func (orbit) Shoots() bool { return true }

func (orbit) Steer(e *world.Enemy, toTarget vmath.Vec2, _ *rand.Rand) {
	if pursue(e, toTarget) {
		return
	}
	e.Vel = vmath.FromAngle(e.Rotation + math.Pi/2).Scale(e.Speed * 0.5)
}

// skirmish преследует рывками и иногда уходит в случайную сторону.
type skirmish struct{}

func (skirmish) Shoots() bool { return true }

func (skirmish) Steer(e *world.Enemy, toTarget vmath.Vec2, rnd *rand.Rand) {
	if rnd.Float64() < wanderChance {
		e.Vel = randomHeading(rnd).Scale(e.Speed * 0.5)
		return
	}
	dir := toTarget.Normalize()
	if dir == (vmath.Vec2{}) {
		dir = vmath.FromAngle(e.Rotation)
	}
	dir = vmath.V(
		dir.X+(rnd.Float64()*2-1)*jitter,
		dir.Y+(rnd.Float64()*2-1)*jitter,
	).Normalize()
	e.Vel = dir.Scale(e.Speed)
}

func randomHeading(rnd *rand.Rand) vmath.Vec2 {
	return vmath.FromAngle(rnd.Float64() * vmath.TwoPi)
}
