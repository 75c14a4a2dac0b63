// Package physics интегрирует движение и проверяет пересечения для всех видов сущностей.
package physics

import (
	"time"

	"github.com/annelo/starfall-server/internal/vmath"
)

// Kinetics хранит общее состояние положения кораблей, врагов и снарядов.
type Kinetics struct {
	Pos    vmath.Vec2
	Vel    vmath.Vec2
	Radius float64
}

// Kinetic позволяет любой структуре со встроенным Kinetics реализовать Movable.
func (k *Kinetics) Kinetic() *Kinetics { return k }

// Movable описывает всё, что интегратор может сдвинуть, а резолвер столкнуть.
type Movable interface {
	Kinetic() *Kinetics
}

// Bounds задаёт прямоугольник мира [0, Width] x [0, Height].
type Bounds struct {
	Width  float64
	Height float64
}

// Clamp возвращает p внутрь границ.
func (b Bounds) Clamp(p vmath.Vec2) vmath.Vec2 {
	return vmath.Vec2{
		X: vmath.Clamp(p.X, 0, b.Width),
		Y: vmath.Clamp(p.Y, 0, b.Height),
	}
}

// Center возвращает середину мира.
func (b Bounds) Center() vmath.Vec2 {
	return vmath.Vec2{X: b.Width / 2, Y: b.Height / 2}
}

// Advance сдвигает m по скорости за elapsedMillis и прижимает к границам b.
func Advance(m Movable, elapsedMillis float64, b Bounds) {
	k := m.Kinetic()
	k.Pos = b.Clamp(k.Pos.Add(k.Vel.Scale(elapsedMillis / 1000)))
}

// Elapsed возвращает число миллисекунд между last и now. При нулевом
// или отрицательном интервале берётся номинальная длина кадра.
func Elapsed(now, last time.Time, fallback time.Duration) float64 {
	if last.IsZero() {
		return millis(fallback)
	}
	d := now.Sub(last)
	if d <= 0 {
		return millis(fallback)
	}
	return millis(d)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
