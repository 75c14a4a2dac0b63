// Package vmath содержит немного двумерной векторной математики для симуляции.
package vmath

import "math"

// TwoPi равен полному обороту в радианах.
const TwoPi = 2 * math.Pi

// Vec2 задаёт точку или направление в единицах мира.
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// V сокращённо записывает Vec2{x, y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

// FromAngle возвращает единичный вектор вдоль угла angle (в радианах).
func FromAngle(angle float64) Vec2 {
	return Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

// Len возвращает евклидову длину v.
func (v Vec2) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y) }

// Dist возвращает евклидово расстояние между v и o.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// Normalize возвращает v единичной длины. Нулевой вектор остаётся нулевым.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Angle возвращает atan2(y, x).
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

// NormalizeAngle приводит a к [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	// Остаток от крошечного отрицательного числа может округлиться ровно до 2π.
	if a >= TwoPi {
		a = 0
	}
	return a
}

// Clamp ограничивает x отрезком [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
