package physics

// Overlaps сообщает, пересекаются ли окружности a и b: расстояние между
// центрами строго меньше суммы радиусов.
func Overlaps(a, b Movable) bool {
	ka, kb := a.Kinetic(), b.Kinetic()
	return ka.Pos.Dist(kb.Pos) < ka.Radius+kb.Radius
}

// Separate отталкивает mover от anchor вдоль линии центров до касания.
// При совпадающих центрах направления нет, и ничего не меняется.
func Separate(mover, anchor Movable, b Bounds) {
	km, ka := mover.Kinetic(), anchor.Kinetic()
	d := km.Pos.Sub(ka.Pos)
	dist := d.Len()
	if dist == 0 {
		return
	}
	push := (km.Radius + ka.Radius) / dist
	km.Pos = b.Clamp(ka.Pos.Add(d.Scale(push)))
}
