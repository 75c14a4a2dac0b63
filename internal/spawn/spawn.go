// Package spawn расставляет новые корабли и задаёт темп появления врагов.
package spawn

import (
	"math/rand"
	"time"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/physics"
	"github.com/annelo/starfall-server/internal/vmath"
	"github.com/annelo/starfall-server/internal/world"
)

// PlayerPoint выбирает равномерно случайную точку в круге появления вокруг
// центра мира и случайный курс.
func PlayerPoint(rnd *rand.Rand, g config.GameConfig) (vmath.Vec2, float64) {
	angle := rnd.Float64() * vmath.TwoPi
	dist := rnd.Float64() * g.SpawnRadius
	pos := g.Bounds().Center().Add(vmath.FromAngle(angle).Scale(dist))
	return pos, rnd.Float64() * vmath.TwoPi
}

// EnemyPoint выбирает точку на кольце двойного радиуса появления.
func EnemyPoint(rnd *rand.Rand, g config.GameConfig) vmath.Vec2 {
	angle := rnd.Float64() * vmath.TwoPi
	return g.Bounds().Center().Add(vmath.FromAngle(angle).Scale(2 * g.SpawnRadius))
}

// NewShip создаёт ещё не зарегистрированный корабль со стандартными характеристиками в точке появления.
func NewShip(rnd *rand.Rand, g config.GameConfig, now time.Time) *world.Player {
	pos, rot := PlayerPoint(rnd, g)
	s := g.Ship
	return &world.Player{
		Kinetics:   physics.Kinetics{Pos: pos, Radius: s.Radius},
		Room:       world.PublicRoom,
		Rotation:   vmath.NormalizeAngle(rot),
		Health:     s.MaxHealth,
		MaxHealth:  s.MaxHealth,
		Shield:     s.MaxShield,
		MaxShield:  s.MaxShield,
		Speed:      s.Speed,
		Damage:     s.Damage,
		LastUpdate: now,
		Connected:  true,
	}
}

// Respawn возвращает p в новую точку появления с полным запасом сил.
func Respawn(rnd *rand.Rand, g config.GameConfig, p *world.Player) {
	pos, rot := PlayerPoint(rnd, g)
	p.Respawn(pos, rot)
}

// NewEnemy создаёт ещё не зарегистрированного врага вида k по его шаблону.
func NewEnemy(rnd *rand.Rand, g config.GameConfig, k world.EnemyKind, now time.Time) *world.Enemy {
	t := g.Enemies.Of(k)
	return &world.Enemy{
		Kinetics:     physics.Kinetics{Pos: EnemyPoint(rnd, g), Radius: t.Radius},
		Kind:         k,
		Room:         world.PublicRoom,
		Health:       t.Health,
		MaxHealth:    t.Health,
		Speed:        t.Speed,
		Damage:       t.Damage,
		ScoreValue:   t.ScoreValue,
		FireInterval: t.FireInterval,
		LastUpdate:   now,
	}
}

// PickTarget возвращает равномерно случайный подключённый корабль публичной
// комнаты или ноль, если там никого нет.
func PickTarget(w *world.Store, rnd *rand.Rand) world.PlayerID {
	candidates := w.ConnectedIn(world.PublicRoom)
	if len(candidates) == 0 {
		return 0
	}
	return candidates[rnd.Intn(len(candidates))].ID
}

// Manager держит по таймеру на каждый вид врагов.
type Manager struct {
	cfg  config.GameConfig
	rnd  *rand.Rand
	last map[world.EnemyKind]time.Time
}

func NewManager(cfg config.GameConfig, rnd *rand.Rand) *Manager {
	return &Manager{
		cfg:  cfg,
		rnd:  rnd,
		last: make(map[world.EnemyKind]time.Time, len(world.EnemyKinds)),
	}
}

// Tick делает по попытке появления для каждого вида, чей интервал истёк,
// и возвращает добавленных врагов. Таймер сбрасывается при каждой попытке,
// даже если достигнут лимит.
func (m *Manager) Tick(w *world.Store, now time.Time) []*world.Enemy {
	var spawned []*world.Enemy
	for _, k := range world.EnemyKinds {
		t := m.cfg.Enemies.Of(k)
		if now.Sub(m.last[k]) < t.SpawnInterval {
			continue
		}
		m.last[k] = now
		if w.CountEnemies(k) >= t.MaxCount {
			continue
		}
		e := NewEnemy(m.rnd, m.cfg, k, now)
		e.Target = PickTarget(w, m.rnd)
		spawned = append(spawned, w.AddEnemy(e))
	}
	return spawned
}

// NextAttempt сообщает, когда вид k попробует появиться в следующий раз.
func (m *Manager) NextAttempt(k world.EnemyKind) time.Time {
	last, ok := m.last[k]
	if !ok {
		return time.Time{}
	}
	return last.Add(m.cfg.Enemies.Of(k).SpawnInterval)
}
