package ai

import (
	"math/rand"
	"time"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/physics"
	"github.com/annelo/starfall-server/internal/spawn"
	"github.com/annelo/starfall-server/internal/world"
)

// Controller обновляет врагов раз в тик. Между тиками состояние хранится
// только в полях самого врага.
type Controller struct {
	cfg config.GameConfig
	rnd *rand.Rand
}

func NewController(cfg config.GameConfig, rnd *rand.Rand) *Controller {
	return &Controller{cfg: cfg, rnd: rnd}
}

// Target возвращает цель e. Если текущей цели нет или она отключилась,
// выбирается случайный подключённый корабль публичной комнаты. Если выбрать
// некого, возвращает nil.
func (c *Controller) Target(w *world.Store, e *world.Enemy) *world.Player {
	if e.Target != 0 {
		if p, ok := w.Player(e.Target); ok && p.Connected {
			return p
		}
	}
	e.Target = spawn.PickTarget(w, c.rnd)
	if e.Target == 0 {
		return nil
	}
	p, _ := w.Player(e.Target)
	return p
}

// Update поворачивает, стреляет и двигает e. Возвращает снаряд, выпущенный
// в этом тике (уже добавленный в w), или nil.
func (c *Controller) Update(w *world.Store, e *world.Enemy, now time.Time) *world.Projectile {
	elapsed := physics.Elapsed(now, e.LastUpdate, c.cfg.TickInterval())

	var shot *world.Projectile
	if target := c.Target(w, e); target != nil {
		toTarget := target.Pos.Sub(e.Pos)
		if toTarget.Len() > 0 {
			e.Rotation = toTarget.Angle()
		}
		b := For(e.Kind)
		b.Steer(e, toTarget, c.rnd)
		if b.Shoots() && now.Sub(e.LastFire) >= e.FireInterval {
			shot = c.fire(w, e, now)
		}
	} else if c.rnd.Float64() < idleTurnChance {
		e.Vel = randomHeading(c.rnd).Scale(e.Speed * 0.5)
	}

	physics.Advance(e, elapsed, c.cfg.Bounds())
	e.LastUpdate = now
	return shot
}

func (c *Controller) fire(w *world.Store, e *world.Enemy, now time.Time) *world.Projectile {
	p := world.NewProjectile(world.Shot{
		Origin:   e.Pos,
		Offset:   e.Radius,
		Rotation: e.Rotation,
		Speed:    c.cfg.ProjectileSpeed,
		Damage:   e.Damage,
		Radius:   c.cfg.ProjectileRadius,
		Lifetime: c.cfg.ProjectileLifetime,
	}, now)
	p.EnemyFired = true
	p.OwnerEnemy = e.ID
	p.Room = e.Room
	e.LastFire = now
	return w.AddProjectile(p)
}
