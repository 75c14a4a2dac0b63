// Package ship применяет буферизованные намерения пилотов к кораблям игроков.
package ship

import (
	"math"
	"time"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/physics"
	"github.com/annelo/starfall-server/internal/vmath"
	"github.com/annelo/starfall-server/internal/world"
)

const (
	thrustGain = 2
	drag       = 0.98
	// creep задаёт скорость по оси, ниже которой корабль без тяги останавливается.
	creep = 0.1
)

// Controller превращает намерения в движение и выстрелы.
type Controller struct {
	cfg config.GameConfig
}

func NewController(cfg config.GameConfig) *Controller {
	return &Controller{cfg: cfg}
}

// Update применяет текущий ввод p за время с прошлого обновления
// и возвращает снаряд этого тика (уже добавленный в w), если он есть.
func (c *Controller) Update(w *world.Store, p *world.Player, now time.Time) *world.Projectile {
	dt := physics.Elapsed(now, p.LastUpdate, c.cfg.TickInterval()) / 1000

	if p.Inputs.Thrust {
		p.Vel = p.Vel.Add(vmath.FromAngle(p.Rotation).Scale(p.Speed * thrustGain * dt))
		if speed := p.Vel.Len(); speed > p.Speed {
			p.Vel = p.Vel.Scale(p.Speed / speed)
		}
	} else {
		p.Vel = p.Vel.Scale(drag)
		if math.Abs(p.Vel.X) < creep {
			p.Vel.X = 0
		}
		if math.Abs(p.Vel.Y) < creep {
			p.Vel.Y = 0
		}
	}

	turn := c.cfg.Ship.RotationSpeed * dt
	if p.Inputs.RotateLeft {
		p.Rotation -= turn
	}
	if p.Inputs.RotateRight {
		p.Rotation += turn
	}
	p.Rotation = vmath.NormalizeAngle(p.Rotation)

	var shot *world.Projectile
	if p.Inputs.Fire && c.CanFire(w, p, now) {
		shot = c.fire(w, p, now)
	}

	if p.Shield < p.MaxShield {
		p.Shield = math.Min(p.MaxShield, p.Shield+c.cfg.Ship.ShieldRegen*dt)
	}

	physics.Advance(p, dt*1000, c.cfg.Bounds())
	p.LastUpdate = now
	return shot
}

// CanFire сообщает, остыло ли оружие и не превышен ли лимит снарядов p
// в полёте. Нужны оба условия.
func (c *Controller) CanFire(w *world.Store, p *world.Player, now time.Time) bool {
	if now.Sub(p.LastFire) < c.cfg.WeaponCooldown {
		return false
	}
	return w.OutstandingShots(p.ID) < c.cfg.MaxProjectiles
}

func (c *Controller) fire(w *world.Store, p *world.Player, now time.Time) *world.Projectile {
	shot := world.NewProjectile(world.Shot{
		Origin:   p.Pos,
		Offset:   p.Radius,
		Rotation: p.Rotation,
		Speed:    c.cfg.ProjectileSpeed,
		Damage:   p.Damage,
		Radius:   c.cfg.ProjectileRadius,
		Lifetime: c.cfg.ProjectileLifetime,
	}, now)
	shot.OwnerPlayer = p.ID
	shot.Room = p.Room
	p.LastFire = now
	return w.AddProjectile(shot)
}
