// Package combat двигает снаряды и разрешает попадания, столкновения и убийства.
package combat

import (
	"math/rand"
	"time"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/physics"
	"github.com/annelo/starfall-server/internal/spawn"
	"github.com/annelo/starfall-server/internal/world"
)

// Kill описывает корабль, уничтоженный в этом тике. Killer равен нулю,
// если убил враг; тогда Enemy указывает виновника.
type Kill struct {
	Victim     world.PlayerID
	Killer     world.PlayerID
	KillerName string
	Enemy      string
}

// Destroyed описывает врага, сбитого в этом тике.
type Destroyed struct {
	Enemy   *world.Enemy
	Shooter world.PlayerID
}

// Report собирает итоги одного прохода.
type Report struct {
	Kills     []Kill
	Destroyed []Destroyed
	Expired   int
	Orphaned  int
}

func (r *Report) merge(o Report) {
	r.Kills = append(r.Kills, o.Kills...)
	r.Destroyed = append(r.Destroyed, o.Destroyed...)
	r.Expired += o.Expired
	r.Orphaned += o.Orphaned
}

type Resolver struct {
	cfg config.GameConfig
	rnd *rand.Rand
}

func NewResolver(cfg config.GameConfig, rnd *rand.Rand) *Resolver {
	return &Resolver{cfg: cfg, rnd: rnd}
}

// Projectiles выполняет фазу снарядов: истёкшие удаляются, остальные
// летят дальше, снаряды пропавших пилотов отбрасываются, а выстрелы
// кораблей проверяются по другим кораблям той же комнаты.
func (r *Resolver) Projectiles(w *world.Store, now time.Time) Report {
	var rep Report
	bounds := r.cfg.Bounds()
	for _, p := range w.Projectiles() {
		if p.Expired(now) {
			w.RemoveProjectile(p.ID)
			rep.Expired++
			continue
		}
		physics.Advance(p, physics.Elapsed(now, p.LastUpdate, r.cfg.TickInterval()), bounds)
		p.LastUpdate = now

		if p.EnemyFired {
			continue
		}
		shooter, ok := w.Player(p.OwnerPlayer)
		if !ok || !shooter.Connected {
			w.RemoveProjectile(p.ID)
			rep.Orphaned++
			continue
		}
		if k, hit := r.pvp(w, p, shooter); hit {
			w.RemoveProjectile(p.ID)
			if k != nil {
				rep.Kills = append(rep.Kills, *k)
			}
		}
	}
	return rep
}

// pvp проверяет выстрел корабля по всем остальным кораблям комнаты стрелка.
// Засчитывается первое попадание.
func (r *Resolver) pvp(w *world.Store, p *world.Projectile, shooter *world.Player) (*Kill, bool) {
	for _, victim := range w.ConnectedIn(shooter.Room) {
		if victim.ID == shooter.ID || !physics.Overlaps(p, victim) {
			continue
		}
		if !victim.TakeDamage(p.Damage) {
			return nil, true
		}
		shooter.Score += r.cfg.PlayerKillScore
		shooter.Kills++
		spawn.Respawn(r.rnd, r.cfg, victim)
		return &Kill{Victim: victim.ID, Killer: shooter.ID, KillerName: shooter.Name}, true
	}
	return nil, false
}

// Resolve по порядку выполняет три прохода с врагами: выстрелы кораблей
// по врагам, выстрелы врагов по кораблям, затем столкновения корпусами.
func (r *Resolver) Resolve(w *world.Store) Report {
	var rep Report
	rep.merge(r.shotsOnEnemies(w))
	rep.merge(r.shotsOnShips(w))
	rep.merge(r.contact(w))
	return rep
}

func (r *Resolver) shotsOnEnemies(w *world.Store) Report {
	var rep Report
	for _, p := range w.Projectiles() {
		if p.EnemyFired {
			continue
		}
		for _, e := range w.Enemies() {
			if e.Room != p.Room || !physics.Overlaps(p, e) {
				continue
			}
			e.Health -= p.Damage
			w.RemoveProjectile(p.ID)
			if e.Health <= 0 {
				if shooter, ok := w.Player(p.OwnerPlayer); ok {
					shooter.Score += e.ScoreValue
				}
				w.RemoveEnemy(e.ID)
				rep.Destroyed = append(rep.Destroyed, Destroyed{Enemy: e, Shooter: p.OwnerPlayer})
			}
			break
		}
	}
	return rep
}

func (r *Resolver) shotsOnShips(w *world.Store) Report {
	var rep Report
	for _, p := range w.Projectiles() {
		if !p.EnemyFired {
			continue
		}
		for _, victim := range w.ConnectedIn(p.Room) {
			if !physics.Overlaps(p, victim) {
				continue
			}
			if victim.TakeDamage(p.Damage) {
				spawn.Respawn(r.rnd, r.cfg, victim)
				rep.Kills = append(rep.Kills, Kill{Victim: victim.ID, Enemy: p.OwnerEnemy})
			}
			w.RemoveProjectile(p.ID)
			break
		}
	}
	return rep
}

func (r *Resolver) contact(w *world.Store) Report {
	var rep Report
	bounds := r.cfg.Bounds()
	for _, e := range w.Enemies() {
		for _, victim := range w.ConnectedIn(e.Room) {
			if !physics.Overlaps(e, victim) {
				continue
			}
			if victim.TakeDamage(e.Damage * r.cfg.ContactDamageMultiplier) {
				spawn.Respawn(r.rnd, r.cfg, victim)
				rep.Kills = append(rep.Kills, Kill{Victim: victim.ID, Enemy: e.ID})
			}
			// возрождённая жертва уже не пересекается с врагом
			if physics.Overlaps(e, victim) {
				physics.Separate(e, victim, bounds)
			}
		}
	}
	return rep
}
