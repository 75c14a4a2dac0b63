// Package snapshot строит для каждого корабля его вид на мир.
package snapshot

import (
	"time"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/world"
)

// Build возвращает состояние мира глазами корабля id или false, если его нет.
// Корабли и их выстрелы ограничены комнатой смотрящего; враги и их
// выстрелы видны везде.
func Build(w *world.Store, id world.PlayerID, g config.GameConfig, now time.Time) (protocol.State, bool) {
	self, ok := w.Player(id)
	if !ok {
		return protocol.State{}, false
	}

	st := protocol.State{
		Self: protocol.Self{
			ID:        self.ID,
			Health:    self.Health,
			MaxHealth: self.MaxHealth,
			Shield:    self.Shield,
			MaxShield: self.MaxShield,
			Position:  self.Pos,
			Rotation:  self.Rotation,
			Velocity:  self.Vel,
			Score:     self.Score,
			Kills:     self.Kills,
			Deaths:    self.Deaths,
		},
		Players:     []protocol.PlayerView{},
		Projectiles: []protocol.ProjectileView{},
		Enemies:     []protocol.EnemyView{},
		WorldSize:   protocol.Size{Width: g.WorldWidth, Height: g.WorldHeight},
		Timestamp:   now.UnixMilli(),
	}

	for _, p := range w.Players() {
		if p.Room != self.Room {
			continue
		}
		st.Players = append(st.Players, protocol.PlayerView{
			ID:            p.ID,
			Name:          p.Name,
			Position:      p.Pos,
			Rotation:      p.Rotation,
			Health:        p.Health,
			MaxHealth:     p.MaxHealth,
			Shield:        p.Shield,
			MaxShield:     p.MaxShield,
			Radius:        p.Radius,
			Score:         p.Score,
			IsCurrentShip: p.ID == self.ID,
		})
	}

	for _, p := range w.Projectiles() {
		if !p.EnemyFired {
			owner, ok := w.Player(p.OwnerPlayer)
			if !ok || owner.Room != self.Room {
				continue
			}
		}
		st.Projectiles = append(st.Projectiles, protocol.ProjectileView{
			ID:       p.ID,
			Position: p.Pos,
			Owner:    p.OwnerID(),
			IsEnemy:  p.EnemyFired,
		})
	}

	for _, e := range w.Enemies() {
		st.Enemies = append(st.Enemies, protocol.EnemyView{
			ID:        e.ID,
			Kind:      e.Kind,
			Position:  e.Pos,
			Rotation:  e.Rotation,
			Health:    e.Health,
			MaxHealth: e.MaxHealth,
			Radius:    e.Radius,
		})
	}
	return st, true
}

// Ship возвращает полный вид p для приветствия.
func Ship(p *world.Player) protocol.Ship {
	return protocol.Ship{
		ID:        p.ID,
		Name:      p.Name,
		Room:      p.Room,
		Position:  p.Pos,
		Velocity:  p.Vel,
		Rotation:  p.Rotation,
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		Shield:    p.Shield,
		MaxShield: p.MaxShield,
		Speed:     p.Speed,
		Damage:    p.Damage,
		Radius:    p.Radius,
		Score:     p.Score,
		Kills:     p.Kills,
		Deaths:    p.Deaths,
	}
}

// Joined возвращает краткий вид p, который объявляется его комнате.
func Joined(p *world.Player) protocol.JoinedShip {
	return protocol.JoinedShip{ID: p.ID, Name: p.Name, Position: p.Pos, Rotation: p.Rotation}
}

// WorldConfig возвращает подмножество настроек для приветствия.
func WorldConfig(g config.GameConfig) protocol.WorldConfig {
	return protocol.WorldConfig{
		WorldWidth:     g.WorldWidth,
		WorldHeight:    g.WorldHeight,
		WeaponCooldown: g.WeaponCooldown.Milliseconds(),
	}
}
