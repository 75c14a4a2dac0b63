package gameloop

import (
	"context"
	"time"

	"github.com/annelo/starfall-server/internal/ai"
	"github.com/annelo/starfall-server/internal/combat"
	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/ship"
	"github.com/annelo/starfall-server/internal/snapshot"
	"github.com/annelo/starfall-server/internal/spawn"
)

// DefaultSystems возвращает фазы тика в обязательном порядке.
func DefaultSystems() []System {
	return []System{
		NewSpawnSystem(),
		NewProjectileSystem(),
		NewEnemySystem(),
		NewCombatSystem(),
		NewShipSystem(),
		NewReaperSystem(),
		NewBroadcastSystem(),
		NewStatsSystem(),
	}
}

func emitKills(d Dependencies, kills []combat.Kill) {
	for _, k := range kills {
		d.emit(Event{
			Kind:       PlayerKilled,
			Player:     k.Victim,
			Killer:     k.Killer,
			KillerName: k.KillerName,
			Enemy:      k.Enemy,
		})
	}
}

// SpawnSystem задаёт темп появления врагов.
type SpawnSystem struct {
	deps    Dependencies
	manager *spawn.Manager
}

func NewSpawnSystem() *SpawnSystem { return &SpawnSystem{} }

func (s *SpawnSystem) Name() string { return "spawn" }

func (s *SpawnSystem) Init(deps Dependencies) error {
	s.deps = deps
	s.manager = spawn.NewManager(deps.Config.Game, deps.Rand)
	return nil
}

func (s *SpawnSystem) Tick(_ context.Context, now time.Time) {
	for _, e := range s.manager.Tick(s.deps.World, now) {
		s.deps.logger().Debugw("enemy spawned", "enemy", e.ID, "kind", e.Kind, "target", e.Target)
		s.deps.emit(Event{Kind: EnemySpawned, Enemy: e.ID, EnemyKind: e.Kind, Room: e.Room})
	}
}

// ProjectileSystem удаляет истёкшие снаряды, двигает остальные и разрешает выстрелы по кораблям.
type ProjectileSystem struct {
	deps     Dependencies
	resolver *combat.Resolver
	warned   bool
}

func NewProjectileSystem() *ProjectileSystem { return &ProjectileSystem{} }

func (s *ProjectileSystem) Name() string { return "projectiles" }

func (s *ProjectileSystem) Init(deps Dependencies) error {
	s.deps = deps
	s.resolver = combat.NewResolver(deps.Config.Game, deps.Rand)
	return nil
}

func (s *ProjectileSystem) Tick(_ context.Context, now time.Time) {
	rep := s.resolver.Projectiles(s.deps.World, now)
	emitKills(s.deps, rep.Kills)

	n := s.deps.World.Counts().Projectiles
	limit := s.deps.Config.Game.ProjectileWarnThreshold
	switch {
	case limit > 0 && n > limit && !s.warned:
		s.deps.logger().Warnw("high projectile count", "projectiles", n, "threshold", limit)
		s.warned = true
	case n <= limit:
		s.warned = false
	}
}

// EnemySystem запускает ИИ врагов.
type EnemySystem struct {
	deps       Dependencies
	controller *ai.Controller
}

func NewEnemySystem() *EnemySystem { return &EnemySystem{} }

func (s *EnemySystem) Name() string { return "enemies" }

func (s *EnemySystem) Init(deps Dependencies) error {
	s.deps = deps
	s.controller = ai.NewController(deps.Config.Game, deps.Rand)
	return nil
}

func (s *EnemySystem) Tick(_ context.Context, now time.Time) {
	for _, e := range s.deps.World.Enemies() {
		s.controller.Update(s.deps.World, e, now)
	}
}

// CombatSystem разрешает попадания с участием врагов и столкновения корпусами.
type CombatSystem struct {
	deps     Dependencies
	resolver *combat.Resolver
}

func NewCombatSystem() *CombatSystem { return &CombatSystem{} }

func (s *CombatSystem) Name() string { return "combat" }

func (s *CombatSystem) Init(deps Dependencies) error {
	s.deps = deps
	s.resolver = combat.NewResolver(deps.Config.Game, deps.Rand)
	return nil
}

func (s *CombatSystem) Tick(_ context.Context, _ time.Time) {
	rep := s.resolver.Resolve(s.deps.World)
	for _, d := range rep.Destroyed {
		s.deps.logger().Debugw("enemy destroyed", "enemy", d.Enemy.ID, "shooter", d.Shooter)
		s.deps.emit(Event{
			Kind:      EnemyDestroyed,
			Enemy:     d.Enemy.ID,
			EnemyKind: d.Enemy.Kind,
			Player:    d.Shooter,
			Room:      d.Enemy.Room,
		})
	}
	emitKills(s.deps, rep.Kills)
}

// ShipSystem применяет намерения пилотов к подключённым кораблям.
type ShipSystem struct {
	deps       Dependencies
	controller *ship.Controller
}

func NewShipSystem() *ShipSystem { return &ShipSystem{} }

func (s *ShipSystem) Name() string { return "ships" }

func (s *ShipSystem) Init(deps Dependencies) error {
	s.deps = deps
	s.controller = ship.NewController(deps.Config.Game)
	return nil
}

func (s *ShipSystem) Tick(_ context.Context, now time.Time) {
	for _, p := range s.deps.World.Players() {
		if p.Connected {
			s.controller.Update(s.deps.World, p, now)
		}
	}
}

// ReaperSystem удаляет корабли, отключённые дольше льготного периода.
type ReaperSystem struct {
	deps Dependencies
}

func NewReaperSystem() *ReaperSystem { return &ReaperSystem{} }

func (s *ReaperSystem) Name() string { return "reaper" }

func (s *ReaperSystem) Init(deps Dependencies) error {
	s.deps = deps
	return nil
}

func (s *ReaperSystem) Tick(_ context.Context, now time.Time) {
	grace := s.deps.Config.Game.DisconnectGrace
	for _, p := range s.deps.World.Players() {
		if p.Connected || now.Sub(p.DisconnectedAt) < grace {
			continue
		}
		if err := s.deps.World.RemovePlayer(p.ID); err != nil {
			continue
		}
		s.deps.logger().Infow("player reaped", "player", p.ID, "disconnected_for", now.Sub(p.DisconnectedAt))
		s.deps.emit(Event{Kind: PlayerReaped, Player: p.ID, Room: p.Room})
	}
}

// BroadcastSystem отправляет каждому подключённому кораблю его снимок. Корабль
// с переполненным исходящим буфером пропускает тик; ошибка отправки отключает.
type BroadcastSystem struct {
	deps Dependencies
}

func NewBroadcastSystem() *BroadcastSystem { return &BroadcastSystem{} }

func (s *BroadcastSystem) Name() string { return "broadcast" }

func (s *BroadcastSystem) Init(deps Dependencies) error {
	s.deps = deps
	return nil
}

func (s *BroadcastSystem) Tick(_ context.Context, now time.Time) {
	out := s.deps.Outbox
	if out == nil {
		return
	}
	limit := s.deps.Config.Transport.SendBufferLimit
	for _, p := range s.deps.World.Players() {
		if !p.Connected {
			continue
		}
		if buffered := out.Buffered(p.ID); buffered >= limit {
			s.deps.logger().Warnw("high outbound buffer, skipping snapshot", "player", p.ID, "buffered", buffered)
			continue
		}
		st, ok := snapshot.Build(s.deps.World, p.ID, s.deps.Config.Game, now)
		if !ok {
			continue
		}
		if err := out.Send(p.ID, protocol.NewGameState(st)); err != nil {
			s.deps.logger().Warnw("send snapshot failed, marking disconnected", "player", p.ID, "error", err)
			p.Disconnect(now)
		}
	}
}

// StatsSystem периодически пишет в лог численность мира.
type StatsSystem struct {
	deps Dependencies
	last time.Time
}

func NewStatsSystem() *StatsSystem { return &StatsSystem{} }

func (s *StatsSystem) Name() string { return "stats" }

func (s *StatsSystem) Init(deps Dependencies) error {
	s.deps = deps
	return nil
}

func (s *StatsSystem) Tick(_ context.Context, now time.Time) {
	every := s.deps.Config.Game.StatsInterval
	if every <= 0 {
		return
	}
	if s.last.IsZero() {
		s.last = now
		return
	}
	if now.Sub(s.last) < every {
		return
	}
	s.last = now
	c := s.deps.World.Counts()
	s.deps.logger().Infow("world stats",
		"players", c.Players,
		"projectiles", c.Projectiles,
		"enemies", c.Enemies,
		"rooms", c.Rooms,
	)
}
