package service

import (
	"context"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/annelo/starfall-server/internal/gameloop"
	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/registry"
)

// Loop возвращает цикл тиков и при первом вызове собирает его из
// зарегистрированных систем.
func (s *GameService) Loop() *gameloop.Loop {
	if l := s.loop.Load(); l != nil {
		return l
	}
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if l := s.loop.Load(); l != nil {
		return l
	}
	deps := gameloop.Dependencies{
		World:  s.world,
		Config: s.cfg,
		Rand:   s.rnd,
		Logger: s.logger,
		Outbox: relay{s},
		Emit:   s.handleEvent,
	}
	l := gameloop.NewLoop(s.cfg.Game.TickInterval(), deps, s.registry.GameSystems()...)
	s.loop.Store(l)
	return l
}

// Start крутит цикл тиков до отмены ctx и всё это время отвечает SERVING
// в health-сервисе.
func (s *GameService) Start(ctx context.Context) {
	loop := s.Loop()
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)
	go func() {
		loop.Run(ctx)
		s.health.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}()
}

// handleEvent превращает игровые события в уведомления, хуки и счётчики.
// Вызывается в горутине тика под блокировкой мира.
func (s *GameService) handleEvent(e gameloop.Event) {
	switch e.Kind {
	case gameloop.PlayerKilled:
		counter("players_killed").Add(1)
		if e.Killer != 0 {
			if !s.send(e.Player, protocol.NewPlayerKilled(e.Killer, e.KillerName)) {
				if p, ok := s.world.Player(e.Player); ok {
					p.Disconnect(s.clock())
				}
			}
		}
		s.registry.Fire(registry.HookPlayerKilled, e.Player, e.Killer, e.Enemy)
	case gameloop.PlayerReaped:
		counter("players_reaped").Add(1)
		s.registry.Fire(registry.HookPlayerReaped, e.Player)
	case gameloop.EnemySpawned:
		counter("enemies_spawned").Add(1)
		s.registry.Fire(registry.HookEnemySpawned, e.Enemy, e.EnemyKind)
	case gameloop.EnemyDestroyed:
		counter("enemies_destroyed").Add(1)
		s.registry.Fire(registry.HookEnemyDestroyed, e.Enemy, e.Player)
	case gameloop.TickOverrun:
		counter("tick_overruns").Add(1)
	}
}
