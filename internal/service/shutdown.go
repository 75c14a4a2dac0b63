package service

import (
	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/registry"
	"github.com/annelo/starfall-server/internal/world"
)

// ShutdownMessage рассылается всем подключённым кораблям при остановке.
const ShutdownMessage = "Server is shutting down"

// Shutdown отклоняет новые подключения и сообщает всем подключённым
// кораблям, что сервер уходит. Доставка не гарантируется; вызывающий ждёт
// льготный период перед закрытием транспорта.
func (s *GameService) Shutdown() {
	if s.shuttingDown.Swap(true) {
		return
	}
	s.health.Shutdown()

	s.world.Lock()
	var ids []world.PlayerID
	for _, p := range s.world.Players() {
		if p.Connected {
			ids = append(ids, p.ID)
		}
	}
	s.world.Unlock()

	failed := s.deliver(ids, protocol.NewServerShutdown(ShutdownMessage))
	s.logger.Infow("shutdown notice sent", "players", len(ids), "failed", len(failed))
	s.registry.Fire(registry.HookServerShutdown, len(ids))
}

// ShuttingDown сообщает, вызывался ли Shutdown.
func (s *GameService) ShuttingDown() bool { return s.shuttingDown.Load() }
