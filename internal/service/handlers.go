package service

import (
	"fmt"
	"unicode/utf8"

	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/registry"
	"github.com/annelo/starfall-server/internal/snapshot"
	"github.com/annelo/starfall-server/internal/spawn"
	"github.com/annelo/starfall-server/internal/world"
)

// Connect создаёт корабль в публичной комнате и отправляет ему приветствие.
// bind вызывается под блокировкой мира до любой отправки новому кораблю,
// чтобы транспорт знал маршрут к id до первого снимка.
func (s *GameService) Connect(bind func(world.PlayerID)) (world.PlayerID, error) {
	if s.shuttingDown.Load() {
		return 0, ErrShuttingDown
	}

	s.world.Lock()
	now := s.clock()
	p, err := s.world.AddPlayer(spawn.NewShip(s.rnd, s.cfg.Game, now))
	if err != nil {
		s.world.Unlock()
		return 0, fmt.Errorf("connect: %w", err)
	}
	if bind != nil {
		bind(p.ID)
	}
	welcomed := s.send(p.ID, protocol.Welcome{
		Type:   protocol.TypeWelcome,
		ID:     p.ID,
		Ship:   snapshot.Ship(p),
		Config: snapshot.WorldConfig(s.cfg.Game),
	})
	joined := protocol.NewPlayerJoined(snapshot.Joined(p))
	others := s.others(p.Room, p.ID)
	s.world.Unlock()

	counter("players_connected").Add(1)
	s.logger.Infow("player connected", "player", p.ID, "name", p.Name)
	s.registry.Fire(registry.HookPlayerConnected, p.ID)

	failed := s.deliver(others, joined)
	if !welcomed {
		failed = append(failed, p.ID)
	}
	s.markDisconnected(failed)
	return p.ID, nil
}

// Intent сливает частичное обновление ввода с буферизованными намерениями корабля.
func (s *GameService) Intent(id world.PlayerID, patch world.InputPatch) error {
	s.world.Lock()
	defer s.world.Unlock()
	p, ok := s.world.Player(id)
	if !ok {
		return world.ErrPlayerNotFound
	}
	p.Inputs.Merge(patch)
	return nil
}

// Rename меняет имя корабля и сообщает об этом остальной комнате.
func (s *GameService) Rename(id world.PlayerID, name string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > s.cfg.Game.MaxNameLength {
		return fmt.Errorf("%w: got %d characters, max %d", ErrNameInvalid, n, s.cfg.Game.MaxNameLength)
	}

	s.world.Lock()
	p, ok := s.world.Player(id)
	if !ok {
		s.world.Unlock()
		return world.ErrPlayerNotFound
	}
	oldName := p.Name
	p.Name = name
	others := s.others(p.Room, id)
	s.world.Unlock()

	s.logger.Infow("player renamed", "player", id, "old", oldName, "new", name)
	s.registry.Fire(registry.HookPlayerRenamed, id, oldName, name)
	s.markDisconnected(s.deliver(others, protocol.NewPlayerRenamed(id, oldName, name)))
	return nil
}

// Ping возвращает клиенту его отметку времени.
func (s *GameService) Ping(id world.PlayerID, timestamp float64) {
	if !s.send(id, protocol.NewPong(timestamp)) {
		s.markDisconnected([]world.PlayerID{id})
	}
}

// Disconnect помечает корабль ушедшим и один раз сообщает об этом комнате,
// даже если корабль уже пометила неудачная отправка. Корабль остаётся в мире,
// пока его не удалит reaper.
func (s *GameService) Disconnect(id world.PlayerID, code int) {
	s.world.Lock()
	p, ok := s.world.Player(id)
	if !ok || p.Departed {
		s.world.Unlock()
		return
	}
	p.Disconnect(s.clock())
	p.Departed = true
	room := p.Room
	others := s.others(room, id)
	s.world.Unlock()

	counter("players_disconnected").Add(1)
	s.logger.Infow("player disconnected", "player", id, "code", code)
	s.registry.Fire(registry.HookPlayerDisconnected, id, code)
	s.markDisconnected(s.deliver(others, protocol.NewPlayerLeft(id)))
}
