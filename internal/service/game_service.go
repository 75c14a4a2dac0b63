// Package service открывает симуляцию транспорту: жизненный цикл
// подключений, намерения пилотов, статус и комнаты.
package service

import (
	"errors"
	"expvar"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/gameloop"
	"github.com/annelo/starfall-server/internal/registry"
	"github.com/annelo/starfall-server/internal/world"
)

var (
	ErrNameInvalid      = errors.New("name must be between 1 and the maximum length")
	ErrRoomNameRequired = errors.New("room name is required")
	ErrShuttingDown     = errors.New("server is shutting down")
	// ErrRoomFull возвращается из Connect, когда публичная комната заполнена.
	ErrRoomFull = world.ErrRoomFull
)

// GameService владеет миром и циклом тиков.
type GameService struct {
	logger   *zap.SugaredLogger
	cfg      *config.Config
	world    *world.Store
	registry *registry.Registry
	// rnd используется только под блокировкой мира.
	rnd   *rand.Rand
	clock func() time.Time

	outMu  sync.RWMutex
	outbox gameloop.Outbox

	loopMu sync.Mutex
	loop   atomic.Pointer[gameloop.Loop]

	health       *health.Server
	started      time.Time
	shuttingDown atomic.Bool
}

// New создаёт сервис и регистрирует в reg основные системы тика.
func New(cfg *config.Config, reg *registry.Registry) *GameService {
	for _, sys := range gameloop.DefaultSystems() {
		reg.RegisterGameSystem(sys)
	}
	now := time.Now()
	return &GameService{
		logger:   zap.NewNop().Sugar(),
		cfg:      cfg,
		world:    world.NewStore(cfg.Game.PublicRoomCapacity, now),
		registry: reg,
		rnd:      rand.New(rand.NewSource(now.UnixNano())),
		clock:    time.Now,
		health:   health.NewServer(),
		started:  now,
	}
}

// SetLogger заменяет логгер-заглушку по умолчанию.
func (s *GameService) SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		s.logger = l.Named("service")
	}
}

// SetOutbox подключает транспорт, доставляющий сообщения.
func (s *GameService) SetOutbox(o gameloop.Outbox) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	s.outbox = o
}

// SetClock подменяет часы и задаёт зерно генератора случайных чисел. Используется в тестах.
func (s *GameService) SetClock(clock func() time.Time, seed int64) {
	s.world.Lock()
	defer s.world.Unlock()
	s.clock = clock
	s.rnd = rand.New(rand.NewSource(seed))
}

// World возвращает хранилище. Вызывающий должен держать его блокировку.
func (s *GameService) World() *world.Store { return s.world }

func (s *GameService) Config() *config.Config { return s.cfg }

// relay пересылает сообщения в подключённый сейчас outbox, поэтому цикл
// можно собрать до появления транспорта.
type relay struct{ s *GameService }

func (r relay) current() gameloop.Outbox {
	r.s.outMu.RLock()
	defer r.s.outMu.RUnlock()
	return r.s.outbox
}

func (r relay) Send(id world.PlayerID, msg any) error {
	o := r.current()
	if o == nil {
		return errNoOutbox
	}
	return o.Send(id, msg)
}

func (r relay) Buffered(id world.PlayerID) int {
	if o := r.current(); o != nil {
		return o.Buffered(id)
	}
	return 0
}

var errNoOutbox = errors.New("no outbox wired")

// send доставляет msg кораблю id и сообщает, принято ли сообщение.
func (s *GameService) send(id world.PlayerID, msg any) bool {
	if err := (relay{s}).Send(id, msg); err != nil {
		s.logger.Debugw("send failed", "player", id, "error", err)
		return false
	}
	return true
}

// deliver отправляет msg каждому id и возвращает тех, кому не удалось.
func (s *GameService) deliver(ids []world.PlayerID, msg any) []world.PlayerID {
	var failed []world.PlayerID
	for _, id := range ids {
		if !s.send(id, msg) {
			failed = append(failed, id)
		}
	}
	return failed
}

// markDisconnected помечает недоступные корабли. Вызывающий не должен держать блокировку.
func (s *GameService) markDisconnected(ids []world.PlayerID) {
	if len(ids) == 0 {
		return
	}
	now := s.clock()
	s.world.Lock()
	defer s.world.Unlock()
	for _, id := range ids {
		if p, ok := s.world.Player(id); ok && p.Connected {
			p.Disconnect(now)
		}
	}
}

// others возвращает подключённые корабли комнаты, кроме id.
func (s *GameService) others(room world.RoomID, id world.PlayerID) []world.PlayerID {
	var out []world.PlayerID
	for _, p := range s.world.ConnectedIn(room) {
		if p.ID != id {
			out = append(out, p.ID)
		}
	}
	return out
}

func counter(name string) *expvar.Int {
	return expvar.Get(name).(*expvar.Int)
}

func init() {
	ensureCounter := func(name string) {
		if expvar.Get(name) == nil {
			expvar.NewInt(name)
		}
	}
	for _, name := range []string{
		"players_connected",
		"players_disconnected",
		"players_killed",
		"players_reaped",
		"enemies_spawned",
		"enemies_destroyed",
		"tick_overruns",
	} {
		ensureCounter(name)
	}
}
