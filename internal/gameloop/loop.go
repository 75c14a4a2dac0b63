package gameloop

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/annelo/starfall-server/internal/world"
)

// Loop запускает каждую систему раз в тик с фиксированной частотой.
type Loop struct {
	systems []System
	tickDur time.Duration
	world   *world.Store
	deps    Dependencies
	logger  *zap.SugaredLogger
	ticks   atomic.Uint64
}

// NewLoop инициализирует системы с deps и возвращает цикл с шагом tick.
func NewLoop(tick time.Duration, deps Dependencies, systems ...System) *Loop {
	logger := deps.logger().Named("gameloop")
	for _, s := range systems {
		if err := s.Init(deps); err != nil {
			logger.Errorw("init system", "system", s.Name(), "error", err)
		}
	}
	return &Loop{
		systems: systems,
		tickDur: tick,
		world:   deps.World,
		deps:    deps,
		logger:  logger,
	}
}

// Systems возвращает системы в порядке запуска.
func (l *Loop) Systems() []System { return l.systems }

// Ticks возвращает число выполненных шагов.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Step выполняет один тик в момент now под блокировкой мира. Паника
// в системе логируется, следующие системы всё равно выполняются.
func (l *Loop) Step(ctx context.Context, now time.Time) {
	start := time.Now()
	l.world.Lock()
	for _, s := range l.systems {
		l.run(ctx, s, now)
	}
	l.world.Unlock()
	l.ticks.Add(1)

	if took := time.Since(start); took > l.tickDur {
		l.logger.Warnw("tick overrun", "took", took, "budget", l.tickDur)
		l.deps.emit(Event{Kind: TickOverrun, Took: took})
	}
}

func (l *Loop) run(ctx context.Context, sys System, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorw("system panic", "system", sys.Name(), "panic", r)
		}
	}()
	sys.Tick(ctx, now)
}

// Run крутит цикл до отмены ctx.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tickDur)
	defer ticker.Stop()

	l.logger.Infow("started", "interval", l.tickDur, "systems", len(l.systems))
	for {
		select {
		case t := <-ticker.C:
			l.Step(ctx, t)
		case <-ctx.Done():
			l.logger.Info("stopped")
			return
		}
	}
}
