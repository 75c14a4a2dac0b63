package gameloop

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/world"
)

// System описывает одну фазу тика; фазы идут в порядке регистрации.
type System interface {
	// Init вызывается один раз до старта цикла.
	Init(deps Dependencies) error
	// Tick выполняет фазу для тика с отметкой now. Блокировка мира удерживается.
	Tick(ctx context.Context, now time.Time)
	// Name возвращает читаемое имя системы.
	Name() string
}

// Outbox доставляет сообщения подключённым кораблям.
type Outbox interface {
	// Send ставит msg в очередь корабля id. Любая ошибка значит, что корабль недоступен.
	Send(id world.PlayerID, msg any) error
	// Buffered возвращает число байт в очереди корабля id.
	Buffered(id world.PlayerID) int
}

// Dependencies передаются системам в Init.
type Dependencies struct {
	World  *world.Store
	Config *config.Config
	Rand   *rand.Rand
	Logger *zap.SugaredLogger
	Outbox Outbox
	// Emit сообщает об игровых событиях. Вызывается в горутине тика под
	// блокировкой мира и не должен блокироваться или захватывать мир.
	Emit func(Event)
}

func (d Dependencies) emit(e Event) {
	if d.Emit != nil {
		d.Emit(e)
	}
}

func (d Dependencies) logger() *zap.SugaredLogger {
	if d.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return d.Logger
}
