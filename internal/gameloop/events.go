package gameloop

import (
	"time"

	"github.com/annelo/starfall-server/internal/world"
)

// EventKind перечисляет игровые события, которые порождают системы.
type EventKind int

const (
	EnemySpawned EventKind = iota + 1
	EnemyDestroyed
	PlayerKilled
	PlayerReaped
	TickOverrun
)

func (k EventKind) String() string {
	switch k {
	case EnemySpawned:
		return "enemy_spawned"
	case EnemyDestroyed:
		return "enemy_destroyed"
	case PlayerKilled:
		return "player_killed"
	case PlayerReaped:
		return "player_reaped"
	case TickOverrun:
		return "tick_overrun"
	}
	return "unknown"
}

// Event несёт идентификаторы участников; поля, не относящиеся к Kind, нулевые.
type Event struct {
	Kind EventKind
	// Player указывает жертву, удалённый корабль или стрелка по врагу.
	Player     world.PlayerID
	Room       world.RoomID
	Killer     world.PlayerID
	KillerName string
	Enemy      string
	EnemyKind  world.EnemyKind
	Took       time.Duration
}
