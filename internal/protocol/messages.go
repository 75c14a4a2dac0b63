// Package protocol описывает сообщения, которыми сервер обменивается с клиентами.
package protocol

import (
	"github.com/annelo/starfall-server/internal/vmath"
	"github.com/annelo/starfall-server/internal/world"
)

// Типы сообщений клиента.
const (
	TypeInput      = "input"
	TypeChangeName = "changeName"
	TypePing       = "ping"
)

// Типы сообщений сервера.
const (
	TypeWelcome        = "welcome"
	TypeGameState      = "gameState"
	TypePlayerJoined   = "playerJoined"
	TypePlayerLeft     = "playerLeft"
	TypePlayerRenamed  = "playerRenamed"
	TypePlayerKilled   = "playerKilled"
	TypePong           = "pong"
	TypeServerShutdown = "serverShutdown"
)

// ClientMessage описывает любое сообщение клиента. Значимы только поля,
// относящиеся к Type.
type ClientMessage struct {
	Type      string            `json:"type"`
	Inputs    *world.InputPatch `json:"inputs,omitempty"`
	Name      string            `json:"name,omitempty"`
	Timestamp float64           `json:"timestamp,omitempty"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Ship описывает полный вид корабля, который отправляется один раз в приветствии.
type Ship struct {
	ID        world.PlayerID `json:"id"`
	Name      string         `json:"name"`
	Room      world.RoomID   `json:"roomId"`
	Position  vmath.Vec2     `json:"position"`
	Velocity  vmath.Vec2     `json:"velocity"`
	Rotation  float64        `json:"rotation"`
	Health    float64        `json:"health"`
	MaxHealth float64        `json:"maxHealth"`
	Shield    float64        `json:"shield"`
	MaxShield float64        `json:"maxShield"`
	Speed     float64        `json:"speed"`
	Damage    float64        `json:"damage"`
	Radius    float64        `json:"radius"`
	Score     int            `json:"score"`
	Kills     int            `json:"kills"`
	Deaths    int            `json:"deaths"`
}

// WorldConfig содержит подмножество настроек, нужное клиенту.
type WorldConfig struct {
	WorldWidth  float64 `json:"worldWidth"`
	WorldHeight float64 `json:"worldHeight"`
	// WeaponCooldown задаётся в миллисекундах.
	WeaponCooldown int64 `json:"weaponCooldown"`
}

type Welcome struct {
	Type   string         `json:"type"`
	ID     world.PlayerID `json:"id"`
	Ship   Ship           `json:"ship"`
	Config WorldConfig    `json:"config"`
}

type Self struct {
	ID        world.PlayerID `json:"id"`
	Health    float64        `json:"health"`
	MaxHealth float64        `json:"maxHealth"`
	Shield    float64        `json:"shield"`
	MaxShield float64        `json:"maxShield"`
	Position  vmath.Vec2     `json:"position"`
	Rotation  float64        `json:"rotation"`
	Velocity  vmath.Vec2     `json:"velocity"`
	Score     int            `json:"score"`
	Kills     int            `json:"kills"`
	Deaths    int            `json:"deaths"`
}

type PlayerView struct {
	ID            world.PlayerID `json:"id"`
	Name          string         `json:"name"`
	Position      vmath.Vec2     `json:"position"`
	Rotation      float64        `json:"rotation"`
	Health        float64        `json:"health"`
	MaxHealth     float64        `json:"maxHealth"`
	Shield        float64        `json:"shield"`
	MaxShield     float64        `json:"maxShield"`
	Radius        float64        `json:"radius"`
	Score         int            `json:"score"`
	IsCurrentShip bool           `json:"isCurrentPlayer"`
}

type ProjectileView struct {
	ID       string     `json:"id"`
	Position vmath.Vec2 `json:"position"`
	// Owner содержит id корабля для его выстрелов и id врага для вражеских.
	Owner   string `json:"playerId"`
	IsEnemy bool   `json:"isEnemyProjectile"`
}

type EnemyView struct {
	ID        string          `json:"id"`
	Kind      world.EnemyKind `json:"type"`
	Position  vmath.Vec2      `json:"position"`
	Rotation  float64         `json:"rotation"`
	Health    float64         `json:"health"`
	MaxHealth float64         `json:"maxHealth"`
	Radius    float64         `json:"radius"`
}

// State описывает мир глазами одного корабля в момент тика.
type State struct {
	Self        Self             `json:"self"`
	Players     []PlayerView     `json:"players"`
	Projectiles []ProjectileView `json:"projectiles"`
	Enemies     []EnemyView      `json:"enemies"`
	WorldSize   Size             `json:"worldSize"`
	// Timestamp задаётся в миллисекундах unix-времени.
	Timestamp int64 `json:"timestamp"`
}

type GameState struct {
	Type string `json:"type"`
	Data State  `json:"data"`
}

func NewGameState(s State) GameState { return GameState{Type: TypeGameState, Data: s} }

type JoinedShip struct {
	ID       world.PlayerID `json:"id"`
	Name     string         `json:"name"`
	Position vmath.Vec2     `json:"position"`
	Rotation float64        `json:"rotation"`
}

type PlayerJoined struct {
	Type   string     `json:"type"`
	Player JoinedShip `json:"player"`
}

func NewPlayerJoined(p JoinedShip) PlayerJoined {
	return PlayerJoined{Type: TypePlayerJoined, Player: p}
}

type PlayerLeft struct {
	Type     string         `json:"type"`
	PlayerID world.PlayerID `json:"playerId"`
}

func NewPlayerLeft(id world.PlayerID) PlayerLeft {
	return PlayerLeft{Type: TypePlayerLeft, PlayerID: id}
}

type PlayerRenamed struct {
	Type     string         `json:"type"`
	PlayerID world.PlayerID `json:"playerId"`
	OldName  string         `json:"oldName"`
	NewName  string         `json:"newName"`
}

func NewPlayerRenamed(id world.PlayerID, oldName, newName string) PlayerRenamed {
	return PlayerRenamed{Type: TypePlayerRenamed, PlayerID: id, OldName: oldName, NewName: newName}
}

type PlayerKilled struct {
	Type       string         `json:"type"`
	KillerID   world.PlayerID `json:"killerId"`
	KillerName string         `json:"killerName"`
}

func NewPlayerKilled(killer world.PlayerID, name string) PlayerKilled {
	return PlayerKilled{Type: TypePlayerKilled, KillerID: killer, KillerName: name}
}

type Pong struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
}

func NewPong(ts float64) Pong { return Pong{Type: TypePong, Timestamp: ts} }

type ServerShutdown struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewServerShutdown(msg string) ServerShutdown {
	return ServerShutdown{Type: TypeServerShutdown, Message: msg}
}
