// Package world хранит авторитетное состояние игры: корабли, врагов,
// снаряды и комнаты, которые их разделяют.
package world

import (
	"strconv"
	"time"

	"github.com/annelo/starfall-server/internal/physics"
	"github.com/annelo/starfall-server/internal/vmath"
)

// PlayerID идентифицирует корабль. Ноль никогда не выдаётся и означает «никто».
type PlayerID uint64

func (id PlayerID) String() string { return strconv.FormatUint(uint64(id), 10) }

// RoomID идентифицирует комнату.
type RoomID string

// PublicRoom существует всегда; при подключении каждый корабль попадает в неё.
const PublicRoom RoomID = "public"

// Inputs хранит намерения клиента, которые читаются раз в тик.
type Inputs struct {
	Thrust      bool `json:"thrust" msgpack:"thrust"`
	RotateLeft  bool `json:"rotateLeft" msgpack:"rotateLeft"`
	RotateRight bool `json:"rotateRight" msgpack:"rotateRight"`
	Fire        bool `json:"fire" msgpack:"fire"`
}

// InputPatch несёт частичное обновление Inputs; nil-поля сохраняют значение.
type InputPatch struct {
	Thrust      *bool `json:"thrust,omitempty" msgpack:"thrust,omitempty"`
	RotateLeft  *bool `json:"rotateLeft,omitempty" msgpack:"rotateLeft,omitempty"`
	RotateRight *bool `json:"rotateRight,omitempty" msgpack:"rotateRight,omitempty"`
	Fire        *bool `json:"fire,omitempty" msgpack:"fire,omitempty"`
}

// Merge применяет не-nil поля p по одному ключу.
func (in *Inputs) Merge(p InputPatch) {
	if p.Thrust != nil {
		in.Thrust = *p.Thrust
	}
	if p.RotateLeft != nil {
		in.RotateLeft = *p.RotateLeft
	}
	if p.RotateRight != nil {
		in.RotateRight = *p.RotateRight
	}
	if p.Fire != nil {
		in.Fire = *p.Fire
	}
}

// Player описывает подключённый (или недавно отключившийся) корабль.
type Player struct {
	physics.Kinetics

	ID       PlayerID
	Name     string
	Room     RoomID
	Rotation float64
	Inputs   Inputs

	Health    float64
	MaxHealth float64
	Shield    float64
	MaxShield float64
	Speed     float64
	Damage    float64

	LastFire   time.Time
	LastUpdate time.Time

	Score  int
	Kills  int
	Deaths int

	Connected      bool
	DisconnectedAt time.Time
	// Departed выставляется, когда комнате уже сообщили об уходе корабля.
	Departed bool
}

// TakeDamage сначала расходует щит, а остаток снимает со здоровья.
// Здоровье не опускается ниже нуля; результат сообщает об убийстве.
func (p *Player) TakeDamage(amount float64) bool {
	if amount <= 0 {
		return p.Health <= 0
	}
	if p.Shield > 0 {
		if p.Shield >= amount {
			p.Shield -= amount
			amount = 0
		} else {
			amount -= p.Shield
			p.Shield = 0
		}
	}
	if amount > 0 {
		p.Health -= amount
		if p.Health < 0 {
			p.Health = 0
		}
	}
	return p.Health <= 0
}

// Respawn возвращает корабль в новую точку появления с полным запасом сил
// и засчитывает смерть. Очки, убийства и ввод сохраняются.
func (p *Player) Respawn(at vmath.Vec2, rotation float64) {
	p.Pos = at
	p.Rotation = vmath.NormalizeAngle(rotation)
	p.Vel = vmath.Vec2{}
	p.Health = p.MaxHealth
	p.Shield = p.MaxShield
	p.Deaths++
}

// Disconnect помечает корабль ушедшим. В хранилище он остаётся до удаления.
func (p *Player) Disconnect(now time.Time) {
	if !p.Connected {
		return
	}
	p.Connected = false
	p.DisconnectedAt = now
}

// EnemyKind выбирает шаблон характеристик и поведение врага.
type EnemyKind string

const (
	Basic  EnemyKind = "basic"
	Medium EnemyKind = "medium"
	Boss   EnemyKind = "boss"
)

// EnemyKinds перечисляет все виды в порядке появления.
var EnemyKinds = []EnemyKind{Basic, Medium, Boss}

// Enemy описывает корабль под управлением сервера.
type Enemy struct {
	physics.Kinetics

	ID       string
	Kind     EnemyKind
	Room     RoomID
	Rotation float64

	Health     float64
	MaxHealth  float64
	Speed      float64
	Damage     float64
	ScoreValue int

	LastFire     time.Time
	FireInterval time.Duration
	LastUpdate   time.Time

	// Target является слабой ссылкой: к следующему тику корабля может уже не быть.
	Target PlayerID

	seq uint64
}

// Projectile описывает выстрел корабля или врага.
type Projectile struct {
	physics.Kinetics

	ID         string
	Room       RoomID
	EnemyFired bool
	// OwnerPlayer задан для выстрелов кораблей, OwnerEnemy для выстрелов врагов.
	OwnerPlayer PlayerID
	OwnerEnemy  string
	Damage      float64

	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUpdate time.Time

	seq uint64
}

// OwnerID возвращает идентификатор стрелявшего.
func (p *Projectile) OwnerID() string {
	if p.EnemyFired {
		return p.OwnerEnemy
	}
	return p.OwnerPlayer.String()
}

// Expired сообщает, прошло ли абсолютное время истечения.
func (p *Projectile) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Shot описывает снаряд, вылетающий из ствола.
type Shot struct {
	Origin   vmath.Vec2
	Offset   float64
	Rotation float64
	Speed    float64
	Damage   float64
	Radius   float64
	Lifetime time.Duration
}

// NewProjectile создаёт снаряд без владельца, вылетающий из носа корабля
// на Offset единиц впереди Origin по направлению Rotation.
func NewProjectile(s Shot, now time.Time) *Projectile {
	dir := vmath.FromAngle(s.Rotation)
	return &Projectile{
		Kinetics: physics.Kinetics{
			Pos:    s.Origin.Add(dir.Scale(s.Offset)),
			Vel:    dir.Scale(s.Speed),
			Radius: s.Radius,
		},
		Damage:     s.Damage,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.Lifetime),
		LastUpdate: now,
	}
}

// Room разделяет видимость и столкновения. Хранит только идентификаторы.
type Room struct {
	ID        RoomID
	Name      string
	Capacity  int
	Private   bool
	Password  string
	CreatedAt time.Time

	players map[PlayerID]struct{}
}

// Size возвращает размер состава комнаты.
func (r *Room) Size() int { return len(r.players) }

// Has сообщает, входит ли id в состав.
func (r *Room) Has(id PlayerID) bool {
	_, ok := r.players[id]
	return ok
}
