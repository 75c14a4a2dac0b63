package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrRoomExists     = errors.New("room already exists")
)

// Store владеет всеми коллекциями сущностей. Сам по себе он не безопасен
// для конкурентного доступа: вызывающие обрамляют работу Lock/Unlock, а цикл
// тиков держит блокировку весь шаг.
type Store struct {
	mu sync.Mutex

	players     map[PlayerID]*Player
	enemies     map[string]*Enemy
	projectiles map[string]*Projectile
	rooms       map[RoomID]*Room

	// число снарядов корабля в полёте по владельцу
	owned map[PlayerID]int

	nextPlayer     uint64
	nextEnemy      uint64
	nextProjectile uint64
}

// NewStore создаёт пустой мир, в котором есть только публичная комната.
func NewStore(publicCapacity int, now time.Time) *Store {
	s := &Store{
		players:     make(map[PlayerID]*Player),
		enemies:     make(map[string]*Enemy),
		projectiles: make(map[string]*Projectile),
		rooms:       make(map[RoomID]*Room),
		owned:       make(map[PlayerID]int),
	}
	s.rooms[PublicRoom] = &Room{
		ID:        PublicRoom,
		Name:      "Public Room",
		Capacity:  publicCapacity,
		CreatedAt: now,
		players:   make(map[PlayerID]struct{}),
	}
	return s
}

func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

// AddPlayer выдаёт p следующий id, даёт имя, если его нет, и записывает
// в комнату p.Room (в публичную, если она пуста).
func (s *Store) AddPlayer(p *Player) (*Player, error) {
	if p.Room == "" {
		p.Room = PublicRoom
	}
	room, ok := s.rooms[p.Room]
	if !ok {
		return nil, fmt.Errorf("join %q: %w", p.Room, ErrRoomNotFound)
	}
	if room.Capacity > 0 && room.Size() >= room.Capacity {
		return nil, fmt.Errorf("join %q: %w", p.Room, ErrRoomFull)
	}

	s.nextPlayer++
	p.ID = PlayerID(s.nextPlayer)
	if p.Name == "" {
		p.Name = fmt.Sprintf("Pilot-%d", p.ID)
	}
	s.players[p.ID] = p
	room.players[p.ID] = struct{}{}
	return p, nil
}

// Player ищет корабль по id.
func (s *Store) Player(id PlayerID) (*Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// RemovePlayer удаляет корабль и вычёркивает его из состава комнаты.
func (s *Store) RemovePlayer(id PlayerID) error {
	p, ok := s.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	if room, ok := s.rooms[p.Room]; ok {
		delete(room.players, id)
	}
	delete(s.players, id)
	return nil
}

// Players возвращает все корабли по возрастанию id.
func (s *Store) Players() []*Player {
	out := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConnectedIn возвращает подключённые корабли из состава room по id.
func (s *Store) ConnectedIn(room RoomID) []*Player {
	r, ok := s.rooms[room]
	if !ok {
		return nil
	}
	out := make([]*Player, 0, len(r.players))
	for id := range r.players {
		if p, ok := s.players[id]; ok && p.Connected {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddEnemy выдаёт e следующий id врага.
func (s *Store) AddEnemy(e *Enemy) *Enemy {
	s.nextEnemy++
	e.seq = s.nextEnemy
	e.ID = fmt.Sprintf("enemy_%d", e.seq)
	if e.Room == "" {
		e.Room = PublicRoom
	}
	s.enemies[e.ID] = e
	return e
}

func (s *Store) Enemy(id string) (*Enemy, bool) {
	e, ok := s.enemies[id]
	return e, ok
}

func (s *Store) RemoveEnemy(id string) {
	delete(s.enemies, id)
}

// Enemies возвращает всех врагов в порядке создания.
func (s *Store) Enemies() []*Enemy {
	out := make([]*Enemy, 0, len(s.enemies))
	for _, e := range s.enemies {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// CountEnemies возвращает число живых врагов вида k.
func (s *Store) CountEnemies(k EnemyKind) int {
	n := 0
	for _, e := range s.enemies {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// AddProjectile выдаёт следующий id снаряда с префиксом "ep" для выстрелов
// врагов и "p" для выстрелов кораблей.
func (s *Store) AddProjectile(p *Projectile) *Projectile {
	s.nextProjectile++
	p.seq = s.nextProjectile
	if p.EnemyFired {
		p.ID = fmt.Sprintf("ep%d", p.seq)
	} else {
		p.ID = fmt.Sprintf("p%d", p.seq)
		s.owned[p.OwnerPlayer]++
	}
	s.projectiles[p.ID] = p
	return p
}

func (s *Store) Projectile(id string) (*Projectile, bool) {
	p, ok := s.projectiles[id]
	return p, ok
}

func (s *Store) RemoveProjectile(id string) {
	p, ok := s.projectiles[id]
	if !ok {
		return
	}
	if !p.EnemyFired {
		if s.owned[p.OwnerPlayer]--; s.owned[p.OwnerPlayer] <= 0 {
			delete(s.owned, p.OwnerPlayer)
		}
	}
	delete(s.projectiles, id)
}

// Projectiles возвращает все снаряды в порядке создания.
func (s *Store) Projectiles() []*Projectile {
	out := make([]*Projectile, 0, len(s.projectiles))
	for _, p := range s.projectiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// OutstandingShots возвращает число снарядов корабля id в полёте.
func (s *Store) OutstandingShots(id PlayerID) int {
	return s.owned[id]
}

// AddRoom регистрирует пустую комнату.
func (s *Store) AddRoom(r *Room) error {
	if _, ok := s.rooms[r.ID]; ok {
		return fmt.Errorf("add room %q: %w", r.ID, ErrRoomExists)
	}
	r.players = make(map[PlayerID]struct{})
	s.rooms[r.ID] = r
	return nil
}

func (s *Store) Room(id RoomID) (*Room, bool) {
	r, ok := s.rooms[id]
	return r, ok
}

// Rooms возвращает все комнаты, начиная со старейшей.
func (s *Store) Rooms() []*Room {
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Roster возвращает id из состава room по возрастанию.
func (s *Store) Roster(room RoomID) []PlayerID {
	r, ok := s.rooms[room]
	if !ok {
		return nil
	}
	out := make([]PlayerID, 0, len(r.players))
	for id := range r.players {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Counts содержит сводку только для чтения для отчёта о статусе.
type Counts struct {
	Players     int `json:"players"`
	Enemies     int `json:"enemies"`
	Projectiles int `json:"projectiles"`
	Rooms       int `json:"rooms"`
}

func (s *Store) Counts() Counts {
	return Counts{
		Players:     len(s.players),
		Enemies:     len(s.enemies),
		Projectiles: len(s.projectiles),
		Rooms:       len(s.rooms),
	}
}
