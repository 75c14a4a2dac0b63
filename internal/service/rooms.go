package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/annelo/starfall-server/internal/registry"
	"github.com/annelo/starfall-server/internal/world"
)

// DefaultRoomCapacity применяется, если запрос комнаты не задаёт вместимость.
const DefaultRoomCapacity = 10

type RoomInfo struct {
	ID          world.RoomID `json:"id"`
	Name        string       `json:"name"`
	PlayerCount int          `json:"playerCount"`
	MaxPlayers  int          `json:"maxPlayers"`
	Private     bool         `json:"private"`
	HasPassword bool         `json:"hasPassword"`
}

type RoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
	Private    bool   `json:"private,omitempty"`
	Password   string `json:"password,omitempty"`
}

type WorldSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type StatusConfig struct {
	TickRate  int       `json:"tickRate"`
	WorldSize WorldSize `json:"worldSize"`
}

// Status содержит сводку сервера только для чтения.
type Status struct {
	Players     int          `json:"players"`
	Projectiles int          `json:"projectiles"`
	Enemies     int          `json:"enemies"`
	Rooms       []RoomInfo   `json:"rooms"`
	Uptime      float64      `json:"uptime"`
	Ticks       uint64       `json:"ticks"`
	Config      StatusConfig `json:"config"`
}

// PlayerInfo описывает корабль для администратора.
type PlayerInfo struct {
	ID        world.PlayerID `json:"id"`
	Name      string         `json:"name"`
	Room      world.RoomID   `json:"room"`
	Connected bool           `json:"connected"`
	Health    float64        `json:"health"`
	Shield    float64        `json:"shield"`
	Score     int            `json:"score"`
	Kills     int            `json:"kills"`
	Deaths    int            `json:"deaths"`
}

func roomInfo(r *world.Room) RoomInfo {
	return RoomInfo{
		ID:          r.ID,
		Name:        r.Name,
		PlayerCount: r.Size(),
		MaxPlayers:  r.Capacity,
		Private:     r.Private,
		HasPassword: r.Password != "",
	}
}

// Status возвращает число сущностей, комнаты и время работы.
func (s *GameService) Status() Status {
	s.world.Lock()
	c := s.world.Counts()
	rooms := s.roomsLocked()
	s.world.Unlock()

	var ticks uint64
	if l := s.loop.Load(); l != nil {
		ticks = l.Ticks()
	}
	return Status{
		Players:     c.Players,
		Projectiles: c.Projectiles,
		Enemies:     c.Enemies,
		Rooms:       rooms,
		Uptime:      s.clock().Sub(s.started).Seconds(),
		Ticks:       ticks,
		Config: StatusConfig{
			TickRate:  s.cfg.Game.TickRate,
			WorldSize: WorldSize{Width: s.cfg.Game.WorldWidth, Height: s.cfg.Game.WorldHeight},
		},
	}
}

// Rooms перечисляет все комнаты, начиная со старейшей.
func (s *GameService) Rooms() []RoomInfo {
	s.world.Lock()
	defer s.world.Unlock()
	return s.roomsLocked()
}

func (s *GameService) roomsLocked() []RoomInfo {
	rooms := s.world.Rooms()
	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomInfo(r))
	}
	return out
}

// Players перечисляет все корабли: подключённые и ожидающие удаления.
func (s *GameService) Players() []PlayerInfo {
	s.world.Lock()
	defer s.world.Unlock()
	players := s.world.Players()
	out := make([]PlayerInfo, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerInfo{
			ID:        p.ID,
			Name:      p.Name,
			Room:      p.Room,
			Connected: p.Connected,
			Health:    p.Health,
			Shield:    p.Shield,
			Score:     p.Score,
			Kills:     p.Kills,
			Deaths:    p.Deaths,
		})
	}
	return out
}

// CreateRoom регистрирует новую пустую комнату, названную по текущему времени.
func (s *GameService) CreateRoom(req RoomRequest) (RoomInfo, error) {
	if req.Name == "" {
		return RoomInfo{}, ErrRoomNameRequired
	}
	capacity := req.MaxPlayers
	if capacity <= 0 {
		capacity = DefaultRoomCapacity
	}

	s.world.Lock()
	now := s.clock()
	base := world.RoomID(fmt.Sprintf("room_%d", now.UnixMilli()))
	r := &world.Room{
		ID:        base,
		Name:      req.Name,
		Capacity:  capacity,
		Private:   req.Private,
		Password:  req.Password,
		CreatedAt: now,
	}
	// комнаты, созданные в одну миллисекунду, получают числовой суффикс
	var err error
	for n := 2; ; n++ {
		if err = s.world.AddRoom(r); !errors.Is(err, world.ErrRoomExists) {
			break
		}
		r.ID = world.RoomID(fmt.Sprintf("%s_%d", base, n))
	}
	info := roomInfo(r)
	s.world.Unlock()
	if err != nil {
		return RoomInfo{}, err
	}

	s.logger.Infow("room created", "room", info.ID, "name", info.Name, "capacity", info.MaxPlayers)
	s.registry.Fire(registry.HookRoomCreated, info.ID)
	return info, nil
}

// Uptime возвращает время с момента создания сервиса.
func (s *GameService) Uptime() time.Duration {
	return s.clock().Sub(s.started)
}
