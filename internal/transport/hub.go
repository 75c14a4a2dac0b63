// Package transport передаёт игру по WebSocket и обслуживает небольшой
// HTTP-интерфейс вокруг неё.
package transport

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/service"
	"github.com/annelo/starfall-server/internal/world"
)

var (
	ErrClosed        = errors.New("connection closed")
	ErrQueueFull     = errors.New("send queue full")
	ErrUnknownPlayer = errors.New("no connection for player")
)

// CloseRoomFull отправляется, когда в публичной комнате нет мест.
const CloseRoomFull = websocket.CloseTryAgainLater

// Game описывает то, что хабу нужно от симуляции.
type Game interface {
	Connect(bind func(world.PlayerID)) (world.PlayerID, error)
	Intent(id world.PlayerID, patch world.InputPatch) error
	Rename(id world.PlayerID, name string) error
	Ping(id world.PlayerID, timestamp float64)
	Disconnect(id world.PlayerID, code int)

	Status() service.Status
	Rooms() []service.RoomInfo
	CreateRoom(req service.RoomRequest) (service.RoomInfo, error)
}

// Hub ведёт реестр соединений и реализует gameloop.Outbox.
type Hub struct {
	logger   *zap.SugaredLogger
	cfg      config.TransportConfig
	wsPath   string
	codec    protocol.Codec
	game     Game
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	conns   map[uuid.UUID]*conn
	players map[world.PlayerID]*conn
	closed  bool
}

// NewHub создаёт хаб для game по настройкам сервера и транспорта из cfg.
func NewHub(cfg *config.Config, game Game, logger *zap.SugaredLogger) (*Hub, error) {
	codec, err := protocol.CodecFor(cfg.Server.Encoding)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		logger: logger.Named("transport"),
		cfg:    cfg.Transport,
		wsPath: cfg.Server.WSPath,
		codec:  codec,
		game:   game,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			EnableCompression: true,
			CheckOrigin:       func(*http.Request) bool { return true },
		},
		conns:   make(map[uuid.UUID]*conn),
		players: make(map[world.PlayerID]*conn),
	}, nil
}

// Send кодирует msg и ставит его в очередь соединения корабля.
func (h *Hub) Send(id world.PlayerID, msg any) error {
	h.mu.RLock()
	c, ok := h.players[id]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("player %d: %w", id, ErrUnknownPlayer)
	}
	data, err := h.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := c.enqueue(data); err != nil {
		if errors.Is(err, ErrQueueFull) {
			h.logger.Warnw("send queue full, dropping connection", "conn", c.id, "player", id)
			go c.close(websocket.CloseTryAgainLater, "send queue full")
		}
		return err
	}
	return nil
}

// Buffered возвращает число байт, поставленных в очередь корабля и ещё не записанных.
func (h *Hub) Buffered(id world.PlayerID) int {
	h.mu.RLock()
	c, ok := h.players[id]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return int(c.queued.Load())
}

// Len возвращает число открытых соединений.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close закрывает все соединения кадром going-away и отклоняет новые.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, service.ShutdownMessage)
	}
}

// register добавляет c, если хаб не закрыт и не достиг max_connections.
func (h *Hub) register(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || (h.cfg.MaxConnections > 0 && len(h.conns) >= h.cfg.MaxConnections) {
		return false
	}
	h.conns[c.id] = c
	return true
}

func (h *Hub) bind(c *conn, id world.PlayerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.player.Store(uint64(id))
	h.players[id] = c
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c.id)
	if id := world.PlayerID(c.player.Load()); id != 0 && h.players[id] == c {
		delete(h.players, id)
	}
}

func (h *Hub) full() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed || (h.cfg.MaxConnections > 0 && len(h.conns) >= h.cfg.MaxConnections)
}
