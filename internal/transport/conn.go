package transport

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/world"
)

const writeWait = 10 * time.Second

// conn описывает одного WebSocket-собеседника. Запись идёт только через горутину writePump.
type conn struct {
	id     uuid.UUID
	ws     *websocket.Conn
	player atomic.Uint64
	binary bool

	send   chan []byte
	queued atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, cfg config.TransportConfig, binary bool) *conn {
	size := cfg.SendQueueSize
	if size <= 0 {
		size = 1
	}
	return &conn{
		id:     uuid.New(),
		ws:     ws,
		binary: binary,
		send:   make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

func (c *conn) enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- data:
		c.queued.Add(int64(len(data)))
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// close отправляет кадр закрытия и закрывает сокет. Можно вызывать
// многократно и из любой горутины.
func (c *conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		_ = c.ws.Close()
	})
}

func (c *conn) writePump(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	kind := websocket.TextMessage
	if c.binary {
		kind = websocket.BinaryMessage
	}
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.queued.Add(-int64(len(data)))
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(kind, data); err != nil {
				c.close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

// readPump передаёт сообщения клиента, пока собеседник не уйдёт,
// и возвращает код закрытия.
func (h *Hub) readPump(c *conn, id world.PlayerID) int {
	idle := h.cfg.IdleTimeout
	if h.cfg.MaxMessageSize > 0 {
		c.ws.SetReadLimit(h.cfg.MaxMessageSize)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(idle))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return ce.Code
			}
			if !errors.Is(err, websocket.ErrReadLimit) {
				h.logger.Debugw("read failed", "conn", c.id, "player", id, "error", err)
			}
			return websocket.CloseAbnormalClosure
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(idle))
		h.dispatch(id, data)
	}
}

func (h *Hub) dispatch(id world.PlayerID, data []byte) {
	msg, err := h.codec.Decode(data)
	if err != nil {
		h.logger.Debugw("dropping message", "player", id, "error", err)
		return
	}
	switch msg.Type {
	case protocol.TypeInput:
		err = h.game.Intent(id, *msg.Inputs)
	case protocol.TypeChangeName:
		err = h.game.Rename(id, msg.Name)
	case protocol.TypePing:
		h.game.Ping(id, msg.Timestamp)
	}
	if err != nil {
		h.logger.Debugw("message rejected", "player", id, "type", msg.Type, "error", err)
	}
}
