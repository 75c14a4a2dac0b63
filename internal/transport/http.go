package transport

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/annelo/starfall-server/internal/service"
	"github.com/annelo/starfall-server/internal/world"
)

// Handler маршрутизирует WebSocket, API статуса и комнат и счётчики
// expvar.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+h.wsPath, h.ServeWS)
	mux.HandleFunc("GET /status", h.handleStatus)
	mux.HandleFunc("GET /api/rooms", h.handleListRooms)
	mux.HandleFunc("POST /api/rooms", h.handleCreateRoom)
	mux.Handle("GET /debug/vars", expvar.Handler())
	return mux
}

// ServeWS переводит запрос на WebSocket и обслуживает соединение до закрытия.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.full() {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugw("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := newConn(ws, h.cfg, h.codec.Binary())
	if !h.register(c) {
		c.close(websocket.CloseTryAgainLater, "too many connections")
		return
	}
	defer h.unregister(c)
	go c.writePump(h.cfg.IdleTimeout * 9 / 10)

	id, err := h.game.Connect(func(id world.PlayerID) { h.bind(c, id) })
	switch {
	case errors.Is(err, service.ErrRoomFull):
		h.logger.Infow("refusing connection, room full", "conn", c.id, "remote", r.RemoteAddr)
		c.close(CloseRoomFull, "room full")
		return
	case err != nil:
		h.logger.Infow("refusing connection", "conn", c.id, "error", err)
		c.close(websocket.CloseGoingAway, err.Error())
		return
	}
	h.logger.Debugw("connection open", "conn", c.id, "player", id, "remote", r.RemoteAddr)

	code := h.readPump(c, id)
	c.close(websocket.CloseNormalClosure, "")
	h.game.Disconnect(id, code)
	h.logger.Debugw("connection closed", "conn", c.id, "player", id, "code", code)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Hub) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.game.Status())
}

func (h *Hub) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.game.Rooms())
}

func (h *Hub) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req service.RoomRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return
	}
	info, err := h.game.CreateRoom(req)
	if errors.Is(err, service.ErrRoomNameRequired) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err != nil {
		h.logger.Errorw("create room failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, info)
}
