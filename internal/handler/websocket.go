package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/CageChen/dotwalk/internal/watcher"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ChangePayload describes a file change pushed to clients.
type ChangePayload struct {
	Event  string `json:"event"`
	Folder string `json:"folder"`
	Path   string `json:"path"`
	Hidden bool   `json:"hidden"`
}

// WSHandler handles WebSocket connections for change notifications. Each
// client keeps the showDot flag it connected with.
type WSHandler struct {
	clients map[*websocket.Conn]bool
	showDot bool
	log     zerolog.Logger
	mu      sync.RWMutex
}

// NewWSHandler creates a new WebSocket handler. showDot is the default for
// clients that don't pass the query flag.
func NewWSHandler(showDot bool, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		clients: make(map[*websocket.Conn]bool),
		showDot: showDot,
		log:     log,
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *WSHandler) HandleWS(c *gin.Context) {
	show, err := showDot(c, h.showDot)
	if err != nil {
		abortWithError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() {
		h.removeClient(conn)
		_ = conn.Close()
	}()

	h.addClient(conn, show)

	// Keep connection alive and handle incoming messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// OnFileChange is called when a file change is detected. Hidden changes only
// reach clients that asked for dot entries.
func (h *WSHandler) OnFileChange(event watcher.Event) {
	msg := WSMessage{
		Type: "fileChange",
		Payload: ChangePayload{
			Event:  event.Type.String(),
			Folder: event.Folder,
			Path:   event.Path,
			Hidden: event.Hidden,
		},
	}
	h.broadcast(msg, event.Hidden)
}

func (h *WSHandler) addClient(conn *websocket.Conn, showDot bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = showDot
}

func (h *WSHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *WSHandler) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) broadcast(msg WSMessage, hidden bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client, show := range h.clients {
		if hidden && !show {
			continue
		}
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.removeClient(client)
		}
	}
}
