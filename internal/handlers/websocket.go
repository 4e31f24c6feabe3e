package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin
	},
}

// wsChannel serializes writes to one connection
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsChannel) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *wsChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.conn.Close()
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	registry    *services.ConnRegistry
	userService *services.UserService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(registry *services.ConnRegistry, userService *services.UserService) *WebSocketHandler {
	return &WebSocketHandler{
		registry:    registry,
		userService: userService,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ValidateWebSocketToken(r.URL.Query().Get("token"), h.userService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	ch := &wsChannel{conn: conn}
	h.registry.Register(userID, ch)
	defer h.registry.Release(userID, ch)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(userID, ch, done)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.sendTo(ch, services.WSMessage{Type: "connected", Timestamp: time.Now().Unix()})

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendTo(ch, services.WSMessage{Type: "error", Message: "Invalid message format"})
			continue
		}

		switch msg.Type {
		case "ping":
			h.sendTo(ch, services.WSMessage{Type: "pong", Timestamp: time.Now().Unix()})
		default:
			h.sendTo(ch, services.WSMessage{Type: "error", Message: "Unknown message type"})
		}
	}

	log.Info().Str("user_id", userID).Msg("WebSocket connection closed")
}

func (h *WebSocketHandler) keepAlive(userID string, ch *wsChannel, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ch.ping(); err != nil {
				log.Debug().Err(err).Str("user_id", userID).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendTo(ch *wsChannel, msg services.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := ch.Send(data); err != nil {
		log.Debug().Err(err).Str("type", msg.Type).Msg("Failed to write WebSocket message")
	}
}
