package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"driver-punch-api-server/internal/api/middleware"
	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/socket"
)

const (
	// Maximum wait for a pong or any client message.
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

type WebSocketHandler struct {
	Hub  *socket.Hub
	Feed *socket.Feed
	Auth middleware.TokenAuthenticator
	Log  *slog.Logger

	// AllowedOrigins mirrors the CORS list; empty accepts any origin.
	AllowedOrigins []string
}

func (h *WebSocketHandler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(h.AllowedOrigins) == 0 || origin == "" {
				return true
			}
			for _, o := range h.AllowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// ServeWs streams snapshots of ?topic= (default punchLogs) to an admin.
// Browsers cannot set headers on WebSocket requests, so the token comes as ?token=.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}
	claims, err := h.Auth.Authenticate(c.Request.Context(), tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	if claims.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
		return
	}

	topic := c.DefaultQuery("topic", socket.TopicPunchLogs)
	if !h.Feed.Has(topic) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown topic", "topics": h.Feed.Topics()})
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	sub, cancel := h.Hub.Subscribe(topic)
	defer cancel()
	h.Log.Info("live subscriber connected", "userId", claims.UserID, "topic", topic)

	go h.writeLoop(conn, sub)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	// Browser clients send their own pings as heartbeat.
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Log.Warn("unexpected websocket close", "topic", topic, "error", err)
			}
			break
		}
	}
	h.Log.Info("live subscriber disconnected", "userId", claims.UserID, "topic", topic)
}

// writeLoop is the only writer of data frames on conn. It stops when the subscription
// is cancelled or a write fails.
func (h *WebSocketHandler) writeLoop(conn *websocket.Conn, sub *socket.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
