package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chili-cookoff-backend/models"
	"chili-cookoff-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// SnapshotFunc returns the message sent to a subscriber right after it connects.
// It returns service.ErrEntryNotFound for an unknown entry topic.
type SnapshotFunc func(ctx context.Context, topic string, entryID string) (*models.LiveMessage, error)

// Handler upgrades HTTP requests to live subscriptions.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	snapshot SnapshotFunc
	log      *slog.Logger
}

// NewHandler creates the websocket handler. An origin list containing "*" allows any origin.
func NewHandler(hub *Hub, allowedOrigins []string, snapshot SnapshotFunc, log *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		snapshot: snapshot,
		log:      log,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws/leaderboard", h.HandleLeaderboard)
	router.GET("/ws/entries/:id", h.HandleEntry)
}

func (h *Handler) HandleLeaderboard(c *gin.Context) {
	h.serve(c, TopicLeaderboard, "")
}

func (h *Handler) HandleEntry(c *gin.Context) {
	id := c.Param("id")
	h.serve(c, EntryTopic(id), id)
}

func (h *Handler) serve(c *gin.Context, topic, entryID string) {
	var initial []byte
	if h.snapshot != nil {
		msg, err := h.snapshot(c.Request.Context(), topic, entryID)
		switch {
		case errors.Is(err, service.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		case err != nil:
			h.log.Warn("live snapshot failed", "topic", topic, "error", err)
		case msg != nil:
			initial, _ = msg.ToJSON()
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{topic: topic, conn: conn, send: make(chan []byte, 256)}
	if err := h.hub.RegisterClient(client); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	if initial != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
			h.hub.UnregisterClient(client)
			conn.Close()
			return
		}
	}

	go h.writePump(client)
	go h.readPump(client)
}

// readPump discards client frames and unregisters the client when the connection drops.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.UnregisterClient(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read failed", "error", err)
			}
			return
		}
	}
}

// writePump sends one JSON message per frame and pings on an interval.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
