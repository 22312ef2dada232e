package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chili-cookoff-backend/websocket"

	"github.com/gin-gonic/gin"
)

// SSEHandler streams live leaderboard messages as server-sent events.
type SSEHandler struct {
	hub       *websocket.Hub
	snapshot  websocket.SnapshotFunc
	heartbeat time.Duration
	log       *slog.Logger
}

func NewSSEHandler(hub *websocket.Hub, snapshot websocket.SnapshotFunc, heartbeat time.Duration, log *slog.Logger) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &SSEHandler{hub: hub, snapshot: snapshot, heartbeat: heartbeat, log: log}
}

// HandleLeaderboard keeps the connection open and forwards every leaderboard message.
func (h *SSEHandler) HandleLeaderboard(c *gin.Context) {
	messages, cancel, err := h.hub.Subscribe(websocket.TopicLeaderboard)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates unavailable"})
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if h.snapshot != nil {
		msg, err := h.snapshot(c.Request.Context(), websocket.TopicLeaderboard, "")
		if err != nil {
			h.log.Warn("live snapshot failed", "error", err)
		} else if msg != nil {
			if payload, err := msg.ToJSON(); err == nil {
				if writeEvent(c, payload) != nil {
					return
				}
			}
		}
	}
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case payload, ok := <-messages:
			if !ok {
				return
			}
			if err := writeEvent(c, payload); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeEvent(c *gin.Context, payload []byte) error {
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}
