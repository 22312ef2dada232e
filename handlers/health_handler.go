package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"chili-cookoff-backend/mq"

	"github.com/gin-gonic/gin"
)

// SystemInfo contains basic runtime information and dependency status.
type SystemInfo struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	StartTime    time.Time `json:"start_time"`
	CurrentTime  time.Time `json:"current_time"`
	GoVersion    string    `json:"go_version"`
	NumGoroutine int       `json:"num_goroutine"`
	NumCPU       int       `json:"num_cpu"`
	DBStatus     string    `json:"db_status"`
	RedisStatus  string    `json:"redis_status"`
	Queue        mq.Stats  `json:"queue"`
	LiveClients  int       `json:"live_clients"`
}

// Pinger is a dependency that can report its health.
type Pinger func(ctx context.Context) error

// HealthHandler serves liveness and status endpoints.
type HealthHandler struct {
	Version     string
	DB          Pinger
	Redis       Pinger
	Queue       mq.Queue
	LiveClients func() int

	startTime time.Time
}

func NewHealthHandler(h HealthHandler) *HealthHandler {
	h.startTime = time.Now()
	if h.Version == "" {
		h.Version = "0.1.0"
	}
	return &h
}

// HealthCheck reports that the process is serving requests.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// SystemStatus reports dependency health. The database is required; Redis is optional.
func (h *HealthHandler) SystemStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	info := SystemInfo{
		Status:       "ok",
		Version:      h.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		StartTime:    h.startTime,
		CurrentTime:  time.Now(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		DBStatus:     pingStatus(ctx, h.DB),
		RedisStatus:  pingStatus(ctx, h.Redis),
	}
	if h.Queue != nil {
		info.Queue = h.Queue.Stats(ctx)
	}
	if h.LiveClients != nil {
		info.LiveClients = h.LiveClients()
	}

	code := http.StatusOK
	if info.DBStatus != "ok" {
		info.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, info)
}

func pingStatus(ctx context.Context, ping Pinger) string {
	if ping == nil {
		return "disabled"
	}
	if err := ping(ctx); err != nil {
		return "error"
	}
	return "ok"
}
