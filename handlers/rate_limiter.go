package handlers

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"chili-cookoff-backend/cache"

	"github.com/gin-gonic/gin"
)

// RateLimiterConfig is reported with the limiter statistics.
type RateLimiterConfig struct {
	Enabled  bool   `json:"enabled"`
	Requests int    `json:"requests"`
	Window   string `json:"window"`
	Backend  string `json:"backend"`
}

// RateLimiterStats are the counters exposed to admins.
type RateLimiterStats struct {
	TotalRequests    int64             `json:"total_requests"`
	AllowedRequests  int64             `json:"allowed_requests"`
	RejectedRequests int64             `json:"rejected_requests"`
	LimiterErrors    int64             `json:"limiter_errors"`
	Config           RateLimiterConfig `json:"config"`
}

// RateLimiter limits requests per client IP. Limiter errors let the request through.
type RateLimiter struct {
	limiter cache.KeyedLimiter
	config  RateLimiterConfig
	log     *slog.Logger

	total    atomic.Int64
	allowed  atomic.Int64
	rejected atomic.Int64
	errors   atomic.Int64
}

func NewRateLimiter(limiter cache.KeyedLimiter, enabled bool, requests int, window time.Duration, backend string, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		config: RateLimiterConfig{
			Enabled:  enabled && limiter != nil,
			Requests: requests,
			Window:   window.String(),
			Backend:  backend,
		},
		log: log,
	}
}

// Middleware rejects requests over the limit with 429.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.config.Enabled {
			c.Next()
			return
		}

		r.total.Add(1)
		ok, err := r.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			r.errors.Add(1)
			r.log.Warn("rate limiter unavailable, allowing request", "error", err)
			ok = true
		}

		if !ok {
			r.rejected.Add(1)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please slow down",
			})
			return
		}

		r.allowed.Add(1)
		c.Next()
	}
}

func (r *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		TotalRequests:    r.total.Load(),
		AllowedRequests:  r.allowed.Load(),
		RejectedRequests: r.rejected.Load(),
		LimiterErrors:    r.errors.Load(),
		Config:           r.config,
	}
}

// GetRateLimiterStats reports the limiter counters.
func (r *RateLimiter) GetRateLimiterStats(c *gin.Context) {
	c.JSON(http.StatusOK, r.Stats())
}
