package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chili-cookoff-backend/handlers"
	"chili-cookoff-backend/models"
	"chili-cookoff-backend/mq"
	"chili-cookoff-backend/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest is the admin login body.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the admin token for non-browser clients; browsers get
// the same token as a cookie.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminStatus reports whether the caller holds a live admin session.
type AdminStatus struct {
	Authenticated bool `json:"authenticated"`
}

// ResetResponse reports how many votes were removed.
type ResetResponse struct {
	Deleted int64 `json:"deleted"`
}

// RecomputeAllResponse reports how many entries were recomputed.
type RecomputeAllResponse struct {
	Entries int `json:"entries"`
}

// RetryResponse reports how many dead letters were requeued.
type RetryResponse struct {
	Requeued int `json:"requeued"`
}

// AdminController serves the operator endpoints.
type AdminController struct {
	auth         *service.AdminAuth
	entries      *service.EntryService
	limiter      *handlers.RateLimiter
	queue        mq.Queue
	secureCookie bool
	log          *slog.Logger
}

func NewAdminController(auth *service.AdminAuth, entries *service.EntryService, limiter *handlers.RateLimiter, queue mq.Queue, secureCookie bool, log *slog.Logger) *AdminController {
	return &AdminController{
		auth:         auth,
		entries:      entries,
		limiter:      limiter,
		queue:        queue,
		secureCookie: secureCookie,
		log:          log,
	}
}

func (c *AdminController) RegisterRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin")
	{
		admin.POST("/login", c.Login)
		admin.POST("/logout", c.Logout)
		admin.GET("/status", c.Status)
	}

	protected := admin.Group("", handlers.RequireAdmin(c.auth))
	{
		protected.POST("/entries", c.CreateEntry)
		protected.PUT("/entries/:id", c.UpdateEntry)
		protected.DELETE("/entries/:id", c.DeleteEntry)
		protected.GET("/entries/:id/votes", c.ListVotes)
		protected.DELETE("/entries/:id/votes", c.ResetVotes)
		protected.POST("/entries/:id/recompute", c.RecomputeEntry)
		protected.POST("/recompute", c.RecomputeAll)
		protected.DELETE("/votes/:id", c.DeleteVote)
		protected.GET("/ratelimit/stats", c.limiter.GetRateLimiterStats)
		protected.POST("/cache/invalidate", c.InvalidateCache)
		protected.GET("/queue/stats", c.QueueStats)
		protected.POST("/queue/retry", c.RetryQueue)
	}
}

// Login
// @Summary Admin login
// @Tags admin
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Password"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/admin/login [post]
func (c *AdminController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	token, expiresAt, err := c.auth.CreateSession(ctx.Request.Context(), req.Password)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}

	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(handlers.AdminCookie, token, int(time.Until(expiresAt).Seconds()), "/", "", c.secureCookie, true)
	ctx.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}

func (c *AdminController) Logout(ctx *gin.Context) {
	if token := handlers.AdminToken(ctx); token != "" {
		if err := c.auth.ClearSession(ctx.Request.Context(), token); err != nil {
			writeError(ctx, c.log, err)
			return
		}
	}
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(handlers.AdminCookie, "", -1, "/", "", c.secureCookie, true)
	ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Logged out"})
}

func (c *AdminController) Status(ctx *gin.Context) {
	ok := c.auth.IsAuthenticated(ctx.Request.Context(), handlers.AdminToken(ctx))
	ctx.JSON(http.StatusOK, AdminStatus{Authenticated: ok})
}

// CreateEntry
// @Summary Create an entry
// @Tags admin
// @Accept json
// @Produce json
// @Param entry body models.EntryInput true "Entry"
// @Success 201 {object} models.Entry
// @Failure 400 {object} ErrorResponse
// @Router /api/admin/entries [post]
func (c *AdminController) CreateEntry(ctx *gin.Context) {
	var input models.EntryInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	entry, err := c.entries.Create(ctx.Request.Context(), input)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, entry)
}

func (c *AdminController) UpdateEntry(ctx *gin.Context) {
	var input models.EntryInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	entry, err := c.entries.Update(ctx.Request.Context(), ctx.Param("id"), input)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, entry)
}

// DeleteEntry removes an entry together with its votes.
func (c *AdminController) DeleteEntry(ctx *gin.Context) {
	if err := c.entries.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Entry deleted"})
}

func (c *AdminController) ListVotes(ctx *gin.Context) {
	votes, err := c.entries.ListVotes(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, votes)
}

func (c *AdminController) ResetVotes(ctx *gin.Context) {
	n, err := c.entries.ResetVotes(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, ResetResponse{Deleted: n})
}

func (c *AdminController) DeleteVote(ctx *gin.Context) {
	if err := c.entries.DeleteVote(ctx.Request.Context(), ctx.Param("id")); err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Vote deleted"})
}

func (c *AdminController) RecomputeEntry(ctx *gin.Context) {
	stats, err := c.entries.RecomputeStats(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (c *AdminController) RecomputeAll(ctx *gin.Context) {
	n, err := c.entries.RecomputeAll(ctx.Request.Context())
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, RecomputeAllResponse{Entries: n})
}

func (c *AdminController) InvalidateCache(ctx *gin.Context) {
	if err := c.entries.InvalidateCache(ctx.Request.Context()); err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Leaderboard cache invalidated"})
}

func (c *AdminController) QueueStats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.queue.Stats(ctx.Request.Context()))
}

// RetryQueue moves dead-lettered recomputes back onto the queue.
func (c *AdminController) RetryQueue(ctx *gin.Context) {
	n, err := c.queue.RetryDeadLetters(ctx.Request.Context())
	if errors.Is(err, mq.ErrUnsupported) {
		ctx.JSON(http.StatusNotImplemented, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, RetryResponse{Requeued: n})
}
