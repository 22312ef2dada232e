package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"chili-cookoff-backend/api"
	"chili-cookoff-backend/config"
	"chili-cookoff-backend/handlers"
	"chili-cookoff-backend/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the handlers mounted by SetupRouter.
type Dependencies struct {
	Entries     *api.EntryController
	Votes       *api.VoteController
	Admin       *api.AdminController
	Webhook     *api.WebhookController
	Health      *handlers.HealthHandler
	RateLimiter *handlers.RateLimiter
	SSE         *handlers.SSEHandler
	WebSocket   *websocket.Handler
}

// SetupRouter builds the gin engine with every public route.
func SetupRouter(cfg *config.Config, deps Dependencies, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}

	router.Use(cors.New(corsConfig(cfg.CORS)))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", deps.Health.HealthCheck)
		apiGroup.GET("/status", deps.Health.SystemStatus)

		deps.Entries.RegisterRoutes(apiGroup)
		deps.Votes.RegisterRoutes(apiGroup, deps.RateLimiter.Middleware())
		deps.Admin.RegisterRoutes(apiGroup)
		deps.Webhook.RegisterRoutes(apiGroup)

		apiGroup.GET("/leaderboard/live", deps.SSE.HandleLeaderboard)
	}

	deps.WebSocket.RegisterRoutes(router)

	log.Debug("routes registered", "count", len(router.Routes()))
	return router
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			"X-Session-ID", "X-Device-Fingerprint", "X-Screen-Size",
			"X-Timezone-Offset", "X-Storage-Flags", api.HeaderWebhookSecret,
		},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        cfg.MaxAge,
	}

	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			// Credentials cannot be combined with a literal wildcard origin.
			c.AllowOriginFunc = func(string) bool { return true }
			c.AllowCredentials = true
			return c
		}
	}
	c.AllowOrigins = cfg.AllowedOrigins
	c.AllowCredentials = true
	return c
}

// Server wraps the HTTP server.
type Server struct {
	*http.Server
}

// StartServer serves router in a background goroutine.
func StartServer(cfg config.ServerConfig, router *gin.Engine, log *slog.Logger) *Server {
	srv := &Server{
		&http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			// No WriteTimeout: live streams stay open.
		},
	}

	go func() {
		log.Info("server listening", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
		}
	}()

	return srv
}
