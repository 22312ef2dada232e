package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chili-cookoff-backend/api"
	"chili-cookoff-backend/cache"
	"chili-cookoff-backend/config"
	"chili-cookoff-backend/database"
	"chili-cookoff-backend/handlers"
	"chili-cookoff-backend/logging"
	"chili-cookoff-backend/mq"
	"chili-cookoff-backend/repository"
	"chili-cookoff-backend/routes"
	"chili-cookoff-backend/service"
	"chili-cookoff-backend/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	version = "1.0.0"

	leaderboardTTL     = 30 * time.Second
	maxLiveClients     = 5000
	sseHeartbeat       = 15 * time.Second
	sessionPurgePeriod = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}

	entryRepo := repository.NewEntryRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// Redis is optional; every consumer has an in-process fallback.
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn("redis unavailable, using in-process fallbacks", "error", err)
	}

	var (
		locker       cache.Locker         = cache.NewLocalLocker()
		sessions     service.SessionStore = sessionRepo
		limiter      cache.KeyedLimiter
		limitBackend = "memory"
		leaderboard  service.LeaderboardCache
		queueRedis   redis.UniversalClient
		redisPing    handlers.Pinger
	)
	if redisClient != nil {
		locker = cache.NewDistributedLockService(redisClient)
		limiter = cache.NewSlidingWindowRateLimiter(redisClient, "vote", cfg.RateLimit.Window, cfg.RateLimit.Requests)
		limitBackend = "redis"
		sessions = cache.NewSessionStore(redisClient)
		leaderboard = cache.NewLeaderboardCache(redisClient, locker, leaderboardTTL, log)
		queueRedis = redisClient
		redisPing = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		limiter = cache.NewLocalRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	hub := websocket.NewHub(maxLiveClients, log)
	go hub.Run(ctx)

	stats := service.NewStatsMaintainer(voteRepo, leaderboard, hub, log)

	queue, err := mq.New(cfg.MQ, queueRedis, log)
	if err != nil {
		log.Error("create stats retry queue", "error", err)
		os.Exit(1)
	}
	stats.SetRetryQueue(queue)
	err = queue.Start(ctx, func(ctx context.Context, entryID string) error {
		_, err := stats.Recompute(ctx, entryID)
		return err
	})
	if err != nil {
		log.Error("start stats retry queue", "error", err)
		os.Exit(1)
	}

	adminAuth, err := service.NewAdminAuth(service.AdminAuthConfig{
		Password:   cfg.Admin.Password,
		SessionTTL: cfg.Admin.SessionTTL,
	}, sessions, log)
	if err != nil {
		log.Error("configure admin auth", "error", err)
		os.Exit(1)
	}

	entries := service.NewEntryService(entryRepo, voteRepo, stats, service.EntryServiceOptions{
		Cache:         leaderboard,
		Broadcaster:   hub,
		WebhookSecret: cfg.Admin.WebhookSecret,
	}, log)
	votes := service.NewVoteService(entryRepo, voteRepo, stats, locker, service.VoteServiceConfig{
		Validator: service.ValidatorConfig{
			FailOpen: cfg.Voting.FailOpen,
			IPWindow: cfg.Voting.IPWindow,
		},
		LockTTL: cfg.Voting.LockTTL,
	}, log)

	secureCookies := cfg.Server.Mode == gin.ReleaseMode
	rateLimiter := handlers.NewRateLimiter(limiter, cfg.RateLimit.Enabled, cfg.RateLimit.Requests, cfg.RateLimit.Window, limitBackend, log)
	snapshot := api.LiveSnapshot(entries)

	router := routes.SetupRouter(cfg, routes.Dependencies{
		Entries: api.NewEntryController(entries, log),
		Votes: api.NewVoteController(votes, adminAuth, api.IdentityConfig{
			SecureCookie: secureCookies,
			IPHashSalt:   cfg.Voting.IPHashSalt,
		}, log),
		Admin:   api.NewAdminController(adminAuth, entries, rateLimiter, queue, secureCookies, log),
		Webhook: api.NewWebhookController(entries, log),
		Health: handlers.NewHealthHandler(handlers.HealthHandler{
			Version:     version,
			DB:          func(context.Context) error { return database.Ping(db) },
			Redis:       redisPing,
			Queue:       queue,
			LiveClients: hub.ClientCount,
		}),
		RateLimiter: rateLimiter,
		SSE:         handlers.NewSSEHandler(hub, snapshot, sseHeartbeat, log),
		WebSocket:   websocket.NewHandler(hub, cfg.CORS.AllowedOrigins, snapshot, log),
	}, log)

	if redisClient == nil {
		go purgeSessions(ctx, sessionRepo, log)
	}

	srv := routes.StartServer(cfg.Server, router, log)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shut down", "error", err)
	}

	queue.Stop()
	closeRedis(redisClient, log)
	database.Close(db, log)

	log.Info("server stopped")
}

// purgeSessions drops expired admin sessions from the database store.
func purgeSessions(ctx context.Context, sessions *repository.SessionRepository, log *slog.Logger) {
	ticker := time.NewTicker(sessionPurgePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := sessions.PurgeExpired(ctx, now.UTC())
			if err != nil {
				log.Warn("purge admin sessions", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("expired admin sessions purged", "count", n)
			}
		}
	}
}

func closeRedis(client *redis.Client, log *slog.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Warn("close redis", "error", err)
	}
}
