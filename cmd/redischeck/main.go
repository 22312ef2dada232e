// Command redischeck exercises the Redis-backed components against a live
// Redis: the vote lock, the sliding-window limiter, admin sessions and the
// leaderboard cache. Run it with the same REDIS_* environment as the server.
//
//	redischeck [lock|rate|session|leaderboard]...
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"chili-cookoff-backend/cache"
	"chili-cookoff-backend/config"
	"chili-cookoff-backend/logging"
	"chili-cookoff-backend/models"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"
)

type check func(ctx context.Context, client *redis.Client, log *slog.Logger) error

var checks = map[string]check{
	"lock":        checkLock,
	"rate":        checkRateLimiter,
	"session":     checkSessions,
	"leaderboard": checkLeaderboard,
}

var order = []string{"lock", "rate", "session", "leaderboard"}

func main() {
	log := logging.NewLogger(config.LogConfig{Level: "info", Format: "text"})

	var cfg config.RedisConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Error("read redis config", "error", err)
		os.Exit(1)
	}
	cfg.Enabled = true

	ctx := context.Background()
	client, err := cache.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	names := os.Args[1:]
	if len(names) == 0 {
		names = order
	}

	failed := 0
	for _, name := range names {
		run, ok := checks[name]
		if !ok {
			log.Warn("unknown check", "name", name)
			failed++
			continue
		}
		if err := run(ctx, client, log.With("check", name)); err != nil {
			log.Error("check failed", "check", name, "error", err)
			failed++
			continue
		}
		log.Info("check passed", "check", name)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// checkLock runs concurrent holders of one vote lock and verifies that no two
// ever overlap.
func checkLock(ctx context.Context, client *redis.Client, log *slog.Logger) error {
	locks := cache.NewDistributedLockService(client)
	name := "vote:redischeck:" + uuid.NewString()

	const workers = 10
	var (
		wg       sync.WaitGroup
		inside   atomic.Int32
		overlaps atomic.Int32
		acquired atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := locks.WithLock(ctx, name, 5*time.Second, func() error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				acquired.Add(1)
				time.Sleep(20 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			if err != nil {
				log.Warn("lock not acquired", "worker", idx, "error", err)
			}
		}(i)
	}
	wg.Wait()

	log.Info("lock holders finished", "acquired", acquired.Load(), "workers", workers)
	if overlaps.Load() > 0 {
		return fmt.Errorf("%d overlapping lock holders", overlaps.Load())
	}
	if acquired.Load() == 0 {
		return errors.New("no worker acquired the lock")
	}
	return nil
}

func checkRateLimiter(ctx context.Context, client *redis.Client, log *slog.Logger) error {
	const limit = 5
	limiter := cache.NewSlidingWindowRateLimiter(client, "redischeck", 2*time.Second, limit)
	key := uuid.NewString()

	allowed := 0
	for i := 0; i < 2*limit; i++ {
		ok, err := limiter.Allow(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			allowed++
		}
	}
	log.Info("burst finished", "allowed", allowed, "sent", 2*limit)
	if allowed != limit {
		return fmt.Errorf("burst allowed %d, want %d", allowed, limit)
	}

	time.Sleep(2100 * time.Millisecond)
	ok, err := limiter.Allow(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("request after the window was rejected")
	}
	return nil
}

func checkSessions(ctx context.Context, client *redis.Client, log *slog.Logger) error {
	store := cache.NewSessionStore(client)
	token := "redischeck-" + uuid.NewString()
	now := time.Now().UTC()

	if err := store.Save(ctx, token, now.Add(time.Minute)); err != nil {
		return err
	}
	ok, err := store.Valid(ctx, token, now)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("saved session is not valid")
	}

	if err := store.Delete(ctx, token); err != nil {
		return err
	}
	ok, err = store.Valid(ctx, token, now)
	if err != nil {
		return err
	}
	if ok {
		return errors.New("deleted session is still valid")
	}
	log.Info("session round trip ok")
	return nil
}

// checkLeaderboard verifies a concurrent read burst after an invalidation hits
// the loader once.
func checkLeaderboard(ctx context.Context, client *redis.Client, log *slog.Logger) error {
	lb := cache.NewLeaderboardCache(client, cache.NewDistributedLockService(client), 10*time.Second, log)
	if err := lb.Invalidate(ctx); err != nil {
		return err
	}

	var loads atomic.Int32
	load := func(context.Context) ([]models.Entry, error) {
		loads.Add(1)
		time.Sleep(50 * time.Millisecond)
		return []models.Entry{{ID: "redischeck", Name: "Check Chili", ChefName: "Probe"}}, nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries, err := lb.Get(ctx, load)
			if err == nil && len(entries) != 1 {
				err = fmt.Errorf("got %d entries", len(entries))
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return err
	}

	log.Info("leaderboard burst finished", "loads", loads.Load())
	if loads.Load() != 1 {
		return fmt.Errorf("loader ran %d times, want 1", loads.Load())
	}
	return lb.Invalidate(ctx)
}
