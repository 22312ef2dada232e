package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"chili-cookoff-backend/models"
)

// LeaderboardCache caches the ordered entry list in Redis. Rebuilds are guarded
// by a lock so a burst of readers after an invalidation loads the database once.
type LeaderboardCache struct {
	client RedisClient
	locker Locker
	key    string
	ttl    time.Duration
	log    *slog.Logger
}

// NewLeaderboardCache creates a leaderboard cache.
func NewLeaderboardCache(client RedisClient, locker Locker, ttl time.Duration, log *slog.Logger) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		locker: locker,
		key:    "leaderboard:v1",
		ttl:    ttl,
		log:    log,
	}
}

// Get returns the cached leaderboard, calling load on a miss. Cache failures
// degrade to calling load directly.
func (c *LeaderboardCache) Get(ctx context.Context, load func(context.Context) ([]models.Entry, error)) ([]models.Entry, error) {
	if entries, ok := c.read(ctx); ok {
		return entries, nil
	}

	var (
		result  []models.Entry
		loadErr error
	)
	err := c.locker.WithLock(ctx, "cache_lock:"+c.key, 5*time.Second, func() error {
		if entries, ok := c.read(ctx); ok {
			result = entries
			return nil
		}

		result, loadErr = load(ctx)
		if loadErr == nil {
			c.write(ctx, result)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("leaderboard cache lock unavailable, loading directly", "error", err)
		return load(ctx)
	}
	return result, loadErr
}

// Invalidate drops the cached leaderboard.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *LeaderboardCache) read(ctx context.Context) ([]models.Entry, bool) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !isNil(err) {
			c.log.Warn("read leaderboard cache", "error", err)
		}
		return nil, false
	}

	var entries []models.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.log.Warn("decode leaderboard cache", "error", err)
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) write(ctx context.Context, entries []models.Entry) {
	data, err := json.Marshal(entries)
	if err != nil {
		c.log.Warn("encode leaderboard cache", "error", err)
		return
	}

	// Jittered TTL.
	expiration := c.ttl
	if jitter := c.ttl / 10; jitter > 0 {
		expiration += time.Duration(rand.Int63n(int64(jitter)))
	}
	if err := c.client.Set(ctx, c.key, data, expiration).Err(); err != nil {
		c.log.Warn("write leaderboard cache", "error", err)
	}
}
