package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chili-cookoff-backend/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and verifies the connection with a ping.
// Callers fall back to in-process implementations when it returns an error.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, ErrRedisNotAvailable
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrRedisNotAvailable, cfg.Addr, err)
	}

	log.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
