package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// KeyedLimiter decides whether one more request for key is allowed.
type KeyedLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SlidingWindowRateLimiter allows at most limit requests per key in any window,
// tracked in a Redis sorted set per key.
type SlidingWindowRateLimiter struct {
	redisClient RedisClient
	prefix      string
	windowSize  time.Duration
	limit       int
}

// NewSlidingWindowRateLimiter creates a Redis sliding-window limiter.
func NewSlidingWindowRateLimiter(client RedisClient, prefix string, windowSize time.Duration, limit int) *SlidingWindowRateLimiter {
	return &SlidingWindowRateLimiter{
		redisClient: client,
		prefix:      fmt.Sprintf("sliding_window:%s", prefix),
		windowSize:  windowSize,
		limit:       limit,
	}
}

func (l *SlidingWindowRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.redisClient == nil {
		return false, ErrRedisNotAvailable
	}

	setKey := l.prefix + ":" + key
	now := time.Now().UnixMilli()
	windowStart := now - l.windowSize.Milliseconds()
	requestID := uuid.New().String()

	pipe := l.redisClient.Pipeline()
	pipe.ZAdd(ctx, setKey, redis.Z{Score: float64(now), Member: requestID})
	pipe.ZRemRangeByScore(ctx, setKey, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, setKey)
	pipe.Expire(ctx, setKey, l.windowSize*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if card.Val() > int64(l.limit) {
		l.redisClient.ZRem(ctx, setKey, requestID)
		return false, nil
	}

	return true, nil
}

// LocalRateLimiter is an in-process token bucket per key.
type LocalRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastGC   time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalRateLimiter allows requests per window per key with a burst of requests.
func NewLocalRateLimiter(requests int, window time.Duration) *LocalRateLimiter {
	return &LocalRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		idle:     3 * window,
		lastGC:   time.Now(),
	}
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > l.idle {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1), nil
}
