package mq

import (
	"fmt"
	"log/slog"

	"chili-cookoff-backend/config"

	"github.com/redis/go-redis/v9"
)

// New builds the queue selected by cfg.Driver. redisClient is required by the
// redis driver only.
func New(cfg config.MQConfig, redisClient redis.UniversalClient, log *slog.Logger) (Queue, error) {
	switch cfg.Driver {
	case config.MQDriverInline, "":
		log.Info("stats retry queue using inline driver")
		return NewInlineQueue(cfg, log), nil

	case config.MQDriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("mq: redis driver selected but redis is unavailable")
		}
		log.Info("stats retry queue using redis driver")
		return NewRedisMQ(redisClient, cfg, log), nil

	case config.MQDriverRocketMQ:
		q, err := NewRocketMQ(cfg, log)
		if err != nil {
			return nil, err
		}
		log.Info("stats retry queue using rocketmq driver", "name_server", cfg.NameServer)
		return q, nil

	default:
		return nil, fmt.Errorf("mq: unknown driver %q", cfg.Driver)
	}
}
