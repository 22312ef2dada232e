package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chili-cookoff-backend/config"

	"github.com/redis/go-redis/v9"
)

// Redis list names of the retry queue.
const (
	MainQueueName       = "stats_recompute_queue"
	ProcessingQueueName = "stats_recompute_processing"
	DeadLetterQueueName = "stats_recompute_dead_letter"
)

// RedisMQ is a retry queue on Redis lists. A message moves atomically from the
// main list to the processing list while it is handled.
type RedisMQ struct {
	client            redis.UniversalClient
	log               *slog.Logger
	processingTimeout time.Duration
	retryDelay        time.Duration
	maxRetries        int

	mu      sync.Mutex
	handler Handler
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	published atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

func NewRedisMQ(client redis.UniversalClient, cfg config.MQConfig, log *slog.Logger) *RedisMQ {
	return &RedisMQ{
		client:            client,
		log:               log,
		processingTimeout: 5 * time.Minute,
		retryDelay:        cfg.RetryDelay,
		maxRetries:        cfg.MaxRetries,
	}
}

func (r *RedisMQ) PublishRecompute(ctx context.Context, entryID string) error {
	if err := r.push(ctx, newMessage(entryID)); err != nil {
		return err
	}
	r.published.Add(1)
	return nil
}

func (r *RedisMQ) push(ctx context.Context, msg RecomputeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode recompute message: %w", err)
	}
	if err := r.client.LPush(ctx, MainQueueName, data).Err(); err != nil {
		return fmt.Errorf("push recompute message: %w", err)
	}
	return nil
}

func (r *RedisMQ) Start(ctx context.Context, handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.handler = handler
	r.cancel = cancel
	r.running = true

	r.wg.Add(2)
	go r.consumeLoop(ctx)
	go r.timeoutCheckLoop(ctx)

	r.log.Info("redis stats queue consumer started")
	return nil
}

func (r *RedisMQ) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("redis stats queue consumer stopped")
}

func (r *RedisMQ) consumeLoop(ctx context.Context) {
	defer r.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		data, err := r.client.BRPopLPush(ctx, MainQueueName, ProcessingQueueName, time.Second).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				r.log.Warn("stats queue pop failed", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.processMessage(ctx, data)
		}()
	}
}

func (r *RedisMQ) timeoutCheckLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.checkTimeouts(ctx)
		}
	}
}

// checkTimeouts requeues messages stuck in the processing list, for example after a crash.
func (r *RedisMQ) checkTimeouts(ctx context.Context) {
	messages, err := r.client.LRange(ctx, ProcessingQueueName, 0, -1).Result()
	if err != nil {
		r.log.Warn("stats queue processing scan failed", "error", err)
		return
	}

	now := time.Now().Unix()
	for _, data := range messages {
		var msg RecomputeMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			r.moveToDeadLetter(ctx, data)
			continue
		}
		if now-msg.Timestamp <= int64(r.processingTimeout.Seconds()) {
			continue
		}

		r.client.LRem(ctx, ProcessingQueueName, 1, data)
		r.retry(ctx, msg, data)
	}
}

func (r *RedisMQ) processMessage(ctx context.Context, data string) {
	var msg RecomputeMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		r.log.Error("stats queue message undecodable", "error", err)
		r.moveToDeadLetter(ctx, data)
		return
	}

	err := r.handler(ctx, msg.EntryID)
	r.client.LRem(ctx, ProcessingQueueName, 1, data)
	if err == nil {
		r.processed.Add(1)
		r.log.Info("stats retry succeeded", "entry_id", msg.EntryID, "attempt", msg.Attempt+1)
		return
	}

	r.failed.Add(1)
	r.log.Warn("stats retry failed", "entry_id", msg.EntryID, "attempt", msg.Attempt+1, "error", err)
	r.retry(ctx, msg, data)
}

func (r *RedisMQ) retry(ctx context.Context, msg RecomputeMessage, data string) {
	msg.Attempt++
	if msg.Attempt > r.maxRetries {
		r.log.Error("stats retry exhausted", "entry_id", msg.EntryID, "message_id", msg.MessageID)
		r.client.LPush(ctx, DeadLetterQueueName, data)
		return
	}

	msg.Timestamp = time.Now().Unix()
	time.AfterFunc(r.retryDelay, func() {
		if err := r.push(context.WithoutCancel(ctx), msg); err != nil {
			r.log.Error("stats retry requeue failed", "entry_id", msg.EntryID, "error", err)
		}
	})
}

func (r *RedisMQ) moveToDeadLetter(ctx context.Context, data string) {
	r.client.LPush(ctx, DeadLetterQueueName, data)
	r.client.LRem(ctx, ProcessingQueueName, 1, data)
}

// RetryDeadLetters moves every dead letter back to the main list with a fresh attempt count.
func (r *RedisMQ) RetryDeadLetters(ctx context.Context) (int, error) {
	messages, err := r.client.LRange(ctx, DeadLetterQueueName, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("read dead letters: %w", err)
	}

	count := 0
	for _, data := range messages {
		var msg RecomputeMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		msg.Attempt = 0
		msg.Timestamp = time.Now().Unix()
		if err := r.push(ctx, msg); err != nil {
			r.log.Warn("dead letter requeue failed", "message_id", msg.MessageID, "error", err)
			continue
		}
		r.client.LRem(ctx, DeadLetterQueueName, 1, data)
		count++
	}

	r.log.Info("dead letters requeued", "count", count)
	return count, nil
}

func (r *RedisMQ) Stats(ctx context.Context) Stats {
	pipe := r.client.Pipeline()
	mainLen := pipe.LLen(ctx, MainQueueName)
	procLen := pipe.LLen(ctx, ProcessingQueueName)
	deadLen := pipe.LLen(ctx, DeadLetterQueueName)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn("stats queue length query failed", "error", err)
	}

	return Stats{
		Driver:     config.MQDriverRedis,
		Pending:    mainLen.Val(),
		Processing: procLen.Val(),
		DeadLetter: deadLen.Val(),
		Published:  r.published.Load(),
		Processed:  r.processed.Load(),
		Failed:     r.failed.Load(),
	}
}
