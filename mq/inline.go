package mq

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chili-cookoff-backend/config"
)

// InlineQueue retries in background goroutines of this process. Dead letters are
// kept in memory and lost on restart.
type InlineQueue struct {
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger

	mu      sync.Mutex
	handler Handler
	dead    []RecomputeMessage
	stopped bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	pending   atomic.Int64
	published atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

func NewInlineQueue(cfg config.MQConfig, log *slog.Logger) *InlineQueue {
	return &InlineQueue{
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		log:        log,
		stop:       make(chan struct{}),
	}
}

func (q *InlineQueue) Start(_ context.Context, handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}
	q.mu.Lock()
	q.handler = handler
	q.mu.Unlock()
	return nil
}

func (q *InlineQueue) PublishRecompute(_ context.Context, entryID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrStopped
	}
	if q.handler == nil {
		return ErrNoHandler
	}

	q.dispatch(newMessage(entryID), q.handler)
	return nil
}

// dispatch must be called with q.mu held.
func (q *InlineQueue) dispatch(msg RecomputeMessage, handler Handler) {
	q.published.Add(1)
	q.pending.Add(1)
	q.wg.Add(1)
	go q.run(msg, handler)
}

func (q *InlineQueue) run(msg RecomputeMessage, handler Handler) {
	defer q.wg.Done()
	defer q.pending.Add(-1)

	for {
		if !q.wait() {
			q.bury(msg)
			return
		}

		err := handler(context.Background(), msg.EntryID)
		if err == nil {
			q.processed.Add(1)
			q.log.Info("stats retry succeeded", "entry_id", msg.EntryID, "attempt", msg.Attempt+1)
			return
		}

		q.failed.Add(1)
		msg.Attempt++
		if msg.Attempt > q.maxRetries {
			q.log.Error("stats retry exhausted", "entry_id", msg.EntryID, "message_id", msg.MessageID, "error", err)
			q.bury(msg)
			return
		}
		q.log.Warn("stats retry failed", "entry_id", msg.EntryID, "attempt", msg.Attempt, "error", err)
	}
}

// wait sleeps for the retry delay and reports false when the queue stopped meanwhile.
func (q *InlineQueue) wait() bool {
	if q.retryDelay <= 0 {
		select {
		case <-q.stop:
			return false
		default:
			return true
		}
	}

	t := time.NewTimer(q.retryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-q.stop:
		return false
	}
}

func (q *InlineQueue) bury(msg RecomputeMessage) {
	q.mu.Lock()
	q.dead = append(q.dead, msg)
	q.mu.Unlock()
}

func (q *InlineQueue) RetryDeadLetters(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return 0, ErrStopped
	}
	if q.handler == nil {
		return 0, ErrNoHandler
	}

	dead := q.dead
	q.dead = nil
	for _, msg := range dead {
		msg.Attempt = 0
		msg.Timestamp = time.Now().Unix()
		q.dispatch(msg, q.handler)
	}
	return len(dead), nil
}

func (q *InlineQueue) Stats(_ context.Context) Stats {
	q.mu.Lock()
	dead := int64(len(q.dead))
	q.mu.Unlock()

	return Stats{
		Driver:     config.MQDriverInline,
		Pending:    q.pending.Load(),
		DeadLetter: dead,
		Published:  q.published.Load(),
		Processed:  q.processed.Load(),
		Failed:     q.failed.Load(),
	}
}

// Stop abandons pending retries to the dead-letter list and waits for workers.
func (q *InlineQueue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		close(q.stop)
	})
	q.wg.Wait()
}
