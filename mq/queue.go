// Package mq retries statistics recomputes that failed after a vote was stored.
package mq

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoHandler   = errors.New("mq: no handler registered")
	ErrStopped     = errors.New("mq: queue stopped")
	ErrUnsupported = errors.New("mq: operation not supported by this driver")
)

// Handler recomputes the statistics of one entry.
type Handler func(ctx context.Context, entryID string) error

// RecomputeMessage asks for the statistics of EntryID to be rebuilt.
type RecomputeMessage struct {
	EntryID   string `json:"entry_id"`
	Timestamp int64  `json:"timestamp"`
	MessageID string `json:"message_id"`
	Attempt   int    `json:"attempt"`
}

func newMessage(entryID string) RecomputeMessage {
	return RecomputeMessage{
		EntryID:   entryID,
		Timestamp: time.Now().Unix(),
		MessageID: uuid.NewString(),
	}
}

// Stats describes a queue's backlog and throughput.
type Stats struct {
	Driver     string `json:"driver"`
	Pending    int64  `json:"pending"`
	Processing int64  `json:"processing"`
	DeadLetter int64  `json:"dead_letter"`
	Published  int64  `json:"published"`
	Processed  int64  `json:"processed"`
	Failed     int64  `json:"failed"`
}

// Queue is a retry queue for statistics recomputes.
type Queue interface {
	PublishRecompute(ctx context.Context, entryID string) error
	Start(ctx context.Context, handler Handler) error
	Stop()
	Stats(ctx context.Context) Stats
	RetryDeadLetters(ctx context.Context) (int, error)
}
