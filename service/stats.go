package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chili-cookoff-backend/models"
)

// StatsStore reads the ratings of an entry and writes its aggregates.
type StatsStore interface {
	OverallRatings(ctx context.Context, entryID string) ([]int, error)
	UpdateEntryStats(ctx context.Context, entryID string, stats models.EntryStats) error
}

// RetryQueue accepts entries whose recompute failed.
type RetryQueue interface {
	PublishRecompute(ctx context.Context, entryID string) error
}

// Broadcaster pushes entry changes to live subscribers.
type Broadcaster interface {
	PublishEntryStats(entryID string, stats models.EntryStats)
	PublishEntryRemoved(entryID string)
}

// LeaderboardCache caches the ordered entry list.
type LeaderboardCache interface {
	Get(ctx context.Context, load func(context.Context) ([]models.Entry, error)) ([]models.Entry, error)
	Invalidate(ctx context.Context) error
}

// ComputeStats aggregates overall ratings. The average is rounded half up to one
// decimal, using integer tenths so 4.25 becomes 4.3.
func ComputeStats(ratings []int) models.EntryStats {
	n := len(ratings)
	if n == 0 {
		return models.EntryStats{}
	}

	total := 0
	for _, r := range ratings {
		total += r
	}

	tenths := (total*20 + n) / (2 * n)
	return models.EntryStats{
		VoteCount:     int64(n),
		TotalScore:    int64(total),
		AverageRating: float64(tenths) / 10,
	}
}

// StatsMaintainer keeps entry aggregates in step with the vote table.
type StatsMaintainer struct {
	store       StatsStore
	cache       LeaderboardCache
	broadcaster Broadcaster
	queue       RetryQueue
	log         *slog.Logger
}

// NewStatsMaintainer creates a maintainer. cache and broadcaster may be nil.
func NewStatsMaintainer(store StatsStore, cache LeaderboardCache, broadcaster Broadcaster, log *slog.Logger) *StatsMaintainer {
	return &StatsMaintainer{store: store, cache: cache, broadcaster: broadcaster, log: log}
}

// SetRetryQueue attaches the queue that receives failed recomputes. The queue's
// consumer usually calls Recompute, so it is wired after construction.
func (m *StatsMaintainer) SetRetryQueue(q RetryQueue) {
	m.queue = q
}

// Recompute rebuilds the aggregates of entryID from all its votes.
func (m *StatsMaintainer) Recompute(ctx context.Context, entryID string) (models.EntryStats, error) {
	ratings, err := m.store.OverallRatings(ctx, entryID)
	if err != nil {
		return models.EntryStats{}, fmt.Errorf("load ratings: %w", err)
	}

	stats := ComputeStats(ratings)
	if err := m.store.UpdateEntryStats(ctx, entryID, stats); err != nil {
		return models.EntryStats{}, fmt.Errorf("update entry stats: %w", err)
	}

	if m.cache != nil {
		if err := m.cache.Invalidate(ctx); err != nil {
			m.log.Warn("leaderboard cache invalidation failed", "error", err)
		}
	}
	if m.broadcaster != nil {
		m.broadcaster.PublishEntryStats(entryID, stats)
	}

	return stats, nil
}

// Refresh recomputes after a vote was stored. Failures are logged and queued,
// never returned, since the vote itself already succeeded.
func (m *StatsMaintainer) Refresh(ctx context.Context, entryID string) {
	if _, err := m.Recompute(ctx, entryID); err != nil {
		m.log.Error("stats recompute failed", "entry_id", entryID, "error", err)
		if m.queue == nil {
			return
		}
		if qerr := m.queue.PublishRecompute(context.WithoutCancel(ctx), entryID); qerr != nil {
			m.log.Error("stats retry enqueue failed", "entry_id", entryID, "error", qerr)
		}
	}
}

// RecomputeAll recomputes every entry in ids and joins the failures.
func (m *StatsMaintainer) RecomputeAll(ctx context.Context, ids []string) error {
	var errs []error
	for _, id := range ids {
		if _, err := m.Recompute(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
