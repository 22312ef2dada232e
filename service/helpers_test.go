package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chili-cookoff-backend/cache"
	"chili-cookoff-backend/database/dbtest"
	"chili-cookoff-backend/logging"
	"chili-cookoff-backend/models"
	"chili-cookoff-backend/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errBoom = errors.New("boom")

type fixture struct {
	db      *gorm.DB
	entries *repository.EntryRepository
	votes   *repository.VoteRepository
	stats   *StatsMaintainer
	queue   *recordingQueue
	hub     *recordingBroadcaster
	service *VoteService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	votes      func(*repository.VoteRepository) VoteStore
	statsStore func(*repository.VoteRepository) StatsStore
	locker     Locker
	failOpen   bool
}

func withVotes(f func(*repository.VoteRepository) VoteStore) fixtureOption {
	return func(c *fixtureConfig) { c.votes = f }
}

func withStatsStore(f func(*repository.VoteRepository) StatsStore) fixtureOption {
	return func(c *fixtureConfig) { c.statsStore = f }
}

func withLocker(l Locker) fixtureOption {
	return func(c *fixtureConfig) { c.locker = l }
}

func failClosed() fixtureOption {
	return func(c *fixtureConfig) { c.failOpen = false }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := fixtureConfig{
		votes:      func(r *repository.VoteRepository) VoteStore { return r },
		statsStore: func(r *repository.VoteRepository) StatsStore { return r },
		locker:     cache.NewLocalLocker(),
		failOpen:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := dbtest.New(t)
	entries := repository.NewEntryRepository(db)
	votes := repository.NewVoteRepository(db)
	hub := &recordingBroadcaster{}
	queue := &recordingQueue{}

	stats := NewStatsMaintainer(cfg.statsStore(votes), nil, hub, logging.Discard())
	stats.SetRetryQueue(queue)

	svc := NewVoteService(entries, cfg.votes(votes), stats, cfg.locker, VoteServiceConfig{
		Validator: ValidatorConfig{FailOpen: cfg.failOpen, IPWindow: 5 * time.Minute},
		LockTTL:   time.Second,
	}, logging.Discard())

	return &fixture{db: db, entries: entries, votes: votes, stats: stats, queue: queue, hub: hub, service: svc}
}

func (f *fixture) entry(t *testing.T, name string) *models.Entry {
	t.Helper()
	e, err := f.entries.Create(context.Background(), models.EntryInput{Name: name, ChefName: "Chef " + name})
	require.NoError(t, err)
	return e
}

func (f *fixture) reload(t *testing.T, id string) *models.Entry {
	t.Helper()
	e, err := f.entries.Get(context.Background(), id)
	require.NoError(t, err)
	return e
}

func submission(entryID, session, fingerprint, ip string, overall int) models.VoteSubmission {
	return models.VoteSubmission{
		EntryID:       entryID,
		OverallRating: overall,
		CategoryRatings: models.CategoryRatings{
			Taste:        4,
			Presentation: 4,
			Creativity:   3,
			SpiceBalance: 5,
		},
		SessionID:         session,
		DeviceFingerprint: fingerprint,
		IPAddress:         ip,
	}
}

type recordingQueue struct {
	mu      sync.Mutex
	entries []string
}

func (q *recordingQueue) PublishRecompute(_ context.Context, entryID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entryID)
	return nil
}

func (q *recordingQueue) published() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.entries...)
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	stats   map[string]models.EntryStats
	removed []string
}

func (b *recordingBroadcaster) PublishEntryStats(entryID string, stats models.EntryStats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stats == nil {
		b.stats = make(map[string]models.EntryStats)
	}
	b.stats[entryID] = stats
}

func (b *recordingBroadcaster) PublishEntryRemoved(entryID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, entryID)
}

// flakyVotes overrides selected vote store calls with failures.
type flakyVotes struct {
	*repository.VoteRepository
	insertErr      error
	fingerprintErr error
	blindSession   bool
}

func (v *flakyVotes) Insert(ctx context.Context, vote *models.Vote) error {
	if v.insertErr != nil {
		return v.insertErr
	}
	return v.VoteRepository.Insert(ctx, vote)
}

func (v *flakyVotes) ExistsBySession(ctx context.Context, entryID, sessionID string) (bool, error) {
	if v.blindSession {
		return false, nil
	}
	return v.VoteRepository.ExistsBySession(ctx, entryID, sessionID)
}

func (v *flakyVotes) ExistsByFingerprint(ctx context.Context, entryID, fingerprint string) (bool, error) {
	if v.fingerprintErr != nil {
		return false, v.fingerprintErr
	}
	return v.VoteRepository.ExistsByFingerprint(ctx, entryID, fingerprint)
}

type failingStats struct {
	*repository.VoteRepository
}

func (failingStats) UpdateEntryStats(context.Context, string, models.EntryStats) error {
	return errBoom
}

type brokenLocker struct{}

func (brokenLocker) WithLock(context.Context, string, time.Duration, func() error) error {
	return cache.ErrLockNotAcquired
}
