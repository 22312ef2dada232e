package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chili-cookoff-backend/models"
	"chili-cookoff-backend/repository"
)

// EntryStore is the entry persistence used by EntryService.
type EntryStore interface {
	EntryLookup
	Create(ctx context.Context, input models.EntryInput) (*models.Entry, error)
	Get(ctx context.Context, id string) (*models.Entry, error)
	Leaderboard(ctx context.Context) ([]models.Entry, error)
	IDs(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id string, input models.EntryInput) (*models.Entry, error)
	Delete(ctx context.Context, id string) error
}

// VoteAdminStore is the vote persistence used by moderation operations.
type VoteAdminStore interface {
	ListByEntry(ctx context.Context, entryID string) ([]models.Vote, error)
	Delete(ctx context.Context, voteID string) (string, error)
	DeleteByEntry(ctx context.Context, entryID string) (int64, error)
}

// EntryService manages entries and moderates their votes.
type EntryService struct {
	entries       EntryStore
	votes         VoteAdminStore
	stats         *StatsMaintainer
	cache         LeaderboardCache
	broadcaster   Broadcaster
	webhookSecret string
	log           *slog.Logger
}

// EntryServiceOptions carries the optional collaborators of EntryService.
type EntryServiceOptions struct {
	Cache         LeaderboardCache
	Broadcaster   Broadcaster
	WebhookSecret string
}

func NewEntryService(entries EntryStore, votes VoteAdminStore, stats *StatsMaintainer, opts EntryServiceOptions, log *slog.Logger) *EntryService {
	return &EntryService{
		entries:       entries,
		votes:         votes,
		stats:         stats,
		cache:         opts.Cache,
		broadcaster:   opts.Broadcaster,
		webhookSecret: opts.WebhookSecret,
		log:           log,
	}
}

// Leaderboard lists entries by average rating, then vote count, then name.
func (s *EntryService) Leaderboard(ctx context.Context) ([]models.Entry, error) {
	if s.cache != nil {
		return s.cache.Get(ctx, s.entries.Leaderboard)
	}
	return s.entries.Leaderboard(ctx)
}

func (s *EntryService) Get(ctx context.Context, id string) (*models.Entry, error) {
	entry, err := s.entries.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	return entry, err
}

func (s *EntryService) Create(ctx context.Context, input models.EntryInput) (*models.Entry, error) {
	input = normalizeInput(input)
	if input.Name == "" || input.ChefName == "" {
		return nil, fmt.Errorf("%w: name and chef name are required", ErrInvalidSubmission)
	}

	entry, err := s.entries.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info("entry created", "entry_id", entry.ID, "name", entry.Name)
	return entry, nil
}

func (s *EntryService) Update(ctx context.Context, id string, input models.EntryInput) (*models.Entry, error) {
	input = normalizeInput(input)
	if input.Name == "" || input.ChefName == "" {
		return nil, fmt.Errorf("%w: name and chef name are required", ErrInvalidSubmission)
	}

	entry, err := s.entries.Update(ctx, id, input)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return entry, nil
}

// Delete removes an entry and all of its votes.
func (s *EntryService) Delete(ctx context.Context, id string) error {
	err := s.entries.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEntryNotFound
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	if s.broadcaster != nil {
		s.broadcaster.PublishEntryRemoved(id)
	}
	s.log.Info("entry deleted", "entry_id", id)
	return nil
}

// CreateFromWebhook creates an entry submitted through the form webhook. An
// unset secret disables the webhook.
func (s *EntryService) CreateFromWebhook(ctx context.Context, secret string, input models.EntryInput) (*models.Entry, error) {
	if s.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.webhookSecret)) != 1 {
		return nil, ErrInvalidWebhook
	}
	return s.Create(ctx, input)
}

func (s *EntryService) ListVotes(ctx context.Context, entryID string) ([]models.Vote, error) {
	if err := s.mustExist(ctx, entryID); err != nil {
		return nil, err
	}
	return s.votes.ListByEntry(ctx, entryID)
}

// DeleteVote removes one vote and recomputes its entry.
func (s *EntryService) DeleteVote(ctx context.Context, voteID string) error {
	entryID, err := s.votes.Delete(ctx, voteID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrVoteNotFound
	}
	if err != nil {
		return err
	}

	s.log.Info("vote deleted", "vote_id", voteID, "entry_id", entryID)
	_, err = s.stats.Recompute(ctx, entryID)
	return err
}

// ResetVotes removes every vote of an entry and zeroes its aggregates.
func (s *EntryService) ResetVotes(ctx context.Context, entryID string) (int64, error) {
	if err := s.mustExist(ctx, entryID); err != nil {
		return 0, err
	}

	n, err := s.votes.DeleteByEntry(ctx, entryID)
	if err != nil {
		return 0, err
	}
	s.log.Info("votes reset", "entry_id", entryID, "removed", n)

	if _, err := s.stats.Recompute(ctx, entryID); err != nil {
		return n, err
	}
	return n, nil
}

func (s *EntryService) RecomputeStats(ctx context.Context, entryID string) (models.EntryStats, error) {
	if err := s.mustExist(ctx, entryID); err != nil {
		return models.EntryStats{}, err
	}
	return s.stats.Recompute(ctx, entryID)
}

func (s *EntryService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.entries.IDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), s.stats.RecomputeAll(ctx, ids)
}

// InvalidateCache drops the cached leaderboard.
func (s *EntryService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func (s *EntryService) mustExist(ctx context.Context, id string) error {
	ok, err := s.entries.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEntryNotFound
	}
	return nil
}

func (s *EntryService) invalidate(ctx context.Context) {
	if err := s.InvalidateCache(ctx); err != nil {
		s.log.Warn("leaderboard cache invalidation failed", "error", err)
	}
}

func normalizeInput(in models.EntryInput) models.EntryInput {
	return models.EntryInput{
		Name:        strings.TrimSpace(in.Name),
		ChefName:    strings.TrimSpace(in.ChefName),
		Description: strings.TrimSpace(in.Description),
		Ingredients: strings.TrimSpace(in.Ingredients),
	}
}
