package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"chili-cookoff-backend/models"
	"chili-cookoff-backend/repository"

	"github.com/google/uuid"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

// VoteStore is the vote persistence used by the recorder.
type VoteStore interface {
	VoteLookup
	Insert(ctx context.Context, vote *models.Vote) error
	EntryIDsBySession(ctx context.Context, sessionID string) ([]string, error)
}

// EntryLookup reports whether an entry exists.
type EntryLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Locker runs action while holding the named lock.
type Locker interface {
	WithLock(ctx context.Context, name string, expiry time.Duration, action func() error) error
}

// StatsRefresher recomputes aggregates after a vote was stored.
type StatsRefresher interface {
	Refresh(ctx context.Context, entryID string)
}

// VoteServiceConfig configures the recorder.
type VoteServiceConfig struct {
	Validator ValidatorConfig
	LockTTL   time.Duration
}

// VoteService records votes: validate input, check for duplicates, insert, refresh stats.
type VoteService struct {
	entries   EntryLookup
	votes     VoteStore
	validator *Validator
	stats     StatsRefresher
	locker    Locker
	lockTTL   time.Duration
	failOpen  bool
	log       *slog.Logger
}

func NewVoteService(entries EntryLookup, votes VoteStore, stats StatsRefresher, locker Locker, cfg VoteServiceConfig, log *slog.Logger) *VoteService {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &VoteService{
		entries:   entries,
		votes:     votes,
		validator: NewValidator(votes, cfg.Validator, log),
		stats:     stats,
		locker:    locker,
		lockTTL:   ttl,
		failOpen:  cfg.Validator.FailOpen,
		log:       log,
	}
}

// ValidateSubmission checks the shape of sub without touching storage.
func ValidateSubmission(sub models.VoteSubmission) error {
	if strings.TrimSpace(sub.EntryID) == "" {
		return fmt.Errorf("%w: entry id is required", ErrInvalidSubmission)
	}
	if strings.TrimSpace(sub.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidSubmission)
	}

	ratings := []struct {
		name  string
		value int
	}{
		{"overall_rating", sub.OverallRating},
		{"taste", sub.CategoryRatings.Taste},
		{"presentation", sub.CategoryRatings.Presentation},
		{"creativity", sub.CategoryRatings.Creativity},
		{"spice_balance", sub.CategoryRatings.SpiceBalance},
	}
	for _, r := range ratings {
		if r.value < MinRating || r.value > MaxRating {
			return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidSubmission, r.name, MinRating, MaxRating)
		}
	}

	if utf8.RuneCountInString(sub.Comments) > MaxCommentLength {
		return fmt.Errorf("%w: comments must be at most %d characters", ErrInvalidSubmission, MaxCommentLength)
	}
	return nil
}

// SubmitVote records sub for the caller described by auth. A rejected duplicate is
// reported through the result, not the error.
func (s *VoteService) SubmitVote(ctx context.Context, sub models.VoteSubmission, auth AuthContext) (models.VoteResult, error) {
	if err := ValidateSubmission(sub); err != nil {
		return models.VoteResult{}, err
	}

	exists, err := s.entries.Exists(ctx, sub.EntryID)
	if err != nil {
		s.log.Error("entry lookup failed", "entry_id", sub.EntryID, "error", err)
		return models.VoteResult{}, ErrSubmitFailed
	}
	if !exists {
		return models.VoteResult{}, ErrEntryNotFound
	}

	var (
		result    models.VoteResult
		submitErr error
	)
	record := func() error {
		result, submitErr = s.record(ctx, sub, auth)
		return nil
	}

	if lockErr := s.locker.WithLock(ctx, lockName(sub), s.lockTTL, record); lockErr != nil {
		if !s.failOpen {
			return models.VoteResult{}, fmt.Errorf("%w: submission lock: %v", ErrValidationUnavailable, lockErr)
		}
		s.log.Warn("submission lock unavailable, continuing without it",
			"entry_id", sub.EntryID, "error", lockErr)
		_ = record()
	}

	return result, submitErr
}

func (s *VoteService) record(ctx context.Context, sub models.VoteSubmission, auth AuthContext) (models.VoteResult, error) {
	if !auth.skipsValidation() {
		decision, err := s.validator.Validate(ctx, Candidate{
			EntryID:           sub.EntryID,
			SessionID:         sub.SessionID,
			DeviceFingerprint: sub.DeviceFingerprint,
			IPAddress:         sub.IPAddress,
		})
		if err != nil {
			s.log.Error("vote checks unavailable", "entry_id", sub.EntryID, "error", err)
			return models.VoteResult{}, err
		}
		if !decision.Accepted {
			s.log.Info("vote rejected", "entry_id", sub.EntryID, "check", decision.Check)
			return models.VoteResult{Accepted: false, Reason: decision.Reason}, nil
		}
	}

	vote := newVote(sub, auth)
	if err := s.votes.Insert(ctx, vote); err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			s.log.Info("vote rejected by unique index", "entry_id", sub.EntryID)
			return models.VoteResult{Accepted: false, Reason: ReasonSessionVoted}, nil
		}
		s.log.Error("vote insert failed", "entry_id", sub.EntryID, "error", err)
		return models.VoteResult{}, ErrSubmitFailed
	}

	s.log.Info("vote recorded", "entry_id", sub.EntryID, "vote_id", vote.ID, "bypassed", vote.Bypassed)
	s.stats.Refresh(ctx, sub.EntryID)

	return models.VoteResult{Accepted: true}, nil
}

// VotedEntries lists the entries sessionID has a stored vote for.
func (s *VoteService) VotedEntries(ctx context.Context, sessionID string) ([]string, error) {
	if sessionID == "" {
		return []string{}, nil
	}
	ids, err := s.votes.EntryIDsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list voted entries: %w", err)
	}
	return ids, nil
}

func newVote(sub models.VoteSubmission, auth AuthContext) *models.Vote {
	dedupe := sub.SessionID
	if auth.Privileged {
		dedupe = sub.SessionID + ":admin:" + uuid.NewString()
	}
	return &models.Vote{
		EntryID:            sub.EntryID,
		OverallRating:      sub.OverallRating,
		TasteRating:        sub.CategoryRatings.Taste,
		PresentationRating: sub.CategoryRatings.Presentation,
		CreativityRating:   sub.CategoryRatings.Creativity,
		SpiceBalanceRating: sub.CategoryRatings.SpiceBalance,
		Comments:           sub.Comments,
		SessionID:          sub.SessionID,
		DeviceFingerprint:  sub.DeviceFingerprint,
		IPAddress:          sub.IPAddress,
		DedupeKey:          dedupe,
		Bypassed:           auth.Privileged,
	}
}

func lockName(sub models.VoteSubmission) string {
	return "vote:" + sub.EntryID + ":" + sub.SessionID
}
