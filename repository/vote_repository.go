package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chili-cookoff-backend/models"

	"gorm.io/gorm"
)

// VoteRepository stores votes and the per-entry aggregates derived from them.
type VoteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a vote repository.
func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Insert writes one vote. A unique index violation is reported as ErrDuplicateVote.
func (r *VoteRepository) Insert(ctx context.Context, vote *models.Vote) error {
	err := r.db.WithContext(ctx).Create(vote).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateVote
	}
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

// ExistsBySession reports whether the session already voted for the entry.
func (r *VoteRepository) ExistsBySession(ctx context.Context, entryID, sessionID string) (bool, error) {
	return r.exists(ctx, r.db.Where("entry_id = ? AND session_id = ?", entryID, sessionID))
}

// ExistsByFingerprint reports whether the device already voted for the entry.
func (r *VoteRepository) ExistsByFingerprint(ctx context.Context, entryID, fingerprint string) (bool, error) {
	return r.exists(ctx, r.db.Where("entry_id = ? AND device_fingerprint = ?", entryID, fingerprint))
}

// ExistsByIPSince reports whether the address voted for the entry at or after since.
func (r *VoteRepository) ExistsByIPSince(ctx context.Context, entryID, ip string, since time.Time) (bool, error) {
	return r.exists(ctx, r.db.Where("entry_id = ? AND ip_address = ? AND created_at >= ?", entryID, ip, since.UTC()))
}

func (r *VoteRepository) exists(ctx context.Context, scope *gorm.DB) (bool, error) {
	var n int64
	if err := scope.WithContext(ctx).Model(&models.Vote{}).Count(&n).Error; err != nil {
		return false, fmt.Errorf("query votes: %w", err)
	}
	return n > 0, nil
}

// OverallRatings returns every overall rating stored for the entry.
func (r *VoteRepository) OverallRatings(ctx context.Context, entryID string) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("entry_id = ?", entryID).
		Pluck("overall_rating", &ratings).Error
	if err != nil {
		return nil, fmt.Errorf("load ratings of entry %s: %w", entryID, err)
	}
	return ratings, nil
}

// UpdateEntryStats writes the three aggregate fields of an entry in one statement.
func (r *VoteRepository) UpdateEntryStats(ctx context.Context, entryID string, stats models.EntryStats) error {
	err := r.db.WithContext(ctx).Model(&models.Entry{}).Where("id = ?", entryID).Updates(map[string]any{
		"vote_count":     stats.VoteCount,
		"total_score":    stats.TotalScore,
		"average_rating": stats.AverageRating,
	}).Error
	if err != nil {
		return fmt.Errorf("update stats of entry %s: %w", entryID, err)
	}
	return nil
}

// ListByEntry returns the votes of an entry, newest first.
func (r *VoteRepository) ListByEntry(ctx context.Context, entryID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at DESC").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("list votes of entry %s: %w", entryID, err)
	}
	return votes, nil
}

// EntryIDsBySession returns the entries a session has voted for.
func (r *VoteRepository) EntryIDsBySession(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("session_id = ?", sessionID).
		Distinct().
		Pluck("entry_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list voted entries: %w", err)
	}
	return ids, nil
}

// Delete removes one vote and returns the entry it belonged to.
func (r *VoteRepository) Delete(ctx context.Context, voteID string) (string, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&vote, "id = ?", voteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return tx.Delete(&vote).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("delete vote %s: %w", voteID, err)
	}
	return vote.EntryID, nil
}

// DeleteByEntry removes all votes of an entry and returns how many were removed.
func (r *VoteRepository) DeleteByEntry(ctx context.Context, entryID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("entry_id = ?", entryID).Delete(&models.Vote{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete votes of entry %s: %w", entryID, res.Error)
	}
	return res.RowsAffected, nil
}
