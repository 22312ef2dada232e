package repository

import (
	"context"
	"fmt"
	"time"

	"chili-cookoff-backend/models"

	"gorm.io/gorm"
)

// SessionRepository persists privileged admin sessions in the database.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a session repository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save stores a session token valid until expiresAt.
func (r *SessionRepository) Save(ctx context.Context, token string, expiresAt time.Time) error {
	session := models.AdminSession{Token: token, ExpiresAt: expiresAt.UTC()}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return fmt.Errorf("save admin session: %w", err)
	}
	return nil
}

// Valid reports whether the token exists and has not expired at now.
func (r *SessionRepository) Valid(ctx context.Context, token string, now time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AdminSession{}).
		Where("token = ? AND expires_at > ?", token, now.UTC()).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check admin session: %w", err)
	}
	return n > 0, nil
}

// Delete removes a token. Deleting an unknown token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.AdminSession{}).Error; err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions that expired before now.
func (r *SessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&models.AdminSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge admin sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
