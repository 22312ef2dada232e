package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SessionStore persists admin session tokens until they expire.
type SessionStore interface {
	Save(ctx context.Context, token string, expiresAt time.Time) error
	Valid(ctx context.Context, token string, now time.Time) (bool, error)
	Delete(ctx context.Context, token string) error
}

// AdminAuthConfig configures admin authentication.
type AdminAuthConfig struct {
	Password   string
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// AdminAuth issues and checks admin session tokens.
type AdminAuth struct {
	hash  []byte
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger
}

func NewAdminAuth(cfg AdminAuthConfig, store SessionStore, log *slog.Logger) (*AdminAuth, error) {
	if cfg.Password == "" {
		return nil, fmt.Errorf("admin password is empty")
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &AdminAuth{hash: hash, store: store, ttl: ttl, now: time.Now, log: log}, nil
}

// CreateSession checks password and returns a new token valid for the session TTL.
func (a *AdminAuth) CreateSession(ctx context.Context, password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		a.log.Warn("admin login rejected")
		return "", time.Time{}, ErrUnauthorized
	}

	token, err := newToken()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := a.now().UTC().Add(a.ttl)
	if err := a.store.Save(ctx, token, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("save admin session: %w", err)
	}

	a.log.Info("admin session created", "expires_at", expiresAt)
	return token, expiresAt, nil
}

// IsAuthenticated reports whether token names a live session. Store errors deny access.
func (a *AdminAuth) IsAuthenticated(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	ok, err := a.store.Valid(ctx, token, a.now().UTC())
	if err != nil {
		a.log.Error("admin session lookup failed", "error", err)
		return false
	}
	return ok
}

// ClearSession ends the session named by token.
func (a *AdminAuth) ClearSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := a.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

// Context resolves the bypass decision for a request carrying token.
func (a *AdminAuth) Context(ctx context.Context, token string) AuthContext {
	return AuthContext{Privileged: a.IsAuthenticated(ctx, token)}
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
