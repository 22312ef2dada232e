package service

import (
	"context"
	"testing"
	"time"

	"chili-cookoff-backend/database/dbtest"
	"chili-cookoff-backend/logging"
	"chili-cookoff-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAdminAuth(t *testing.T) *AdminAuth {
	t.Helper()
	auth, err := NewAdminAuth(AdminAuthConfig{
		Password:   "hot-sauce",
		SessionTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, repository.NewSessionRepository(dbtest.New(t)), logging.Discard())
	require.NoError(t, err)
	return auth
}

func TestAdminAuth_Lifecycle(t *testing.T) {
	auth := newAdminAuth(t)
	ctx := context.Background()

	token, expiresAt, err := auth.CreateSession(ctx, "hot-sauce")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	assert.True(t, auth.IsAuthenticated(ctx, token))
	assert.Equal(t, AuthContext{Privileged: true}, auth.Context(ctx, token))

	require.NoError(t, auth.ClearSession(ctx, token))
	assert.False(t, auth.IsAuthenticated(ctx, token))
	assert.Equal(t, Anonymous, auth.Context(ctx, token))
}

func TestAdminAuth_WrongPassword(t *testing.T) {
	auth := newAdminAuth(t)

	_, _, err := auth.CreateSession(context.Background(), "mild")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdminAuth_Expiry(t *testing.T) {
	auth := newAdminAuth(t)
	ctx := context.Background()

	token, _, err := auth.CreateSession(ctx, "hot-sauce")
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(24*time.Hour + time.Second) }
	assert.False(t, auth.IsAuthenticated(ctx, token))
}

func TestAdminAuth_UnknownTokens(t *testing.T) {
	auth := newAdminAuth(t)
	ctx := context.Background()

	assert.False(t, auth.IsAuthenticated(ctx, ""))
	assert.False(t, auth.IsAuthenticated(ctx, "forged"))
	assert.NoError(t, auth.ClearSession(ctx, ""))
}

func TestNewAdminAuth_RequiresPassword(t *testing.T) {
	_, err := NewAdminAuth(AdminAuthConfig{}, nil, logging.Discard())
	assert.Error(t, err)
}
