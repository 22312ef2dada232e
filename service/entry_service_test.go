package service

import (
	"context"
	"testing"

	"chili-cookoff-backend/logging"
	"chili-cookoff-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCache struct {
	loads         int
	invalidations int
	cached        []models.Entry
}

func (c *countingCache) Get(ctx context.Context, load func(context.Context) ([]models.Entry, error)) ([]models.Entry, error) {
	if c.cached != nil {
		return c.cached, nil
	}
	c.loads++
	entries, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = entries
	return entries, nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidations++
	c.cached = nil
	return nil
}

func newEntryService(t *testing.T, f *fixture) (*EntryService, *countingCache) {
	t.Helper()
	c := &countingCache{}
	return NewEntryService(f.entries, f.votes, f.stats, EntryServiceOptions{
		Cache:         c,
		Broadcaster:   f.hub,
		WebhookSecret: "form-secret",
	}, logging.Discard()), c
}

func TestEntryService_CRUD(t *testing.T) {
	f := newFixture(t)
	svc, c := newEntryService(t, f)
	ctx := context.Background()

	created, err := svc.Create(ctx, models.EntryInput{Name: "  Ghost Pepper  ", ChefName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Ghost Pepper", created.Name)
	assert.Equal(t, 1, c.invalidations)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.ChefName)

	updated, err := svc.Update(ctx, created.ID, models.EntryInput{Name: "Ghost Pepper II", ChefName: "Ana", Ingredients: "ghost peppers"})
	require.NoError(t, err)
	assert.Equal(t, "ghost peppers", updated.Ingredients)

	_, err = svc.Update(ctx, "missing", models.EntryInput{Name: "x", ChefName: "y"})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = svc.Create(ctx, models.EntryInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestEntryService_LeaderboardUsesCache(t *testing.T) {
	f := newFixture(t)
	svc, c := newEntryService(t, f)
	ctx := context.Background()
	f.entry(t, "A")
	f.entry(t, "B")

	first, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	second, err := svc.Leaderboard(ctx)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.loads)
}

func TestEntryService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	svc, _ := newEntryService(t, f)
	ctx := context.Background()
	e := f.entry(t, "Doomed")

	res, err := f.service.SubmitVote(ctx, submission(e.ID, "s1", "", "", 4), Anonymous)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	require.NoError(t, svc.Delete(ctx, e.ID))
	assert.Equal(t, []string{e.ID}, f.hub.removed)

	ratings, err := f.votes.OverallRatings(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)

	assert.ErrorIs(t, svc.Delete(ctx, e.ID), ErrEntryNotFound)
}

func TestEntryService_Moderation(t *testing.T) {
	f := newFixture(t)
	svc, _ := newEntryService(t, f)
	ctx := context.Background()
	e := f.entry(t, "Moderated")

	for _, s := range []string{"s1", "s2", "s3"} {
		res, err := f.service.SubmitVote(ctx, submission(e.ID, s, "", "", 3), Anonymous)
		require.NoError(t, err)
		require.True(t, res.Accepted)
	}

	votes, err := svc.ListVotes(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, votes, 3)

	require.NoError(t, svc.DeleteVote(ctx, votes[0].ID))
	assert.EqualValues(t, 2, f.reload(t, e.ID).VoteCount)
	assert.ErrorIs(t, svc.DeleteVote(ctx, votes[0].ID), ErrVoteNotFound)

	removed, err := svc.ResetVotes(ctx, e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
	assert.Equal(t, models.EntryStats{}, f.reload(t, e.ID).Stats())

	_, err = svc.ListVotes(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestEntryService_RecomputeAll(t *testing.T) {
	f := newFixture(t)
	svc, _ := newEntryService(t, f)
	ctx := context.Background()
	a := f.entry(t, "A")
	b := f.entry(t, "B")

	require.NoError(t, f.votes.Insert(ctx, &models.Vote{EntryID: a.ID, OverallRating: 5, SessionID: "s", DedupeKey: "s"}))
	require.NoError(t, f.votes.Insert(ctx, &models.Vote{EntryID: b.ID, OverallRating: 2, SessionID: "s", DedupeKey: "s"}))

	n, err := svc.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 5.0, f.reload(t, a.ID).AverageRating)
	assert.Equal(t, 2.0, f.reload(t, b.ID).AverageRating)

	stats, err := svc.RecomputeStats(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.VoteCount)
}

func TestEntryService_Webhook(t *testing.T) {
	f := newFixture(t)
	svc, _ := newEntryService(t, f)
	ctx := context.Background()
	input := models.EntryInput{Name: "Form Chili", ChefName: "Form Chef"}

	_, err := svc.CreateFromWebhook(ctx, "wrong", input)
	assert.ErrorIs(t, err, ErrInvalidWebhook)

	entry, err := svc.CreateFromWebhook(ctx, "form-secret", input)
	require.NoError(t, err)
	assert.Equal(t, "Form Chili", entry.Name)

	disabled := NewEntryService(f.entries, f.votes, f.stats, EntryServiceOptions{}, logging.Discard())
	_, err = disabled.CreateFromWebhook(ctx, "", input)
	assert.ErrorIs(t, err, ErrInvalidWebhook)
}
