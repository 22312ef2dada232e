package service

import (
	"context"
	"strings"
	"testing"

	"chili-cookoff-backend/models"
	"chili-cookoff-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitVote_TexasRed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entry(t, "Texas Red")
	assert.Zero(t, e.VoteCount)

	res, err := f.service.SubmitVote(ctx, submission(e.ID, "S1", "F1", "ip-1", 5), Anonymous)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	got := f.reload(t, e.ID)
	assert.EqualValues(t, 1, got.VoteCount)
	assert.Equal(t, 5.0, got.AverageRating)

	res, err = f.service.SubmitVote(ctx, submission(e.ID, "S1", "F1", "ip-1", 4), Anonymous)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Contains(t, res.Reason, "already voted")

	res, err = f.service.SubmitVote(ctx, submission(e.ID, "S2", "F1", "ip-2", 4), Anonymous)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Contains(t, res.Reason, "this device")

	res, err = f.service.SubmitVote(ctx, submission(e.ID, "S2", "F2", "ip-3", 3), Anonymous)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	got = f.reload(t, e.ID)
	assert.EqualValues(t, 2, got.VoteCount)
	assert.EqualValues(t, 8, got.TotalScore)
	assert.Equal(t, 4.0, got.AverageRating)
}

func TestSubmitVote_IdempotentRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entry(t, "Verde")

	identities := []struct{ session, fingerprint, ip string }{
		{"s-a", "f-a", "ip-a"},
		{"s-b", "", ""},
		{"s-c", "f-c", ""},
	}
	for _, id := range identities {
		sub := submission(e.ID, id.session, id.fingerprint, id.ip, 4)

		first, err := f.service.SubmitVote(ctx, sub, Anonymous)
		require.NoError(t, err)
		require.True(t, first.Accepted, id.session)

		second, err := f.service.SubmitVote(ctx, sub, Anonymous)
		require.NoError(t, err)
		assert.False(t, second.Accepted, id.session)
		assert.Equal(t, ReasonSessionVoted, second.Reason)
	}
}

func TestSubmitVote_FingerprintSurvivesClearedStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entry(t, "Cincinnati")

	res, err := f.service.SubmitVote(ctx, submission(e.ID, "browser-a", "device-d", "ip-1", 4), Anonymous)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	res, err = f.service.SubmitVote(ctx, submission(e.ID, "browser-b", "device-d", "ip-9", 4), Anonymous)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonDeviceVoted, res.Reason)
}

func TestSubmitVote_NetworkWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entry(t, "White Bean")

	res, err := f.service.SubmitVote(ctx, submission(e.ID, "s1", "f1", "shared-ip", 4), Anonymous)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	res, err = f.service.SubmitVote(ctx, submission(e.ID, "s2", "f2", "shared-ip", 4), Anonymous)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonNetworkRecent, res.Reason)
}

func TestSubmitVote_CrossEntryIndependence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e1 := f.entry(t, "First")
	e2 := f.entry(t, "Second")

	for _, e := range []*models.Entry{e1, e2} {
		res, err := f.service.SubmitVote(ctx, submission(e.ID, "s1", "f1", "ip-1", 5), Anonymous)
		require.NoError(t, err)
		assert.True(t, res.Accepted, e.Name)
	}

	voted, err := f.service.VotedEntries(ctx, "s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, voted)
}

func TestSubmitVote_AggregateCorrectness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entry(t, "Aggregates")

	ratings := []int{5, 4, 4, 3, 5, 1, 2}
	for i, r := range ratings {
		session := "session-" + string(rune('a'+i))
		res, err := f.service.SubmitVote(ctx, submission(e.ID, session, "", "", r), Anonymous)
		require.NoError(t, err)
		require.True(t, res.Accepted)
	}

	got := f.reload(t, e.ID)
	assert.Equal(t, ComputeStats(ratings), got.Stats())
	assert.EqualValues(t, len(ratings), got.VoteCount)
	assert.EqualValues(t, 24, got.TotalScore)
	assert.Equal(t, 3.4, got.AverageRating)
}

func TestSubmitVote_InvalidInputRejectedFirst(t *testing.T) {
	f := newFixture(t, withVotes(func(r *repository.VoteRepository) VoteStore {
		return &flakyVotes{VoteRepository: r, fingerprintErr: errBoom}
	}), failClosed())
	ctx := context.Background()
	e := f.entry(t, "Bounds")

	mutate := map[string]func(*models.VoteSubmission){
		"overall zero":      func(s *models.VoteSubmission) { s.OverallRating = 0 },
		"overall six":       func(s *models.VoteSubmission) { s.OverallRating = 6 },
		"taste negative":    func(s *models.VoteSubmission) { s.CategoryRatings.Taste = -1 },
		"presentation high": func(s *models.VoteSubmission) { s.CategoryRatings.Presentation = 9 },
		"creativity zero":   func(s *models.VoteSubmission) { s.CategoryRatings.Creativity = 0 },
		"spice six":         func(s *models.VoteSubmission) { s.CategoryRatings.SpiceBalance = 6 },
		"long comment":      func(s *models.VoteSubmission) { s.Comments = strings.Repeat("x", MaxCommentLength+1) },
		"no session":        func(s *models.VoteSubmission) { s.SessionID = "" },
		"no entry":          func(s *models.VoteSubmission) { s.EntryID = " " },
	}

	for name, m := range mutate {
		t.Run(name, func(t *testing.T) {
			sub := submission(e.ID, "fresh-"+name, "fresh-fp", "fresh-ip", 4)
			m(&sub)

			_, err := f.service.SubmitVote(ctx, sub, Anonymous)
			assert.ErrorIs(t, err, ErrInvalidSubmission)
		})
	}

	assert.Zero(t, f.reload(t, e.ID).VoteCount)
}

func TestValidateSubmission_CommentLimitCountsCharacters(t *testing.T) {
	sub := submission("e", "s", "", "", 3)
	sub.Comments = strings.Repeat("é", MaxCommentLength)
	assert.NoError(t, ValidateSubmission(sub))
}

func TestSubmitVote_UnknownEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SubmitVote(context.Background(), submission("missing", "s1", "", "", 4), Anonymous)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestSubmitVote_AdminBypass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entry(t, "Judges Table")
	admin := AuthContext{Privileged: true}

	const n = 4
	for i := 0; i < n; i++ {
		res, err := f.service.SubmitVote(ctx, submission(e.ID, "admin-session", "admin-fp", "admin-ip", 4), admin)
		require.NoError(t, err)
		assert.True(t, res.Accepted)
	}

	got := f.reload(t, e.ID)
	assert.EqualValues(t, n, got.VoteCount)
	assert.EqualValues(t, 4*n, got.TotalScore)
	assert.Equal(t, 4.0, got.AverageRating)

	votes, err := f.votes.ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	for _, v := range votes {
		assert.True(t, v.Bypassed)
	}

	res, err := f.service.SubmitVote(ctx, submission(e.ID, "admin-session", "admin-fp", "admin-ip", 4), Anonymous)
	require.NoError(t, err)
	assert.False(t, res.Accepted, "anonymous caller is still checked")
}

func TestSubmitVote_UniqueIndexBackstop(t *testing.T) {
	f := newFixture(t, withVotes(func(r *repository.VoteRepository) VoteStore {
		return &flakyVotes{VoteRepository: r, blindSession: true}
	}))
	ctx := context.Background()
	e := f.entry(t, "Race")

	res, err := f.service.SubmitVote(ctx, submission(e.ID, "s1", "", "", 4), Anonymous)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	res, err = f.service.SubmitVote(ctx, submission(e.ID, "s1", "", "", 4), Anonymous)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonSessionVoted, res.Reason)
	assert.EqualValues(t, 1, f.reload(t, e.ID).VoteCount)
}

func TestSubmitVote_InsertFailure(t *testing.T) {
	f := newFixture(t, withVotes(func(r *repository.VoteRepository) VoteStore {
		return &flakyVotes{VoteRepository: r, insertErr: errBoom}
	}))
	e := f.entry(t, "Broken")

	_, err := f.service.SubmitVote(context.Background(), submission(e.ID, "s1", "f1", "ip", 4), Anonymous)
	require.ErrorIs(t, err, ErrSubmitFailed)
	assert.Equal(t, "failed to submit vote", err.Error())
	assert.Zero(t, f.reload(t, e.ID).VoteCount)
	assert.Empty(t, f.queue.published())
}

func TestSubmitVote_StatsFailureKeepsVote(t *testing.T) {
	f := newFixture(t, withStatsStore(func(r *repository.VoteRepository) StatsStore {
		return failingStats{r}
	}))
	ctx := context.Background()
	e := f.entry(t, "Drift")

	res, err := f.service.SubmitVote(ctx, submission(e.ID, "s1", "f1", "ip", 4), Anonymous)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	ratings, err := f.votes.OverallRatings(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, ratings)
	assert.Zero(t, f.reload(t, e.ID).VoteCount)
	assert.Equal(t, []string{e.ID}, f.queue.published())
}

func TestSubmitVote_LookupFailure(t *testing.T) {
	flaky := func(r *repository.VoteRepository) VoteStore {
		return &flakyVotes{VoteRepository: r, fingerprintErr: errBoom}
	}

	t.Run("fail open accepts", func(t *testing.T) {
		f := newFixture(t, withVotes(flaky))
		e := f.entry(t, "Open")

		res, err := f.service.SubmitVote(context.Background(), submission(e.ID, "s1", "f1", "ip", 4), Anonymous)
		require.NoError(t, err)
		assert.True(t, res.Accepted)
	})

	t.Run("fail closed refuses", func(t *testing.T) {
		f := newFixture(t, withVotes(flaky), failClosed())
		e := f.entry(t, "Closed")

		_, err := f.service.SubmitVote(context.Background(), submission(e.ID, "s1", "f1", "ip", 4), Anonymous)
		require.ErrorIs(t, err, ErrValidationUnavailable)
		assert.Zero(t, f.reload(t, e.ID).VoteCount)
	})
}

func TestSubmitVote_LockFailure(t *testing.T) {
	t.Run("fail open proceeds", func(t *testing.T) {
		f := newFixture(t, withLocker(brokenLocker{}))
		e := f.entry(t, "No Lock")

		res, err := f.service.SubmitVote(context.Background(), submission(e.ID, "s1", "", "", 4), Anonymous)
		require.NoError(t, err)
		assert.True(t, res.Accepted)
	})

	t.Run("fail closed refuses", func(t *testing.T) {
		f := newFixture(t, withLocker(brokenLocker{}), failClosed())
		e := f.entry(t, "No Lock Closed")

		_, err := f.service.SubmitVote(context.Background(), submission(e.ID, "s1", "", "", 4), Anonymous)
		assert.ErrorIs(t, err, ErrValidationUnavailable)
	})
}

func TestSubmitVote_ConcurrentSameSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entry(t, "Stampede")

	const workers = 8
	results := make(chan models.VoteResult, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			res, err := f.service.SubmitVote(ctx, submission(e.ID, "same", "", "", 5), Anonymous)
			results <- res
			errs <- err
		}()
	}

	accepted := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
		if (<-results).Accepted {
			accepted++
		}
	}

	assert.Equal(t, 1, accepted)
	assert.EqualValues(t, 1, f.reload(t, e.ID).VoteCount)
}
