package service

import (
	"context"
	"testing"

	"chili-cookoff-backend/models"
	"chili-cookoff-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    models.EntryStats
	}{
		{"no votes", nil, models.EntryStats{}},
		{"single", []int{5}, models.EntryStats{VoteCount: 1, TotalScore: 5, AverageRating: 5.0}},
		{"even split", []int{5, 3}, models.EntryStats{VoteCount: 2, TotalScore: 8, AverageRating: 4.0}},
		{"half rounds up", []int{4, 4, 5, 4}, models.EntryStats{VoteCount: 4, TotalScore: 17, AverageRating: 4.3}},
		{"thirds round down", []int{4, 4, 5}, models.EntryStats{VoteCount: 3, TotalScore: 13, AverageRating: 4.3}},
		{"one and two thirds", []int{1, 2, 2}, models.EntryStats{VoteCount: 3, TotalScore: 5, AverageRating: 1.7}},
		{"exact half", []int{1, 2}, models.EntryStats{VoteCount: 2, TotalScore: 3, AverageRating: 1.5}},
		{"low thirds", []int{1, 1, 2}, models.EntryStats{VoteCount: 3, TotalScore: 4, AverageRating: 1.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStats(tt.ratings))
		})
	}
}

func TestStatsMaintainer_Recompute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.entry(t, "Brisket Bowl")

	for i, r := range []int{5, 4, 4} {
		require.NoError(t, f.votes.Insert(ctx, &models.Vote{
			EntryID:       e.ID,
			OverallRating: r,
			SessionID:     string(rune('a' + i)),
			DedupeKey:     string(rune('a' + i)),
		}))
	}

	stats, err := f.stats.Recompute(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStats{VoteCount: 3, TotalScore: 13, AverageRating: 4.3}, stats)
	assert.Equal(t, stats, f.reload(t, e.ID).Stats())
	assert.Equal(t, stats, f.hub.stats[e.ID])
}

func TestStatsMaintainer_RefreshQueuesFailure(t *testing.T) {
	f := newFixture(t, withStatsStore(func(r *repository.VoteRepository) StatsStore { return failingStats{r} }))
	e := f.entry(t, "Smoke Show")

	f.stats.Refresh(context.Background(), e.ID)

	assert.Equal(t, []string{e.ID}, f.queue.published())
	assert.Empty(t, f.hub.stats)
}
