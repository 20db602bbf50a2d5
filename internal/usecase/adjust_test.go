package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repomem "github.com/fairyhunter13/mentor-match/internal/adapter/repo/memory"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/usecase"
)

func newAdjuster(t *testing.T) (*usecase.WeightAdjuster, *repomem.Store, string, string) {
	t.Helper()
	store := repomem.NewStore()
	ctx := context.Background()
	mentorID, err := store.Mentors().Create(ctx, domain.MentorProfile{
		Name:      "Mentor",
		Bio:       "seasoned product leader",
		Expertise: "product management",
		Capacity:  1,
		Availability: domain.Availability{
			Windows: map[string][]string{"Mon": {"09:00-11:00"}},
		},
	})
	require.NoError(t, err)
	menteeID, err := store.Mentees().Create(ctx, domain.MenteeProfile{
		Name:  "Mentee",
		Goals: "grow into product management",
		Availability: domain.Availability{
			Windows: map[string][]string{"Mon": {"09:00-11:00"}},
		},
	})
	require.NoError(t, err)
	a := usecase.NewWeightAdjuster(store.Mentors(), store.Mentees(), axisEmbedder{}, store.Weights(), 50)
	return a, store, mentorID, menteeID
}

func TestAdjuster_IngestThenFlushKeepsWeightsNormalized(t *testing.T) {
	t.Parallel()
	a, store, mentorID, menteeID := newAdjuster(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Ingest(ctx, domain.FeedbackEvent{
			FeedbackID: "f",
			MenteeID:   menteeID,
			MentorID:   mentorID,
			Rating:     5,
		}))
	}
	assert.Equal(t, 5, a.PendingCount())

	w, err := a.Flush(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.Equal(t, 0, a.PendingCount())

	stored, err := store.Weights().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, w, stored)
}

func TestAdjuster_FlushWithoutEventsIsNoOp(t *testing.T) {
	t.Parallel()
	a, _, _, _ := newAdjuster(t)
	w, err := a.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWeights(), w)
}

func TestAdjuster_IngestRejectsBadEvents(t *testing.T) {
	t.Parallel()
	a, _, mentorID, menteeID := newAdjuster(t)
	ctx := context.Background()

	err := a.Ingest(ctx, domain.FeedbackEvent{MenteeID: menteeID, MentorID: mentorID, Rating: 9})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	err = a.Ingest(ctx, domain.FeedbackEvent{MenteeID: menteeID, MentorID: "ghost", Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, a.PendingCount())
}

func TestAdjuster_BatchSizeCapsCycle(t *testing.T) {
	t.Parallel()
	a, _, mentorID, menteeID := newAdjuster(t)
	a.BatchSize = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Ingest(ctx, domain.FeedbackEvent{MenteeID: menteeID, MentorID: mentorID, Rating: 4}))
	}
	_, err := a.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, a.PendingCount())
}
