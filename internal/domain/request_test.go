package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

func TestRequestStatus_CanTransition(t *testing.T) {
	t.Parallel()
	all := []domain.RequestStatus{
		domain.StatusPending,
		domain.StatusAccepted,
		domain.StatusRejected,
		domain.StatusCancelled,
		domain.StatusCompleted,
	}
	allowed := map[domain.RequestStatus][]domain.RequestStatus{
		domain.StatusPending:  {domain.StatusAccepted, domain.StatusRejected, domain.StatusCancelled},
		domain.StatusAccepted: {domain.StatusRejected, domain.StatusCompleted},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestRequestStatus_Terminal(t *testing.T) {
	t.Parallel()
	assert.False(t, domain.StatusPending.Terminal())
	assert.False(t, domain.StatusAccepted.Terminal())
	assert.True(t, domain.StatusRejected.Terminal())
	assert.True(t, domain.StatusCancelled.Terminal())
	assert.True(t, domain.StatusCompleted.Terminal())
}

func TestRequestStatus_Valid(t *testing.T) {
	t.Parallel()
	assert.True(t, domain.StatusPending.Valid())
	assert.False(t, domain.RequestStatus("ARCHIVED").Valid())
	assert.False(t, domain.RequestStatus("").Valid())
}

func TestWeights_Normalized(t *testing.T) {
	t.Parallel()
	w := domain.Weights{Similarity: 3, Overlap: 1, Preference: 1}.Normalized()
	assert.InDelta(t, 0.6, w.Similarity, 1e-9)
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)

	// Degenerate totals fall back to the defaults.
	assert.Equal(t, domain.DefaultWeights(), domain.Weights{}.Normalized())
}

func TestMentorProfile_Eligible(t *testing.T) {
	t.Parallel()
	m := domain.MentorProfile{Active: true, Capacity: 2, CurrentMentees: 1}
	assert.True(t, m.Eligible())
	m.CurrentMentees = 2
	assert.False(t, m.Eligible())
	m.CurrentMentees = 0
	m.Active = false
	assert.False(t, m.Eligible())
}
