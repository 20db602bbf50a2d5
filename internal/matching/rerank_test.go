package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/matching"
)

func cand(id string, sim float64, overlap int, prefs int) matching.FilteredCandidate {
	return matching.FilteredCandidate{
		Mentor:            mentor(id, 3, 0),
		Similarity:        sim,
		OverlapMinutes:    overlap,
		OverlapKnown:      true,
		PreferenceMatches: prefs,
	}
}

func TestRerank_OrdersByWeightedScore(t *testing.T) {
	t.Parallel()
	cands := []matching.FilteredCandidate{
		cand("a", 0.90, 0, 0),
		cand("b", 0.50, 120, 4),
	}
	// Structured signals dominate: b wins despite lower similarity.
	w := domain.Weights{Similarity: 0.2, Overlap: 0.4, Preference: 0.4}
	got := matching.Rerank(cands, w, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Mentor.ID)
	assert.Equal(t, "a", got[1].Mentor.ID)

	// Similarity-heavy weights flip the order.
	w = domain.Weights{Similarity: 0.9, Overlap: 0.05, Preference: 0.05}
	got = matching.Rerank(cands, w, 5)
	assert.Equal(t, "a", got[0].Mentor.ID)
}

func TestRerank_TruncatesToTopK(t *testing.T) {
	t.Parallel()
	cands := []matching.FilteredCandidate{
		cand("a", 0.9, 60, 1),
		cand("b", 0.8, 30, 1),
		cand("c", 0.7, 10, 1),
	}
	got := matching.Rerank(cands, domain.DefaultWeights(), 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Mentor.ID)
	assert.Equal(t, "b", got[1].Mentor.ID)

	// Fewer candidates than K is not an error.
	got = matching.Rerank(cands, domain.DefaultWeights(), 10)
	assert.Len(t, got, 3)
}

func TestRerank_TieBreaksOnSimilarityThenID(t *testing.T) {
	t.Parallel()
	// Identical structured signals; equal similarity forces the id tie-break.
	cands := []matching.FilteredCandidate{
		cand("m9", 0.5, 60, 1),
		cand("m1", 0.5, 60, 1),
		cand("m5", 0.5, 60, 1),
	}
	got := matching.Rerank(cands, domain.DefaultWeights(), 5)
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].Mentor.ID)
	assert.Equal(t, "m5", got[1].Mentor.ID)
	assert.Equal(t, "m9", got[2].Mentor.ID)
}

func TestRerank_HigherSimilarityWinsEqualFinalScore(t *testing.T) {
	t.Parallel()
	// Zero weight on similarity makes final scores equal while raw
	// similarity still differs; the raw value must decide.
	cands := []matching.FilteredCandidate{
		cand("low", 0.2, 60, 1),
		cand("high", 0.9, 60, 1),
	}
	w := domain.Weights{Similarity: 0, Overlap: 0.5, Preference: 0.5}
	got := matching.Rerank(cands, w, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "high", got[0].Mentor.ID)
}

func TestRerank_UnknownOverlapIsNeutral(t *testing.T) {
	t.Parallel()
	unknown := cand("u", 0.5, 0, 1)
	unknown.OverlapKnown = false
	zero := cand("z", 0.5, 0, 1)
	best := cand("b", 0.5, 120, 1)

	w := domain.Weights{Similarity: 0, Overlap: 1, Preference: 0}
	got := matching.Rerank([]matching.FilteredCandidate{unknown, zero, best}, w, 3)
	require.Len(t, got, 3)
	// Known-best > unknown (neutral) > known-zero.
	assert.Equal(t, "b", got[0].Mentor.ID)
	assert.Equal(t, "u", got[1].Mentor.ID)
	assert.Equal(t, "z", got[2].Mentor.ID)
}

func TestRerank_EmptyInput(t *testing.T) {
	t.Parallel()
	assert.Empty(t, matching.Rerank(nil, domain.DefaultWeights(), 5))
}

func TestRerank_ExplanationsOrderedByContribution(t *testing.T) {
	t.Parallel()
	c := cand("a", 0.92, 90, 2)
	other := cand("b", 0.10, 30, 0)
	w := domain.Weights{Similarity: 0.8, Overlap: 0.1, Preference: 0.1}
	got := matching.Rerank([]matching.FilteredCandidate{c, other}, w, 1)
	require.Len(t, got, 1)
	require.NotEmpty(t, got[0].Explanations)
	assert.Contains(t, got[0].Explanations[0], "strong bio/goal alignment")
	assert.Contains(t, got[0].Explanations, "1h 30min of overlapping availability per week")
	assert.Contains(t, got[0].Explanations, "shares 2 preferences")
}

func TestRerank_DeterministicForSameInput(t *testing.T) {
	t.Parallel()
	cands := []matching.FilteredCandidate{
		cand("a", 0.7, 45, 1),
		cand("b", 0.6, 90, 2),
		cand("c", 0.8, 0, 0),
	}
	first := matching.Rerank(cands, domain.DefaultWeights(), 3)
	second := matching.Rerank(cands, domain.DefaultWeights(), 3)
	assert.Equal(t, first, second)
}
