package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectormem "github.com/fairyhunter13/mentor-match/internal/adapter/vector/memory"
	repomem "github.com/fairyhunter13/mentor-match/internal/adapter/repo/memory"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/matching"
	"github.com/fairyhunter13/mentor-match/internal/usecase"
)

// axisEmbedder maps keyword buckets onto fixed axes so similarities in tests
// are predictable: texts sharing a bucket score near 1, others near 0.
type axisEmbedder struct{}

func (axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 4)
		low := strings.ToLower(t)
		switch {
		case strings.Contains(low, "product"):
			v[0] = 1
		case strings.Contains(low, "firmware"):
			v[1] = 1
		case strings.Contains(low, "design"):
			v[2] = 1
		default:
			v[3] = 1
		}
		out[i] = v
	}
	return out, nil
}

type matchEnv struct {
	store   *repomem.Store
	index   *vectormem.Index
	profile usecase.ProfileService
	match   usecase.MatchService
}

func newMatchEnv(t *testing.T) *matchEnv {
	t.Helper()
	store := repomem.NewStore()
	index := vectormem.New()
	emb := axisEmbedder{}
	holder := matching.NewWeightHolder(domain.DefaultWeights())
	return &matchEnv{
		store:   store,
		index:   index,
		profile: usecase.NewProfileService(store.Mentors(), store.Mentees(), emb, index),
		match:   usecase.NewMatchService(store.Mentees(), store.Mentors(), emb, index, holder, 5),
	}
}

func (e *matchEnv) addMentor(t *testing.T, name, expertise string, capacity int) domain.MentorProfile {
	t.Helper()
	m, err := e.profile.CreateMentor(context.Background(), domain.MentorProfile{
		Name:      name,
		Bio:       name + " has mentored for years",
		Expertise: expertise,
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return m
}

func (e *matchEnv) addMentee(t *testing.T, name, goals string) domain.MenteeProfile {
	t.Helper()
	m, err := e.profile.CreateMentee(context.Background(), domain.MenteeProfile{
		Name:  name,
		Bio:   name + " is early career",
		Goals: goals,
	})
	require.NoError(t, err)
	return m
}

func TestMatch_RanksRelevantExpertiseFirst(t *testing.T) {
	t.Parallel()
	env := newMatchEnv(t)
	pm := env.addMentor(t, "Priya", "product management leadership", 3)
	env.addMentor(t, "Frank", "firmware and embedded systems", 3)

	mentee := env.addMentee(t, "Maya", "break into product management")

	res, err := env.match.Match(context.Background(), mentee.ID, 2)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, pm.ID, res.Candidates[0].Mentor.ID)
	assert.Greater(t, res.Candidates[0].Similarity, res.Candidates[1].Similarity)
	assert.Empty(t, res.Message)
}

func TestMatch_FullMentorsExcluded(t *testing.T) {
	t.Parallel()
	env := newMatchEnv(t)
	full := env.addMentor(t, "Priya", "product management", 1)
	open := env.addMentor(t, "Pat", "product strategy", 2)

	// Fill the closer mentor.
	blocker := env.addMentee(t, "Blocker", "product")
	ms := usecase.NewMentorshipService(env.store.Requests(), env.store.Mentors(), env.store.Mentees(), 3)
	req, err := ms.Request(context.Background(), blocker.ID, full.ID, "")
	require.NoError(t, err)
	_, err = ms.Accept(context.Background(), req.ID)
	require.NoError(t, err)

	mentee := env.addMentee(t, "Maya", "product management")
	res, err := env.match.Match(context.Background(), mentee.ID, 5)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, open.ID, res.Candidates[0].Mentor.ID)
}

func TestMatch_NoCandidatesReturnsMessage(t *testing.T) {
	t.Parallel()
	env := newMatchEnv(t)
	mentee := env.addMentee(t, "Maya", "product management")

	res, err := env.match.Match(context.Background(), mentee.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, usecase.NoMatchMessage, res.Message)
}

func TestMatch_WidensOnceWhenPoolFiltersOut(t *testing.T) {
	t.Parallel()
	store := repomem.NewStore()
	index := vectormem.New()
	emb := axisEmbedder{}
	holder := matching.NewWeightHolder(domain.DefaultWeights())
	profile := usecase.NewProfileService(store.Mentors(), store.Mentees(), emb, index)
	// Pool multiplier 1 with topK 1 retrieves a single hit; if that one hit is
	// at capacity, only widening can find the viable mentor.
	match := usecase.NewMatchService(store.Mentees(), store.Mentors(), emb, index, holder, 1)

	ctx := context.Background()
	closest, err := profile.CreateMentor(ctx, domain.MentorProfile{Name: "Nearest", Bio: "x", Expertise: "product management", Capacity: 1})
	require.NoError(t, err)
	viable, err := profile.CreateMentor(ctx, domain.MentorProfile{Name: "Viable", Bio: "x", Expertise: "design systems", Capacity: 1})
	require.NoError(t, err)

	blocker, err := profile.CreateMentee(ctx, domain.MenteeProfile{Name: "Blocker", Goals: "product"})
	require.NoError(t, err)
	ms := usecase.NewMentorshipService(store.Requests(), store.Mentors(), store.Mentees(), 3)
	req, err := ms.Request(ctx, blocker.ID, closest.ID, "")
	require.NoError(t, err)
	_, err = ms.Accept(ctx, req.ID)
	require.NoError(t, err)

	mentee, err := profile.CreateMentee(ctx, domain.MenteeProfile{Name: "Maya", Goals: "product management"})
	require.NoError(t, err)

	res, err := match.Match(ctx, mentee.ID, 1)
	require.NoError(t, err)
	assert.True(t, res.Widened)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, viable.ID, res.Candidates[0].Mentor.ID)
}

func TestMatch_TruncatesToTopK(t *testing.T) {
	t.Parallel()
	env := newMatchEnv(t)
	for _, name := range []string{"A", "B", "C", "D"} {
		env.addMentor(t, name, "product management", 3)
	}
	mentee := env.addMentee(t, "Maya", "product management")

	res, err := env.match.Match(context.Background(), mentee.ID, 2)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2)
}

func TestMatch_UnknownMenteeAndBadTopK(t *testing.T) {
	t.Parallel()
	env := newMatchEnv(t)

	_, err := env.match.Match(context.Background(), "ghost", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mentee := env.addMentee(t, "Maya", "product")
	_, err = env.match.Match(context.Background(), mentee.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestMatch_DeactivatedMentorNotReturned(t *testing.T) {
	t.Parallel()
	env := newMatchEnv(t)
	m := env.addMentor(t, "Priya", "product management", 3)
	require.NoError(t, env.profile.DeactivateMentor(context.Background(), m.ID))

	mentee := env.addMentee(t, "Maya", "product management")
	res, err := env.match.Match(context.Background(), mentee.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
}
