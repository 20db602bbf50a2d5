package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repomem "github.com/fairyhunter13/mentor-match/internal/adapter/repo/memory"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/usecase"
)

type mentorshipEnv struct {
	store *repomem.Store
	svc   usecase.MentorshipService
}

func newMentorshipEnv(t *testing.T) *mentorshipEnv {
	t.Helper()
	return newMentorshipEnvWithLimit(t, 3)
}

func newMentorshipEnvWithLimit(t *testing.T, menteeMaxActive int) *mentorshipEnv {
	t.Helper()
	store := repomem.NewStore()
	return &mentorshipEnv{
		store: store,
		svc:   usecase.NewMentorshipService(store.Requests(), store.Mentors(), store.Mentees(), menteeMaxActive),
	}
}

func (e *mentorshipEnv) seed(t *testing.T, capacity int) (mentorID, menteeID string) {
	t.Helper()
	ctx := context.Background()
	mentorID, err := e.store.Mentors().Create(ctx, domain.MentorProfile{Name: "Mentor", Capacity: capacity, Active: true})
	require.NoError(t, err)
	menteeID, err = e.store.Mentees().Create(ctx, domain.MenteeProfile{Name: "Mentee"})
	require.NoError(t, err)
	return mentorID, menteeID
}

func TestMentorship_RequestRequiresBothParties(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnv(t)
	mentorID, menteeID := env.seed(t, 1)
	ctx := context.Background()

	_, err := env.svc.Request(ctx, "ghost", mentorID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.Request(ctx, menteeID, "ghost", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	req, err := env.svc.Request(ctx, menteeID, mentorID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, "hello", req.Message)
}

func TestMentorship_RequestToInactiveMentorFails(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnv(t)
	mentorID, menteeID := env.seed(t, 1)
	ctx := context.Background()
	require.NoError(t, env.store.Mentors().Deactivate(ctx, mentorID))

	_, err := env.svc.Request(ctx, menteeID, mentorID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMentorship_RequestAllowedWhileMentorFull(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnv(t)
	mentorID, menteeID := env.seed(t, 1)
	ctx := context.Background()

	other, err := env.store.Mentees().Create(ctx, domain.MenteeProfile{Name: "Other"})
	require.NoError(t, err)
	first, err := env.svc.Request(ctx, other, mentorID, "")
	require.NoError(t, err)
	_, err = env.svc.Accept(ctx, first.ID)
	require.NoError(t, err)

	// Requesting a full mentor is fine; only accept enforces capacity.
	req, err := env.svc.Request(ctx, menteeID, mentorID, "")
	require.NoError(t, err)

	_, err = env.svc.Accept(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	got, err := env.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestMentorship_ConcurrentAcceptsForLastSlot(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnv(t)
	ctx := context.Background()
	mentorID, err := env.store.Mentors().Create(ctx, domain.MentorProfile{Name: "Mentor", Capacity: 1, Active: true})
	require.NoError(t, err)

	const n = 10
	ids := make([]string, n)
	for i := range ids {
		menteeID, err := env.store.Mentees().Create(ctx, domain.MenteeProfile{Name: "Mentee"})
		require.NoError(t, err)
		req, err := env.svc.Request(ctx, menteeID, mentorID, "")
		require.NoError(t, err)
		ids[i] = req.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.svc.Accept(ctx, id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, accepted)

	m, err := env.store.Mentors().Get(ctx, mentorID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.CurrentMentees)
}

func TestMentorship_SecondAcceptForSamePairConflicts(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnv(t)
	mentorID, menteeID := env.seed(t, 3)
	ctx := context.Background()

	first, err := env.svc.Request(ctx, menteeID, mentorID, "")
	require.NoError(t, err)
	_, err = env.svc.Accept(ctx, first.ID)
	require.NoError(t, err)

	// A fresh request for the pair may be created while one is ACCEPTED, but
	// accepting it would double-book the relationship.
	second, err := env.svc.Request(ctx, menteeID, mentorID, "")
	require.NoError(t, err)
	_, err = env.svc.Accept(ctx, second.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := env.svc.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	m, err := env.store.Mentors().Get(ctx, mentorID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.CurrentMentees)
}

func TestMentorship_MenteeActiveMentorLimit(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnvWithLimit(t, 2)
	ctx := context.Background()
	menteeID, err := env.store.Mentees().Create(ctx, domain.MenteeProfile{Name: "Mentee"})
	require.NoError(t, err)

	mentors := make([]string, 3)
	reqs := make([]string, 3)
	for i := range mentors {
		mentors[i], err = env.store.Mentors().Create(ctx, domain.MentorProfile{Name: "Mentor", Capacity: 1, Active: true})
		require.NoError(t, err)
		req, err := env.svc.Request(ctx, menteeID, mentors[i], "")
		require.NoError(t, err)
		reqs[i] = req.ID
	}

	_, err = env.svc.Accept(ctx, reqs[0])
	require.NoError(t, err)
	_, err = env.svc.Accept(ctx, reqs[1])
	require.NoError(t, err)

	// At the cap: the request that went PENDING earlier is refused at accept,
	// and new requests are refused outright.
	_, err = env.svc.Accept(ctx, reqs[2])
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	other, err := env.store.Mentors().Create(ctx, domain.MentorProfile{Name: "Other", Capacity: 1, Active: true})
	require.NoError(t, err)
	_, err = env.svc.Request(ctx, menteeID, other, "")
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	// Completing one mentorship frees a slot under the cap.
	_, err = env.svc.Complete(ctx, reqs[0])
	require.NoError(t, err)
	_, err = env.svc.Accept(ctx, reqs[2])
	assert.NoError(t, err)
}

func TestMentorship_RejectRecordsReason(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnv(t)
	mentorID, menteeID := env.seed(t, 1)
	ctx := context.Background()

	req, err := env.svc.Request(ctx, menteeID, mentorID, "")
	require.NoError(t, err)
	got, err := env.svc.Reject(ctx, req.ID, "fully booked this quarter")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Equal(t, "fully booked this quarter", got.RejectionReason)

	m, err := env.store.Mentors().Get(ctx, mentorID)
	require.NoError(t, err)
	assert.Equal(t, 0, m.CurrentMentees)
}

func TestMentorship_CompleteLifecycle(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnv(t)
	mentorID, menteeID := env.seed(t, 1)
	ctx := context.Background()

	req, err := env.svc.Request(ctx, menteeID, mentorID, "")
	require.NoError(t, err)
	_, err = env.svc.Accept(ctx, req.ID)
	require.NoError(t, err)

	got, err := env.svc.Complete(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	// The freed slot is immediately reusable.
	again, err := env.svc.Request(ctx, menteeID, mentorID, "")
	require.NoError(t, err)
	_, err = env.svc.Accept(ctx, again.ID)
	assert.NoError(t, err)
}

func TestMentorship_ListByParty(t *testing.T) {
	t.Parallel()
	env := newMentorshipEnv(t)
	mentorID, menteeID := env.seed(t, 3)
	ctx := context.Background()

	req, err := env.svc.Request(ctx, menteeID, mentorID, "")
	require.NoError(t, err)

	byMentor, err := env.svc.ListByMentor(ctx, mentorID)
	require.NoError(t, err)
	require.Len(t, byMentor, 1)
	assert.Equal(t, req.ID, byMentor[0].ID)

	byMentee, err := env.svc.ListByMentee(ctx, menteeID)
	require.NoError(t, err)
	require.Len(t, byMentee, 1)
	assert.Equal(t, req.ID, byMentee[0].ID)
}
