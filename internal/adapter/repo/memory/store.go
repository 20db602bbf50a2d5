// Package memory implements every repository port over in-process maps. It
// backs local development without PostgreSQL and the usecase unit tests. The
// transition semantics mirror the postgres adapter exactly, including the
// capacity re-check under the store lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// Store holds all records behind one mutex. A single lock keeps the
// request/capacity transitions atomic the same way the postgres transaction
// does.
type Store struct {
	mu       sync.Mutex
	mentors  map[string]domain.MentorProfile
	mentees  map[string]domain.MenteeProfile
	requests map[string]domain.MentorshipRequest
	feedback []domain.Feedback
	weights  *domain.Weights
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		mentors:  make(map[string]domain.MentorProfile),
		mentees:  make(map[string]domain.MenteeProfile),
		requests: make(map[string]domain.MentorshipRequest),
	}
}

// Mentors returns the store as a MentorRepository.
func (s *Store) Mentors() domain.MentorRepository { return (*mentorStore)(s) }

// Mentees returns the store as a MenteeRepository.
func (s *Store) Mentees() domain.MenteeRepository { return (*menteeStore)(s) }

// Requests returns the store as a RequestRepository.
func (s *Store) Requests() domain.RequestRepository { return (*requestStore)(s) }

// Feedback returns the store as a FeedbackRepository.
func (s *Store) Feedback() domain.FeedbackRepository { return (*feedbackStore)(s) }

// Weights returns the store as a WeightsStore.
func (s *Store) Weights() domain.WeightsStore { return (*weightsStore)(s) }

type mentorStore Store

func (s *mentorStore) Create(_ context.Context, m domain.MentorProfile) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if _, exists := s.mentors[m.ID]; exists {
		return "", fmt.Errorf("op=mentor.create: %s: %w", m.ID, domain.ErrConflict)
	}
	now := time.Now().UTC()
	m.CurrentMentees = 0
	m.CreatedAt = now
	m.UpdatedAt = now
	s.mentors[m.ID] = m
	return m.ID, nil
}

func (s *mentorStore) Update(_ context.Context, m domain.MentorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.mentors[m.ID]
	if !ok {
		return fmt.Errorf("op=mentor.update: %s: %w", m.ID, domain.ErrNotFound)
	}
	// The capacity counter moves only through request transitions.
	m.CurrentMentees = cur.CurrentMentees
	m.CreatedAt = cur.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	s.mentors[m.ID] = m
	return nil
}

func (s *mentorStore) Get(_ context.Context, id string) (domain.MentorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mentors[id]
	if !ok {
		return domain.MentorProfile{}, fmt.Errorf("op=mentor.get: %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

func (s *mentorStore) ListByIDs(_ context.Context, ids []string) ([]domain.MentorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MentorProfile, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.mentors[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mentorStore) ListActive(_ context.Context) ([]domain.MentorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MentorProfile
	for _, m := range s.mentors {
		if m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *mentorStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mentors[id]
	if !ok {
		return fmt.Errorf("op=mentor.deactivate: %s: %w", id, domain.ErrNotFound)
	}
	m.Active = false
	m.UpdatedAt = time.Now().UTC()
	s.mentors[id] = m
	return nil
}

type menteeStore Store

func (s *menteeStore) Create(_ context.Context, m domain.MenteeProfile) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if _, exists := s.mentees[m.ID]; exists {
		return "", fmt.Errorf("op=mentee.create: %s: %w", m.ID, domain.ErrConflict)
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	s.mentees[m.ID] = m
	return m.ID, nil
}

func (s *menteeStore) Update(_ context.Context, m domain.MenteeProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.mentees[m.ID]
	if !ok {
		return fmt.Errorf("op=mentee.update: %s: %w", m.ID, domain.ErrNotFound)
	}
	m.CreatedAt = cur.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	s.mentees[m.ID] = m
	return nil
}

func (s *menteeStore) Get(_ context.Context, id string) (domain.MenteeProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mentees[id]
	if !ok {
		return domain.MenteeProfile{}, fmt.Errorf("op=mentee.get: %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

type requestStore Store

func (s *requestStore) Create(_ context.Context, req domain.MentorshipRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.MenteeID == req.MenteeID && r.MentorID == req.MentorID && r.Status == domain.StatusPending {
			return "", fmt.Errorf("op=request.create: %w", domain.ErrDuplicateRequest)
		}
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	req.Status = domain.StatusPending
	req.RequestedAt = now
	req.UpdatedAt = now
	s.requests[req.ID] = req
	return req.ID, nil
}

func (s *requestStore) Get(_ context.Context, id string) (domain.MentorshipRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.get: %s: %w", id, domain.ErrNotFound)
	}
	return req, nil
}

func (s *requestStore) ListByMentor(_ context.Context, mentorID string) ([]domain.MentorshipRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MentorshipRequest
	for _, r := range s.requests {
		if r.MentorID == mentorID {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *requestStore) ListByMentee(_ context.Context, menteeID string) ([]domain.MentorshipRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MentorshipRequest
	for _, r := range s.requests {
		if r.MenteeID == menteeID {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *requestStore) Accept(_ context.Context, id string) (domain.MentorshipRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.accept: %s: %w", id, domain.ErrNotFound)
	}
	if req.Status != domain.StatusPending {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.accept: %s: %w", req.Status, domain.ErrInvalidTransition)
	}
	for _, r := range s.requests {
		if r.MenteeID == req.MenteeID && r.MentorID == req.MentorID && r.Status == domain.StatusAccepted {
			return domain.MentorshipRequest{}, fmt.Errorf("op=request.accept: pair already has an active mentorship: %w", domain.ErrConflict)
		}
	}
	m, ok := s.mentors[req.MentorID]
	if !ok || !m.Active || m.CurrentMentees >= m.Capacity {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.accept: mentor %s: %w", req.MentorID, domain.ErrCapacityExceeded)
	}
	now := time.Now().UTC()
	m.CurrentMentees++
	m.UpdatedAt = now
	s.mentors[req.MentorID] = m

	req.Status = domain.StatusAccepted
	req.AcceptedAt = &now
	req.UpdatedAt = now
	s.requests[id] = req
	return req, nil
}

func (s *requestStore) Reject(_ context.Context, id, reason string) (domain.MentorshipRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.reject: %s: %w", id, domain.ErrNotFound)
	}
	switch req.Status {
	case domain.StatusPending:
		// no capacity was reserved
	case domain.StatusAccepted:
		s.releaseSlot(req.MentorID)
	default:
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.reject: %s: %w", req.Status, domain.ErrInvalidTransition)
	}
	req.Status = domain.StatusRejected
	req.RejectionReason = reason
	req.UpdatedAt = time.Now().UTC()
	s.requests[id] = req
	return req, nil
}

func (s *requestStore) Cancel(_ context.Context, id string) (domain.MentorshipRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.cancel: %s: %w", id, domain.ErrNotFound)
	}
	if req.Status != domain.StatusPending {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.cancel: %s: %w", req.Status, domain.ErrInvalidTransition)
	}
	req.Status = domain.StatusCancelled
	req.UpdatedAt = time.Now().UTC()
	s.requests[id] = req
	return req, nil
}

func (s *requestStore) Complete(_ context.Context, id string) (domain.MentorshipRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.complete: %s: %w", id, domain.ErrNotFound)
	}
	if req.Status != domain.StatusAccepted {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.complete: %s: %w", req.Status, domain.ErrInvalidTransition)
	}
	s.releaseSlot(req.MentorID)
	now := time.Now().UTC()
	req.Status = domain.StatusCompleted
	req.CompletedAt = &now
	req.UpdatedAt = now
	s.requests[id] = req
	return req, nil
}

func (s *requestStore) HasAcceptedRelationship(_ context.Context, menteeID, mentorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.MenteeID == menteeID && r.MentorID == mentorID &&
			(r.Status == domain.StatusAccepted || r.Status == domain.StatusCompleted) {
			return true, nil
		}
	}
	return false, nil
}

func (s *requestStore) CountAcceptedByMentee(_ context.Context, menteeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.MenteeID == menteeID && r.Status == domain.StatusAccepted {
			n++
		}
	}
	return n, nil
}

// releaseSlot must be called with the store lock held.
func (s *requestStore) releaseSlot(mentorID string) {
	m, ok := s.mentors[mentorID]
	if !ok {
		return
	}
	if m.CurrentMentees > 0 {
		m.CurrentMentees--
	}
	m.UpdatedAt = time.Now().UTC()
	s.mentors[mentorID] = m
}

func sortRequests(rs []domain.MentorshipRequest) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].RequestedAt.Equal(rs[j].RequestedAt) {
			return rs[i].RequestedAt.After(rs[j].RequestedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

type feedbackStore Store

func (s *feedbackStore) Create(_ context.Context, f domain.Feedback) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = time.Now().UTC()
	s.feedback = append(s.feedback, f)
	return f.ID, nil
}

func (s *feedbackStore) ListSince(_ context.Context, since time.Time) ([]domain.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Feedback
	for _, f := range s.feedback {
		if !f.CreatedAt.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

type weightsStore Store

func (s *weightsStore) Load(_ context.Context) (domain.Weights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.weights == nil {
		return domain.DefaultWeights(), nil
	}
	return *s.weights, nil
}

func (s *weightsStore) Save(_ context.Context, w domain.Weights) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights = &w
	return nil
}
