package usecase

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/pkg/textx"
)

// MentorshipService drives the request lifecycle. The atomic pieces (status
// re-check plus capacity accounting) live in the RequestRepository; this layer
// validates inputs and records outcomes.
type MentorshipService struct {
	Requests domain.RequestRepository
	Mentors  domain.MentorRepository
	Mentees  domain.MenteeRepository
	// MenteeMaxActive caps a mentee's concurrent ACCEPTED mentorships across
	// all mentors. Zero or negative disables the cap.
	MenteeMaxActive int
}

// NewMentorshipService constructs a MentorshipService with its dependencies.
func NewMentorshipService(r domain.RequestRepository, mentors domain.MentorRepository, mentees domain.MenteeRepository, menteeMaxActive int) MentorshipService {
	return MentorshipService{Requests: r, Mentors: mentors, Mentees: mentees, MenteeMaxActive: menteeMaxActive}
}

// Request creates a PENDING request after checking both parties exist. The
// mentor may be at capacity at request time; capacity is only enforced at
// accept.
func (s MentorshipService) Request(ctx context.Context, menteeID, mentorID, message string) (domain.MentorshipRequest, error) {
	if menteeID == "" || mentorID == "" {
		return domain.MentorshipRequest{}, fmt.Errorf("op=mentorship.request: ids required: %w", domain.ErrInvalidArgument)
	}
	if _, err := s.Mentees.Get(ctx, menteeID); err != nil {
		return domain.MentorshipRequest{}, err
	}
	mentor, err := s.Mentors.Get(ctx, mentorID)
	if err != nil {
		return domain.MentorshipRequest{}, err
	}
	if !mentor.Active {
		return domain.MentorshipRequest{}, fmt.Errorf("op=mentorship.request: mentor inactive: %w", domain.ErrNotFound)
	}
	if err := s.checkMenteeLimit(ctx, menteeID); err != nil {
		return domain.MentorshipRequest{}, err
	}

	id, err := s.Requests.Create(ctx, domain.MentorshipRequest{
		MenteeID: menteeID,
		MentorID: mentorID,
		Message:  textx.SanitizeText(message),
	})
	if err != nil {
		return domain.MentorshipRequest{}, err
	}
	return s.Requests.Get(ctx, id)
}

// Accept reserves a mentor slot and moves the request to ACCEPTED. The
// mentee-side cap is re-checked here because requests can sit PENDING while
// the mentee accumulates other mentorships.
func (s MentorshipService) Accept(ctx context.Context, id string) (domain.MentorshipRequest, error) {
	cur, err := s.Requests.Get(ctx, id)
	if err != nil {
		return domain.MentorshipRequest{}, err
	}
	if err := s.checkMenteeLimit(ctx, cur.MenteeID); err != nil {
		observability.ObserveTransition(string(domain.StatusAccepted), "error")
		return domain.MentorshipRequest{}, err
	}
	req, err := s.Requests.Accept(ctx, id)
	if err != nil {
		observability.ObserveTransition(string(domain.StatusAccepted), "error")
		return domain.MentorshipRequest{}, err
	}
	observability.ObserveTransition(string(domain.StatusAccepted), "ok")
	return req, nil
}

// checkMenteeLimit enforces the mentee's concurrent-mentorship cap.
func (s MentorshipService) checkMenteeLimit(ctx context.Context, menteeID string) error {
	if s.MenteeMaxActive < 1 {
		return nil
	}
	n, err := s.Requests.CountAcceptedByMentee(ctx, menteeID)
	if err != nil {
		return err
	}
	if n >= s.MenteeMaxActive {
		return fmt.Errorf("op=mentorship: mentee %s has %d active mentorships: %w", menteeID, n, domain.ErrCapacityExceeded)
	}
	return nil
}

// Reject declines a PENDING request or ends an ACCEPTED mentorship early.
func (s MentorshipService) Reject(ctx context.Context, id, reason string) (domain.MentorshipRequest, error) {
	req, err := s.Requests.Reject(ctx, id, textx.SanitizeText(reason))
	if err != nil {
		observability.ObserveTransition(string(domain.StatusRejected), "error")
		return domain.MentorshipRequest{}, err
	}
	observability.ObserveTransition(string(domain.StatusRejected), "ok")
	return req, nil
}

// Cancel withdraws a PENDING request on the mentee's behalf.
func (s MentorshipService) Cancel(ctx context.Context, id string) (domain.MentorshipRequest, error) {
	req, err := s.Requests.Cancel(ctx, id)
	if err != nil {
		observability.ObserveTransition(string(domain.StatusCancelled), "error")
		return domain.MentorshipRequest{}, err
	}
	observability.ObserveTransition(string(domain.StatusCancelled), "ok")
	return req, nil
}

// Complete finishes an ACCEPTED mentorship and frees the mentor slot.
func (s MentorshipService) Complete(ctx context.Context, id string) (domain.MentorshipRequest, error) {
	req, err := s.Requests.Complete(ctx, id)
	if err != nil {
		observability.ObserveTransition(string(domain.StatusCompleted), "error")
		return domain.MentorshipRequest{}, err
	}
	observability.ObserveTransition(string(domain.StatusCompleted), "ok")
	return req, nil
}

// Get loads one request.
func (s MentorshipService) Get(ctx context.Context, id string) (domain.MentorshipRequest, error) {
	return s.Requests.Get(ctx, id)
}

// ListByMentor returns a mentor's requests, newest first.
func (s MentorshipService) ListByMentor(ctx context.Context, mentorID string) ([]domain.MentorshipRequest, error) {
	return s.Requests.ListByMentor(ctx, mentorID)
}

// ListByMentee returns a mentee's requests, newest first.
func (s MentorshipService) ListByMentee(ctx context.Context, menteeID string) ([]domain.MentorshipRequest, error) {
	return s.Requests.ListByMentee(ctx, menteeID)
}
