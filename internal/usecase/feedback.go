package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/pkg/textx"
)

// FeedbackService records post-mentorship feedback and publishes events for
// the asynchronous weight adjuster. Publishing is best-effort; the rating is
// the record of truth and a dropped event only delays adjustment.
type FeedbackService struct {
	Feedback domain.FeedbackRepository
	Requests domain.RequestRepository
	Queue    domain.FeedbackQueue
	// RequireAccepted gates feedback on an accepted or completed mentorship
	// between the pair.
	RequireAccepted bool
}

// NewFeedbackService constructs a FeedbackService with its dependencies.
func NewFeedbackService(f domain.FeedbackRepository, r domain.RequestRepository, q domain.FeedbackQueue, requireAccepted bool) FeedbackService {
	return FeedbackService{Feedback: f, Requests: r, Queue: q, RequireAccepted: requireAccepted}
}

// Submit validates and stores one feedback record.
func (s FeedbackService) Submit(ctx context.Context, f domain.Feedback) (domain.Feedback, error) {
	if f.MenteeID == "" || f.MentorID == "" {
		return domain.Feedback{}, fmt.Errorf("op=feedback.submit: ids required: %w", domain.ErrInvalidArgument)
	}
	if f.Rating < 1 || f.Rating > 5 {
		return domain.Feedback{}, fmt.Errorf("op=feedback.submit: rating must be 1..5: %w", domain.ErrInvalidArgument)
	}
	if s.RequireAccepted {
		ok, err := s.Requests.HasAcceptedRelationship(ctx, f.MenteeID, f.MentorID)
		if err != nil {
			return domain.Feedback{}, fmt.Errorf("op=feedback.submit: %w", err)
		}
		if !ok {
			return domain.Feedback{}, fmt.Errorf("op=feedback.submit: no accepted mentorship between pair: %w", domain.ErrInvalidArgument)
		}
	}
	f.Comment = textx.SanitizeText(f.Comment)

	id, err := s.Feedback.Create(ctx, f)
	if err != nil {
		return domain.Feedback{}, err
	}
	f.ID = id

	if s.Queue != nil {
		evt := domain.FeedbackEvent{
			FeedbackID: f.ID,
			MenteeID:   f.MenteeID,
			MentorID:   f.MentorID,
			Rating:     f.Rating,
			CreatedAt:  f.CreatedAt,
		}
		if err := s.Queue.PublishFeedback(ctx, evt); err != nil {
			slog.Error("feedback event publish failed",
				slog.String("feedback_id", f.ID),
				slog.Any("error", err))
		}
	}
	return f, nil
}
