package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// FeedbackRepo persists feedback append-only; rows are never updated.
type FeedbackRepo struct{ Pool PgxPool }

// NewFeedbackRepo constructs a FeedbackRepo with the given pool.
func NewFeedbackRepo(p PgxPool) *FeedbackRepo { return &FeedbackRepo{Pool: p} }

// Create stores a feedback record and returns its id.
func (r *FeedbackRepo) Create(ctx context.Context, f domain.Feedback) (string, error) {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.Create")
	defer span.End()
	id := f.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO feedback (id, mentee_id, mentor_id, rating, comment, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.Pool.Exec(ctx, q, id, f.MenteeID, f.MentorID, f.Rating, f.Comment, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=feedback.create: %w", err)
	}
	return id, nil
}

// ListSince returns feedback created at or after the given time, oldest first.
func (r *FeedbackRepo) ListSince(ctx context.Context, since time.Time) ([]domain.Feedback, error) {
	tracer := otel.Tracer("repo.feedback")
	ctx, span := tracer.Start(ctx, "feedback.ListSince")
	defer span.End()
	rows, err := r.Pool.Query(ctx,
		`SELECT id, mentee_id, mentor_id, rating, COALESCE(comment,''), created_at FROM feedback WHERE created_at >= $1 ORDER BY created_at`,
		since)
	if err != nil {
		return nil, fmt.Errorf("op=feedback.list_since: %w", err)
	}
	defer rows.Close()
	var out []domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.MenteeID, &f.MentorID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=feedback.scan: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=feedback.rows: %w", err)
	}
	return out, nil
}
