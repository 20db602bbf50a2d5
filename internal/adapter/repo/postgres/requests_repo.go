package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// RequestRepo persists mentorship requests. Lifecycle transitions run inside
// a transaction that locks the request row, so the status check, the capacity
// side effect and the status write are one atomic step. Two mentors racing
// for the last slot serialize on the conditional capacity UPDATE; the loser
// sees zero affected rows and the request stays PENDING.
type RequestRepo struct{ Pool PgxPool }

// NewRequestRepo constructs a RequestRepo with the given pool.
func NewRequestRepo(p PgxPool) *RequestRepo { return &RequestRepo{Pool: p} }

const requestColumns = `id, mentee_id, mentor_id, status, message, COALESCE(rejection_reason,''), requested_at, accepted_at, completed_at, updated_at`

// Create inserts a new PENDING request. A second pending request for the same
// pair trips the partial unique index and maps to ErrDuplicateRequest.
func (r *RequestRepo) Create(ctx context.Context, req domain.MentorshipRequest) (string, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.Create")
	defer span.End()
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO mentorship_requests (id, mentee_id, mentor_id, status, message, requested_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$6)`
	_, err := r.Pool.Exec(ctx, q, id, req.MenteeID, req.MentorID, domain.StatusPending, req.Message, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("op=request.create: %w", domain.ErrDuplicateRequest)
		}
		return "", fmt.Errorf("op=request.create: %w", err)
	}
	return id, nil
}

// Get loads a request by id.
func (r *RequestRepo) Get(ctx context.Context, id string) (domain.MentorshipRequest, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.Get")
	defer span.End()
	row := r.Pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM mentorship_requests WHERE id=$1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MentorshipRequest{}, fmt.Errorf("op=request.get: %w", domain.ErrNotFound)
		}
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.get: %w", err)
	}
	return req, nil
}

// ListByMentor returns the mentor's requests, newest first.
func (r *RequestRepo) ListByMentor(ctx context.Context, mentorID string) ([]domain.MentorshipRequest, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.ListByMentor")
	defer span.End()
	rows, err := r.Pool.Query(ctx, `SELECT `+requestColumns+` FROM mentorship_requests WHERE mentor_id=$1 ORDER BY requested_at DESC`, mentorID)
	if err != nil {
		return nil, fmt.Errorf("op=request.list_by_mentor: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListByMentee returns the mentee's requests, newest first.
func (r *RequestRepo) ListByMentee(ctx context.Context, menteeID string) ([]domain.MentorshipRequest, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.ListByMentee")
	defer span.End()
	rows, err := r.Pool.Query(ctx, `SELECT `+requestColumns+` FROM mentorship_requests WHERE mentee_id=$1 ORDER BY requested_at DESC`, menteeID)
	if err != nil {
		return nil, fmt.Errorf("op=request.list_by_mentee: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

// Accept moves PENDING to ACCEPTED and reserves a mentor slot in the same
// transaction. A full mentor returns ErrCapacityExceeded, a pair that already
// holds an ACCEPTED request returns ErrConflict; either way the request
// remains PENDING.
func (r *RequestRepo) Accept(ctx context.Context, id string) (domain.MentorshipRequest, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.Accept")
	defer span.End()
	return r.transition(ctx, id, "accept", func(ctx context.Context, tx pgx.Tx, req domain.MentorshipRequest, now time.Time) (domain.MentorshipRequest, error) {
		if req.Status != domain.StatusPending {
			return req, fmt.Errorf("op=request.accept: %s: %w", req.Status, domain.ErrInvalidTransition)
		}
		var active bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM mentorship_requests WHERE mentee_id=$1 AND mentor_id=$2 AND status=$3)`,
			req.MenteeID, req.MentorID, domain.StatusAccepted).Scan(&active)
		if err != nil {
			return req, fmt.Errorf("op=request.accept: %w", err)
		}
		if active {
			return req, fmt.Errorf("op=request.accept: pair already has an active mentorship: %w", domain.ErrConflict)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE mentors SET current_mentees = current_mentees + 1, updated_at=$2 WHERE id=$1 AND active AND current_mentees < capacity`,
			req.MentorID, now)
		if err != nil {
			return req, fmt.Errorf("op=request.accept: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return req, fmt.Errorf("op=request.accept: mentor %s: %w", req.MentorID, domain.ErrCapacityExceeded)
		}
		_, err = tx.Exec(ctx,
			`UPDATE mentorship_requests SET status=$2, accepted_at=$3, updated_at=$3 WHERE id=$1`,
			req.ID, domain.StatusAccepted, now)
		if err != nil {
			// A racing accept for the same pair trips the accepted-pair index.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return req, fmt.Errorf("op=request.accept: pair already has an active mentorship: %w", domain.ErrConflict)
			}
			return req, fmt.Errorf("op=request.accept: %w", err)
		}
		req.Status = domain.StatusAccepted
		req.AcceptedAt = &now
		req.UpdatedAt = now
		return req, nil
	})
}

// Reject declines a PENDING request, or ends an ACCEPTED mentorship early; the
// latter releases the mentor slot.
func (r *RequestRepo) Reject(ctx context.Context, id, reason string) (domain.MentorshipRequest, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.Reject")
	defer span.End()
	return r.transition(ctx, id, "reject", func(ctx context.Context, tx pgx.Tx, req domain.MentorshipRequest, now time.Time) (domain.MentorshipRequest, error) {
		switch req.Status {
		case domain.StatusPending:
			// no capacity was reserved
		case domain.StatusAccepted:
			if err := releaseSlot(ctx, tx, req.MentorID, now); err != nil {
				return req, fmt.Errorf("op=request.reject: %w", err)
			}
		default:
			return req, fmt.Errorf("op=request.reject: %s: %w", req.Status, domain.ErrInvalidTransition)
		}
		_, err := tx.Exec(ctx,
			`UPDATE mentorship_requests SET status=$2, rejection_reason=$3, updated_at=$4 WHERE id=$1`,
			req.ID, domain.StatusRejected, reason, now)
		if err != nil {
			return req, fmt.Errorf("op=request.reject: %w", err)
		}
		req.Status = domain.StatusRejected
		req.RejectionReason = reason
		req.UpdatedAt = now
		return req, nil
	})
}

// Cancel withdraws a PENDING request. Capacity is untouched.
func (r *RequestRepo) Cancel(ctx context.Context, id string) (domain.MentorshipRequest, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.Cancel")
	defer span.End()
	return r.transition(ctx, id, "cancel", func(ctx context.Context, tx pgx.Tx, req domain.MentorshipRequest, now time.Time) (domain.MentorshipRequest, error) {
		if req.Status != domain.StatusPending {
			return req, fmt.Errorf("op=request.cancel: %s: %w", req.Status, domain.ErrInvalidTransition)
		}
		_, err := tx.Exec(ctx,
			`UPDATE mentorship_requests SET status=$2, updated_at=$3 WHERE id=$1`,
			req.ID, domain.StatusCancelled, now)
		if err != nil {
			return req, fmt.Errorf("op=request.cancel: %w", err)
		}
		req.Status = domain.StatusCancelled
		req.UpdatedAt = now
		return req, nil
	})
}

// Complete finishes an ACCEPTED mentorship and releases the mentor slot.
func (r *RequestRepo) Complete(ctx context.Context, id string) (domain.MentorshipRequest, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.Complete")
	defer span.End()
	return r.transition(ctx, id, "complete", func(ctx context.Context, tx pgx.Tx, req domain.MentorshipRequest, now time.Time) (domain.MentorshipRequest, error) {
		if req.Status != domain.StatusAccepted {
			return req, fmt.Errorf("op=request.complete: %s: %w", req.Status, domain.ErrInvalidTransition)
		}
		if err := releaseSlot(ctx, tx, req.MentorID, now); err != nil {
			return req, fmt.Errorf("op=request.complete: %w", err)
		}
		_, err := tx.Exec(ctx,
			`UPDATE mentorship_requests SET status=$2, completed_at=$3, updated_at=$3 WHERE id=$1`,
			req.ID, domain.StatusCompleted, now)
		if err != nil {
			return req, fmt.Errorf("op=request.complete: %w", err)
		}
		req.Status = domain.StatusCompleted
		req.CompletedAt = &now
		req.UpdatedAt = now
		return req, nil
	})
}

// HasAcceptedRelationship reports whether the pair has an ACCEPTED or
// COMPLETED request.
func (r *RequestRepo) HasAcceptedRelationship(ctx context.Context, menteeID, mentorID string) (bool, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.HasAcceptedRelationship")
	defer span.End()
	row := r.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM mentorship_requests WHERE mentee_id=$1 AND mentor_id=$2 AND status = ANY($3))`,
		menteeID, mentorID, []string{string(domain.StatusAccepted), string(domain.StatusCompleted)})
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, fmt.Errorf("op=request.has_accepted: %w", err)
	}
	return ok, nil
}

// CountAcceptedByMentee returns the mentee's number of currently ACCEPTED
// requests across all mentors.
func (r *RequestRepo) CountAcceptedByMentee(ctx context.Context, menteeID string) (int, error) {
	tracer := otel.Tracer("repo.requests")
	ctx, span := tracer.Start(ctx, "requests.CountAcceptedByMentee")
	defer span.End()
	var n int
	err := r.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM mentorship_requests WHERE mentee_id=$1 AND status=$2`,
		menteeID, domain.StatusAccepted).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("op=request.count_accepted: %w", err)
	}
	return n, nil
}

type transitionFn func(ctx context.Context, tx pgx.Tx, req domain.MentorshipRequest, now time.Time) (domain.MentorshipRequest, error)

func (r *RequestRepo) transition(ctx context.Context, id, op string, fn transitionFn) (domain.MentorshipRequest, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM mentorship_requests WHERE id=$1 FOR UPDATE`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MentorshipRequest{}, fmt.Errorf("op=request.%s: %w", op, domain.ErrNotFound)
		}
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.%s: %w", op, err)
	}

	req, err = fn(ctx, tx, req, time.Now().UTC())
	if err != nil {
		return domain.MentorshipRequest{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.MentorshipRequest{}, fmt.Errorf("op=request.%s: %w", op, err)
	}
	return req, nil
}

// releaseSlot decrements the mentor's active mentee count. The floor guard
// keeps the counter invariant even if the row was repaired by hand.
func releaseSlot(ctx context.Context, tx pgx.Tx, mentorID string, now time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE mentors SET current_mentees = GREATEST(current_mentees - 1, 0), updated_at=$2 WHERE id=$1`,
		mentorID, now)
	return err
}

func scanRequest(row pgx.Row) (domain.MentorshipRequest, error) {
	var req domain.MentorshipRequest
	err := row.Scan(&req.ID, &req.MenteeID, &req.MentorID, &req.Status, &req.Message,
		&req.RejectionReason, &req.RequestedAt, &req.AcceptedAt, &req.CompletedAt, &req.UpdatedAt)
	return req, err
}

func collectRequests(rows pgx.Rows) ([]domain.MentorshipRequest, error) {
	var out []domain.MentorshipRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("op=request.scan: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=request.rows: %w", err)
	}
	return out, nil
}
