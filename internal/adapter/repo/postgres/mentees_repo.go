package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// MenteeRepo persists mentee profiles.
type MenteeRepo struct{ Pool PgxPool }

// NewMenteeRepo constructs a MenteeRepo with the given pool.
func NewMenteeRepo(p PgxPool) *MenteeRepo { return &MenteeRepo{Pool: p} }

const menteeColumns = `id, name, bio, goals, mentorship_style, availability, preferences, created_at, updated_at`

// Create stores a new mentee and returns its id (generates one if empty).
func (r *MenteeRepo) Create(ctx context.Context, m domain.MenteeProfile) (string, error) {
	tracer := otel.Tracer("repo.mentees")
	ctx, span := tracer.Start(ctx, "mentees.Create")
	defer span.End()
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO mentees (` + menteeColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`
	_, err := r.Pool.Exec(ctx, q, id, m.Name, m.Bio, m.Goals, m.MentorshipStyle, m.Availability, m.Preferences, now)
	if err != nil {
		return "", fmt.Errorf("op=mentee.create: %w", err)
	}
	return id, nil
}

// Update replaces the mentee's profile fields.
func (r *MenteeRepo) Update(ctx context.Context, m domain.MenteeProfile) error {
	tracer := otel.Tracer("repo.mentees")
	ctx, span := tracer.Start(ctx, "mentees.Update")
	defer span.End()
	q := `UPDATE mentees SET name=$2, bio=$3, goals=$4, mentorship_style=$5, availability=$6, preferences=$7, updated_at=$8 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, m.ID, m.Name, m.Bio, m.Goals, m.MentorshipStyle, m.Availability, m.Preferences, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=mentee.update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=mentee.update: %w", domain.ErrNotFound)
	}
	return nil
}

// Get loads a mentee by id.
func (r *MenteeRepo) Get(ctx context.Context, id string) (domain.MenteeProfile, error) {
	tracer := otel.Tracer("repo.mentees")
	ctx, span := tracer.Start(ctx, "mentees.Get")
	defer span.End()
	row := r.Pool.QueryRow(ctx, `SELECT `+menteeColumns+` FROM mentees WHERE id=$1`, id)
	var m domain.MenteeProfile
	err := row.Scan(&m.ID, &m.Name, &m.Bio, &m.Goals, &m.MentorshipStyle, &m.Availability, &m.Preferences, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MenteeProfile{}, fmt.Errorf("op=mentee.get: %w", domain.ErrNotFound)
		}
		return domain.MenteeProfile{}, fmt.Errorf("op=mentee.get: %w", err)
	}
	return m, nil
}
