package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// MentorRepo persists mentor profiles. The capacity counter is mutated only
// by RequestRepo transitions; Update deliberately leaves it alone.
type MentorRepo struct{ Pool PgxPool }

// NewMentorRepo constructs a MentorRepo with the given pool.
func NewMentorRepo(p PgxPool) *MentorRepo { return &MentorRepo{Pool: p} }

const mentorColumns = `id, name, bio, expertise, capacity, current_mentees, availability, preferences, demographics, embedding, active, created_at, updated_at`

// Create stores a new mentor and returns its id (generates one if empty).
func (r *MentorRepo) Create(ctx context.Context, m domain.MentorProfile) (string, error) {
	tracer := otel.Tracer("repo.mentors")
	ctx, span := tracer.Start(ctx, "mentors.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "mentors"),
	)
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO mentors (` + mentorColumns + `) VALUES ($1,$2,$3,$4,$5,0,$6,$7,$8,$9,$10,$11,$11)`
	_, err := r.Pool.Exec(ctx, q, id, m.Name, m.Bio, m.Expertise, m.Capacity,
		m.Availability, m.Preferences, m.Demographics, m.Embedding, m.Active, now)
	if err != nil {
		return "", fmt.Errorf("op=mentor.create: %w", err)
	}
	return id, nil
}

// Update replaces the mentor's profile fields and cached embedding.
func (r *MentorRepo) Update(ctx context.Context, m domain.MentorProfile) error {
	tracer := otel.Tracer("repo.mentors")
	ctx, span := tracer.Start(ctx, "mentors.Update")
	defer span.End()
	q := `UPDATE mentors SET name=$2, bio=$3, expertise=$4, capacity=$5, availability=$6, preferences=$7, demographics=$8, embedding=$9, active=$10, updated_at=$11 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, m.ID, m.Name, m.Bio, m.Expertise, m.Capacity,
		m.Availability, m.Preferences, m.Demographics, m.Embedding, m.Active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=mentor.update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=mentor.update: %w", domain.ErrNotFound)
	}
	return nil
}

// Get loads a mentor by id.
func (r *MentorRepo) Get(ctx context.Context, id string) (domain.MentorProfile, error) {
	tracer := otel.Tracer("repo.mentors")
	ctx, span := tracer.Start(ctx, "mentors.Get")
	defer span.End()
	row := r.Pool.QueryRow(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE id=$1`, id)
	m, err := scanMentor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MentorProfile{}, fmt.Errorf("op=mentor.get: %w", domain.ErrNotFound)
		}
		return domain.MentorProfile{}, fmt.Errorf("op=mentor.get: %w", err)
	}
	return m, nil
}

// ListByIDs loads the mentors for the given ids. Unknown ids are skipped.
func (r *MentorRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.MentorProfile, error) {
	tracer := otel.Tracer("repo.mentors")
	ctx, span := tracer.Start(ctx, "mentors.ListByIDs")
	defer span.End()
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("op=mentor.list_by_ids: %w", err)
	}
	defer rows.Close()
	return collectMentors(rows)
}

// ListActive loads every active mentor, used to rebuild the vector index.
func (r *MentorRepo) ListActive(ctx context.Context) ([]domain.MentorProfile, error) {
	tracer := otel.Tracer("repo.mentors")
	ctx, span := tracer.Start(ctx, "mentors.ListActive")
	defer span.End()
	rows, err := r.Pool.Query(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("op=mentor.list_active: %w", err)
	}
	defer rows.Close()
	return collectMentors(rows)
}

// Deactivate marks the mentor inactive; the profile row stays for history.
func (r *MentorRepo) Deactivate(ctx context.Context, id string) error {
	tracer := otel.Tracer("repo.mentors")
	ctx, span := tracer.Start(ctx, "mentors.Deactivate")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `UPDATE mentors SET active=false, updated_at=$2 WHERE id=$1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=mentor.deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=mentor.deactivate: %w", domain.ErrNotFound)
	}
	return nil
}

func scanMentor(row pgx.Row) (domain.MentorProfile, error) {
	var m domain.MentorProfile
	err := row.Scan(&m.ID, &m.Name, &m.Bio, &m.Expertise, &m.Capacity, &m.CurrentMentees,
		&m.Availability, &m.Preferences, &m.Demographics, &m.Embedding, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func collectMentors(rows pgx.Rows) ([]domain.MentorProfile, error) {
	var out []domain.MentorProfile
	for rows.Next() {
		m, err := scanMentor(rows)
		if err != nil {
			return nil, fmt.Errorf("op=mentor.scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=mentor.rows: %w", err)
	}
	return out, nil
}
