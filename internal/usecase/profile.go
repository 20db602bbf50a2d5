// Package usecase contains the application services: profile management,
// matching, the mentorship request lifecycle and feedback intake.
package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/pkg/textx"
)

// ProfileService manages mentor and mentee profiles and keeps the vector
// index in sync with mentor bio/expertise text.
type ProfileService struct {
	Mentors  domain.MentorRepository
	Mentees  domain.MenteeRepository
	Embedder domain.Embedder
	Index    domain.VectorIndex
}

// NewProfileService constructs a ProfileService with its dependencies.
func NewProfileService(mentors domain.MentorRepository, mentees domain.MenteeRepository, e domain.Embedder, idx domain.VectorIndex) ProfileService {
	return ProfileService{Mentors: mentors, Mentees: mentees, Embedder: e, Index: idx}
}

// MentorEmbeddingText assembles the text a mentor is indexed under.
func MentorEmbeddingText(m domain.MentorProfile) string {
	return textx.JoinNonEmpty(m.Bio, m.Expertise)
}

// MenteeEmbeddingText assembles the query text for a mentee.
func MenteeEmbeddingText(m domain.MenteeProfile) string {
	return textx.JoinNonEmpty(m.Bio, m.Goals, m.MentorshipStyle)
}

// CreateMentor validates, embeds and persists a new mentor, then indexes it.
func (s ProfileService) CreateMentor(ctx context.Context, m domain.MentorProfile) (domain.MentorProfile, error) {
	if err := validateMentor(m); err != nil {
		return domain.MentorProfile{}, err
	}
	text := MentorEmbeddingText(m)
	if text == "" {
		return domain.MentorProfile{}, fmt.Errorf("op=profile.create_mentor: bio and expertise: %w", domain.ErrEmptyText)
	}
	vecs, err := s.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return domain.MentorProfile{}, fmt.Errorf("op=profile.create_mentor: %w", err)
	}
	m.Embedding = vecs[0]
	m.Active = true
	id, err := s.Mentors.Create(ctx, m)
	if err != nil {
		return domain.MentorProfile{}, err
	}
	m.ID = id
	if err := s.Index.Upsert(ctx, id, m.Embedding); err != nil {
		// The profile exists; the index catches up on the next rebuild.
		slog.Error("mentor index upsert failed", slog.String("mentor_id", id), slog.Any("error", err))
	}
	return s.Mentors.Get(ctx, id)
}

// UpdateMentor re-embeds when the indexed text changed and syncs the index.
// Deactivating a mentor removes it from retrieval entirely.
func (s ProfileService) UpdateMentor(ctx context.Context, m domain.MentorProfile) (domain.MentorProfile, error) {
	if m.ID == "" {
		return domain.MentorProfile{}, fmt.Errorf("op=profile.update_mentor: id: %w", domain.ErrInvalidArgument)
	}
	if err := validateMentor(m); err != nil {
		return domain.MentorProfile{}, err
	}
	cur, err := s.Mentors.Get(ctx, m.ID)
	if err != nil {
		return domain.MentorProfile{}, err
	}

	text := MentorEmbeddingText(m)
	if text == "" {
		return domain.MentorProfile{}, fmt.Errorf("op=profile.update_mentor: bio and expertise: %w", domain.ErrEmptyText)
	}
	if text != MentorEmbeddingText(cur) || len(cur.Embedding) == 0 {
		vecs, err := s.Embedder.Embed(ctx, []string{text})
		if err != nil {
			return domain.MentorProfile{}, fmt.Errorf("op=profile.update_mentor: %w", err)
		}
		m.Embedding = vecs[0]
	} else {
		m.Embedding = cur.Embedding
	}

	if err := s.Mentors.Update(ctx, m); err != nil {
		return domain.MentorProfile{}, err
	}
	if m.Active {
		if err := s.Index.Upsert(ctx, m.ID, m.Embedding); err != nil {
			slog.Error("mentor index upsert failed", slog.String("mentor_id", m.ID), slog.Any("error", err))
		}
	} else {
		if err := s.Index.Remove(ctx, m.ID); err != nil {
			slog.Error("mentor index remove failed", slog.String("mentor_id", m.ID), slog.Any("error", err))
		}
	}
	return s.Mentors.Get(ctx, m.ID)
}

// DeactivateMentor marks the mentor inactive and drops it from the index.
func (s ProfileService) DeactivateMentor(ctx context.Context, id string) error {
	if err := s.Mentors.Deactivate(ctx, id); err != nil {
		return err
	}
	if err := s.Index.Remove(ctx, id); err != nil {
		slog.Error("mentor index remove failed", slog.String("mentor_id", id), slog.Any("error", err))
	}
	return nil
}

// CreateMentee validates and persists a new mentee. Mentee embeddings are
// computed per match call, never stored.
func (s ProfileService) CreateMentee(ctx context.Context, m domain.MenteeProfile) (domain.MenteeProfile, error) {
	if err := validateMentee(m); err != nil {
		return domain.MenteeProfile{}, err
	}
	id, err := s.Mentees.Create(ctx, m)
	if err != nil {
		return domain.MenteeProfile{}, err
	}
	return s.Mentees.Get(ctx, id)
}

// UpdateMentee replaces the mentee's profile.
func (s ProfileService) UpdateMentee(ctx context.Context, m domain.MenteeProfile) (domain.MenteeProfile, error) {
	if m.ID == "" {
		return domain.MenteeProfile{}, fmt.Errorf("op=profile.update_mentee: id: %w", domain.ErrInvalidArgument)
	}
	if err := validateMentee(m); err != nil {
		return domain.MenteeProfile{}, err
	}
	if err := s.Mentees.Update(ctx, m); err != nil {
		return domain.MenteeProfile{}, err
	}
	return s.Mentees.Get(ctx, m.ID)
}

// RebuildIndex re-embeds active mentors missing a cached vector and loads
// everything into the index. Called at startup so retrieval survives restarts.
func (s ProfileService) RebuildIndex(ctx context.Context) (int, error) {
	mentors, err := s.Mentors.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("op=profile.rebuild_index: %w", err)
	}
	n := 0
	for _, m := range mentors {
		vec := m.Embedding
		if len(vec) == 0 {
			text := MentorEmbeddingText(m)
			if text == "" {
				slog.Warn("skipping mentor with empty profile text", slog.String("mentor_id", m.ID))
				continue
			}
			vecs, err := s.Embedder.Embed(ctx, []string{text})
			if err != nil {
				return n, fmt.Errorf("op=profile.rebuild_index: mentor %s: %w", m.ID, err)
			}
			vec = vecs[0]
			m.Embedding = vec
			if err := s.Mentors.Update(ctx, m); err != nil {
				slog.Error("persisting rebuilt embedding failed", slog.String("mentor_id", m.ID), slog.Any("error", err))
			}
		}
		if err := s.Index.Upsert(ctx, m.ID, vec); err != nil {
			return n, fmt.Errorf("op=profile.rebuild_index: mentor %s: %w", m.ID, err)
		}
		n++
	}
	slog.Info("vector index rebuilt", slog.Int("mentors", n))
	return n, nil
}

func validateMentor(m domain.MentorProfile) error {
	if textx.SanitizeText(m.Name) == "" {
		return fmt.Errorf("op=profile.validate_mentor: name: %w", domain.ErrInvalidArgument)
	}
	// A mentor who can take nobody is not a mentor; deactivate instead.
	if m.Capacity < 1 {
		return fmt.Errorf("op=profile.validate_mentor: capacity: %w", domain.ErrInvalidArgument)
	}
	return nil
}

func validateMentee(m domain.MenteeProfile) error {
	if textx.SanitizeText(m.Name) == "" {
		return fmt.Errorf("op=profile.validate_mentee: name: %w", domain.ErrInvalidArgument)
	}
	return nil
}
