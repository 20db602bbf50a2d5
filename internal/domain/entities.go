// Package domain holds the core entities, ports and error taxonomy of the
// mentor-matching service. It stays free of adapter concerns; adapters and
// usecases depend on it, never the other way around.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrDuplicateRequest  = errors.New("duplicate pending request")
	ErrCapacityExceeded  = errors.New("mentor capacity exceeded")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptyText         = errors.New("empty text")
	ErrEmbedding         = errors.New("embedding failed")
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrInternal          = errors.New("internal error")
)

// Preferences are the structured match preferences of either party.
// An empty set on a dimension means "any".
type Preferences struct {
	Industries []string `json:"industries,omitempty"`
	Languages  []string `json:"languages,omitempty"`
}

// Availability describes declared availability: a monthly hour budget and
// optional weekly windows keyed by weekday ("Mon".."Sun") holding
// "HH:MM-HH:MM" ranges.
type Availability struct {
	HoursPerMonth int                 `json:"hours_per_month,omitempty"`
	Windows       map[string][]string `json:"windows,omitempty"`
}

// HasWindows reports whether any weekly window is declared.
func (a Availability) HasWindows() bool {
	for _, rs := range a.Windows {
		if len(rs) > 0 {
			return true
		}
	}
	return false
}

// MentorProfile is an indexed mentor record.
// Invariant: 0 <= CurrentMentees <= Capacity.
type MentorProfile struct {
	ID             string
	Name           string
	Bio            string
	Expertise      string
	Capacity       int
	CurrentMentees int
	Availability   Availability
	Preferences    Preferences
	Demographics   map[string]string
	// Embedding caches the vector derived from bio+expertise text; it is
	// recomputed whenever that text changes.
	Embedding []float32
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Eligible reports whether the mentor can take on a new mentee.
func (m MentorProfile) Eligible() bool {
	return m.Active && m.CurrentMentees < m.Capacity
}

// MenteeProfile is a mentee record. Mentee embeddings are computed per match
// call and not indexed.
type MenteeProfile struct {
	ID              string
	Name            string
	Bio             string
	Goals           string
	MentorshipStyle string
	Availability    Availability
	Preferences     Preferences
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Feedback is an append-only post-mentorship rating.
type Feedback struct {
	ID        string
	MenteeID  string
	MentorID  string
	Rating    int // 1..5
	Comment   string
	CreatedAt time.Time
}

// Weights configures the re-ranker. Invariant: the three weights sum to 1.
type Weights struct {
	Similarity float64 `json:"similarity"`
	Overlap    float64 `json:"overlap"`
	Preference float64 `json:"preference"`
}

// DefaultWeights returns the initial re-ranking weights.
func DefaultWeights() Weights {
	return Weights{Similarity: 0.6, Overlap: 0.2, Preference: 0.2}
}

// Sum returns the total of the three weights.
func (w Weights) Sum() float64 { return w.Similarity + w.Overlap + w.Preference }

// Normalized rescales the weights to sum to 1. Non-positive totals fall back
// to the defaults rather than dividing by zero.
func (w Weights) Normalized() Weights {
	s := w.Sum()
	if s <= 0 {
		return DefaultWeights()
	}
	return Weights{Similarity: w.Similarity / s, Overlap: w.Overlap / s, Preference: w.Preference / s}
}

// SearchHit is one nearest-neighbour result from the vector index.
type SearchHit struct {
	MentorID   string
	Similarity float64 // cosine similarity in [-1, 1] for normalized vectors
}

// Ports

// Embedder converts texts to L2-normalized fixed-dimension vectors.
// Deterministic for a given model version.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex holds normalized mentor embeddings keyed by mentor id.
// Search returns hits ordered by similarity descending, ties broken by
// ascending mentor id. An empty index yields an empty result, and k larger
// than the index returns every entry.
type VectorIndex interface {
	Upsert(ctx context.Context, mentorID string, vec []float32) error
	Remove(ctx context.Context, mentorID string) error
	Search(ctx context.Context, query []float32, k int) ([]SearchHit, error)
	Size(ctx context.Context) (int, error)
}

// MentorRepository persists mentor profiles. Capacity mutation happens only
// through the RequestRepository transitions, never here.
type MentorRepository interface {
	Create(ctx context.Context, m MentorProfile) (string, error)
	Update(ctx context.Context, m MentorProfile) error
	Get(ctx context.Context, id string) (MentorProfile, error)
	ListByIDs(ctx context.Context, ids []string) ([]MentorProfile, error)
	ListActive(ctx context.Context) ([]MentorProfile, error)
	Deactivate(ctx context.Context, id string) error
}

// MenteeRepository persists mentee profiles.
type MenteeRepository interface {
	Create(ctx context.Context, m MenteeProfile) (string, error)
	Update(ctx context.Context, m MenteeProfile) error
	Get(ctx context.Context, id string) (MenteeProfile, error)
}

// RequestRepository persists mentorship requests and executes lifecycle
// transitions atomically with their capacity side effects (see request.go).
type RequestRepository interface {
	Create(ctx context.Context, r MentorshipRequest) (string, error)
	Get(ctx context.Context, id string) (MentorshipRequest, error)
	ListByMentor(ctx context.Context, mentorID string) ([]MentorshipRequest, error)
	ListByMentee(ctx context.Context, menteeID string) ([]MentorshipRequest, error)
	// Accept re-checks PENDING and mentor capacity in one atomic step; a lost
	// capacity race returns ErrCapacityExceeded and leaves the request PENDING.
	// A pair with an ACCEPTED request between them cannot accept a second one;
	// that returns ErrConflict and also leaves the request PENDING.
	Accept(ctx context.Context, id string) (MentorshipRequest, error)
	// Reject is valid from PENDING or ACCEPTED; leaving ACCEPTED releases the
	// mentor slot.
	Reject(ctx context.Context, id, reason string) (MentorshipRequest, error)
	// Cancel is valid from PENDING only and never touches capacity.
	Cancel(ctx context.Context, id string) (MentorshipRequest, error)
	// Complete is valid from ACCEPTED only and releases the mentor slot.
	Complete(ctx context.Context, id string) (MentorshipRequest, error)
	// HasAcceptedRelationship reports whether the pair has a request that is
	// currently ACCEPTED or has been COMPLETED.
	HasAcceptedRelationship(ctx context.Context, menteeID, mentorID string) (bool, error)
	// CountAcceptedByMentee returns how many ACCEPTED requests the mentee
	// currently holds across all mentors.
	CountAcceptedByMentee(ctx context.Context, menteeID string) (int, error)
}

// FeedbackRepository persists feedback records append-only.
type FeedbackRepository interface {
	Create(ctx context.Context, f Feedback) (string, error)
	ListSince(ctx context.Context, since time.Time) ([]Feedback, error)
}

// FeedbackEvent is the message published for asynchronous weight adjustment.
type FeedbackEvent struct {
	FeedbackID string    `json:"feedback_id"`
	MenteeID   string    `json:"mentee_id"`
	MentorID   string    `json:"mentor_id"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedbackQueue publishes feedback events for the weight-adjustment worker.
type FeedbackQueue interface {
	PublishFeedback(ctx context.Context, evt FeedbackEvent) error
}

// WeightsStore loads and persists re-ranking weights shared across processes.
type WeightsStore interface {
	Load(ctx context.Context) (Weights, error)
	Save(ctx context.Context, w Weights) error
}
