package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/matching"
)

// WeightAdjuster accumulates feedback events and periodically folds them into
// the shared weight configuration. It runs in the worker process, entirely off
// the serving path; the server only ever reads the store.
type WeightAdjuster struct {
	Mentors  domain.MentorRepository
	Mentees  domain.MenteeRepository
	Embedder domain.Embedder
	Store    domain.WeightsStore
	// BatchSize caps how many events one cycle consumes.
	BatchSize int

	mu      sync.Mutex
	pending []matching.FeedbackSignal
}

// NewWeightAdjuster constructs a WeightAdjuster with its dependencies.
func NewWeightAdjuster(mentors domain.MentorRepository, mentees domain.MenteeRepository, e domain.Embedder, store domain.WeightsStore, batchSize int) *WeightAdjuster {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &WeightAdjuster{Mentors: mentors, Mentees: mentees, Embedder: e, Store: store, BatchSize: batchSize}
}

// Ingest classifies one feedback event by the signal that dominated the pair's
// match and queues it for the next adjustment cycle. Signals are recomputed
// from the current profiles; the live profile is the closest record of what
// the mentee was shown.
func (a *WeightAdjuster) Ingest(ctx context.Context, evt domain.FeedbackEvent) error {
	if evt.Rating < 1 || evt.Rating > 5 {
		return fmt.Errorf("op=adjust.ingest: rating %d: %w", evt.Rating, domain.ErrInvalidArgument)
	}
	mentor, err := a.Mentors.Get(ctx, evt.MentorID)
	if err != nil {
		return fmt.Errorf("op=adjust.ingest: %w", err)
	}
	mentee, err := a.Mentees.Get(ctx, evt.MenteeID)
	if err != nil {
		return fmt.Errorf("op=adjust.ingest: %w", err)
	}

	sim := 0.0
	if len(mentor.Embedding) > 0 {
		text := MenteeEmbeddingText(mentee)
		if text != "" {
			vecs, err := a.Embedder.Embed(ctx, []string{text})
			if err != nil {
				return fmt.Errorf("op=adjust.ingest: %w", err)
			}
			sim = dot32(vecs[0], mentor.Embedding)
		}
	}
	overlap, known := matching.OverlapMinutes(mentee.Availability, mentor.Availability)
	prefs := matching.PreferenceMatches(mentee.Preferences, mentor.Preferences)

	sig := matching.FeedbackSignal{
		Rating:   evt.Rating,
		Dominant: matching.DominantSignal(sim, overlap, known, prefs),
	}
	a.mu.Lock()
	a.pending = append(a.pending, sig)
	a.mu.Unlock()
	observability.FeedbackEventsTotal.WithLabelValues("applied").Inc()
	return nil
}

// Flush applies the pending batch to the stored weights. An empty batch is a
// no-op. After any flush the stored weights sum to 1.
func (a *WeightAdjuster) Flush(ctx context.Context) (domain.Weights, error) {
	a.mu.Lock()
	batch := a.pending
	if len(batch) > a.BatchSize {
		batch = batch[:a.BatchSize]
		a.pending = a.pending[a.BatchSize:]
	} else {
		a.pending = nil
	}
	a.mu.Unlock()

	cur, err := a.Store.Load(ctx)
	if err != nil {
		return domain.Weights{}, fmt.Errorf("op=adjust.flush: %w", err)
	}
	if len(batch) == 0 {
		return cur, nil
	}

	next := matching.AdjustWeights(cur, batch)
	if err := a.Store.Save(ctx, next); err != nil {
		return domain.Weights{}, fmt.Errorf("op=adjust.flush: %w", err)
	}
	observability.WeightAdjustmentsTotal.Inc()
	slog.Info("weights adjusted",
		slog.Int("batch", len(batch)),
		slog.Float64("similarity", next.Similarity),
		slog.Float64("overlap", next.Overlap),
		slog.Float64("preference", next.Preference))
	return next, nil
}

// PendingCount reports how many signals await the next cycle.
func (a *WeightAdjuster) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func dot32(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
