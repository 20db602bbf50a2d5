package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/matching"
)

// NoMatchMessage is returned when filtering leaves no viable candidate even
// after widening retrieval.
const NoMatchMessage = "no suitable mentors available right now; try again later or relax your preferences"

// MatchResult is the outcome of one matching call.
type MatchResult struct {
	Candidates []matching.ScoredCandidate
	Message    string
	Widened    bool
}

// MatchService runs the retrieve-filter-rerank pipeline for a mentee.
type MatchService struct {
	Mentees  domain.MenteeRepository
	Mentors  domain.MentorRepository
	Embedder domain.Embedder
	Index    domain.VectorIndex
	Weights  *matching.WeightHolder
	// PoolMultiplier scales topK into the retrieval pool size; filtering
	// needs headroom because capacity and activity checks shrink the pool.
	PoolMultiplier int
}

// NewMatchService constructs a MatchService with its dependencies.
func NewMatchService(mentees domain.MenteeRepository, mentors domain.MentorRepository, e domain.Embedder, idx domain.VectorIndex, w *matching.WeightHolder, poolMultiplier int) MatchService {
	if poolMultiplier < 1 {
		poolMultiplier = 1
	}
	return MatchService{Mentees: mentees, Mentors: mentors, Embedder: e, Index: idx, Weights: w, PoolMultiplier: poolMultiplier}
}

// Match embeds the mentee, retrieves a candidate pool, filters it, widens
// retrieval once if filtering emptied the pool, and reranks the survivors.
func (s MatchService) Match(ctx context.Context, menteeID string, topK int) (MatchResult, error) {
	if topK <= 0 {
		return MatchResult{}, fmt.Errorf("op=match: top_k: %w", domain.ErrInvalidArgument)
	}
	mentee, err := s.Mentees.Get(ctx, menteeID)
	if err != nil {
		observability.ObserveMatch("mentee_not_found", 0)
		return MatchResult{}, err
	}

	text := MenteeEmbeddingText(mentee)
	if text == "" {
		observability.ObserveMatch("empty_profile", 0)
		return MatchResult{}, fmt.Errorf("op=match: mentee profile text: %w", domain.ErrEmptyText)
	}
	vecs, err := s.Embedder.Embed(ctx, []string{text})
	if err != nil {
		observability.ObserveMatch("embed_failed", 0)
		return MatchResult{}, fmt.Errorf("op=match: %w", err)
	}
	query := vecs[0]

	poolSize := topK * s.PoolMultiplier
	cands, err := s.retrieveAndFilter(ctx, mentee, query, poolSize)
	if err != nil {
		observability.ObserveMatch("retrieval_failed", 0)
		return MatchResult{}, err
	}

	widened := false
	if len(cands) == 0 {
		// One widening pass: pull everything the index has before giving up.
		total, err := s.Index.Size(ctx)
		if err != nil {
			observability.ObserveMatch("retrieval_failed", 0)
			return MatchResult{}, fmt.Errorf("op=match: %w", err)
		}
		if total > poolSize {
			widened = true
			observability.MatchWidenedTotal.Inc()
			cands, err = s.retrieveAndFilter(ctx, mentee, query, total)
			if err != nil {
				observability.ObserveMatch("retrieval_failed", 0)
				return MatchResult{}, err
			}
		}
	}

	if len(cands) == 0 {
		observability.ObserveMatch("no_candidates", 0)
		slog.Info("matching produced no candidates", slog.String("mentee_id", menteeID), slog.Bool("widened", widened))
		return MatchResult{Message: NoMatchMessage, Widened: widened}, nil
	}

	scored := matching.Rerank(cands, s.Weights.Load(), topK)
	observability.ObserveMatch("ok", len(scored))
	slog.Debug("matching completed",
		slog.String("mentee_id", menteeID),
		slog.Int("pool", len(cands)),
		slog.Int("returned", len(scored)),
		slog.Bool("widened", widened))
	return MatchResult{Candidates: scored, Widened: widened}, nil
}

func (s MatchService) retrieveAndFilter(ctx context.Context, mentee domain.MenteeProfile, query []float32, k int) ([]matching.FilteredCandidate, error) {
	hits, err := s.Index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("op=match: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.MentorID
	}
	mentors, err := s.Mentors.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("op=match: %w", err)
	}
	byID := make(map[string]domain.MentorProfile, len(mentors))
	for _, m := range mentors {
		byID[m.ID] = m
	}
	return matching.Filter(mentee, hits, byID), nil
}
