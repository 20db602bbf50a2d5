// Package qdrant implements the mentor vector index against a Qdrant server
// over its HTTP API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// Index stores mentor vectors in a single Qdrant collection. Point ids are
// deterministic UUIDs derived from mentor ids; the mentor id itself travels in
// the payload.
type Index struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
}

// New constructs an index over collection at baseURL with optional apiKey.
func New(baseURL, apiKey, collection string) *Index {
	return &Index{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureCollection creates the collection if it does not exist. Cosine
// distance over unit vectors matches the in-process index exactly.
func (x *Index) EnsureCollection(ctx context.Context, vectorSize int) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", x.baseURL, x.collection), nil)
	x.setHeaders(req)
	resp, err := x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("op=qdrant.EnsureCollection: %w: %v", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	payload := map[string]any{
		"vectors": map[string]any{"size": vectorSize, "distance": "Cosine"},
	}
	b, _ := json.Marshal(payload)
	req, _ = http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", x.baseURL, x.collection), bytes.NewReader(b))
	x.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err = x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("op=qdrant.EnsureCollection: %w: %v", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("op=qdrant.EnsureCollection: %w: status %d", domain.ErrIndexUnavailable, resp.StatusCode)
	}
	return nil
}

// Upsert inserts or replaces the vector for mentorID.
func (x *Index) Upsert(ctx context.Context, mentorID string, vec []float32) error {
	if mentorID == "" || len(vec) == 0 {
		return fmt.Errorf("op=qdrant.Upsert: %w", domain.ErrInvalidArgument)
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":      pointID(mentorID),
			"vector":  vec,
			"payload": map[string]any{"mentor_id": mentorID},
		}},
	}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", x.baseURL, x.collection), bytes.NewReader(b))
	x.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("op=qdrant.Upsert: %w: %v", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("op=qdrant.Upsert: %w: status %d", domain.ErrIndexUnavailable, resp.StatusCode)
	}
	x.publishSize(ctx)
	return nil
}

// Remove deletes the point for mentorID. Deleting an absent point succeeds.
func (x *Index) Remove(ctx context.Context, mentorID string) error {
	body := map[string]any{"points": []any{pointID(mentorID)}}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", x.baseURL, x.collection), bytes.NewReader(b))
	x.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("op=qdrant.Remove: %w: %v", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("op=qdrant.Remove: %w: status %d", domain.ErrIndexUnavailable, resp.StatusCode)
	}
	x.publishSize(ctx)
	return nil
}

// Search returns the k nearest mentors. Qdrant orders by score already; the
// id tie-break is applied client-side so results stay deterministic.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	body := map[string]any{"vector": query, "limit": k, "with_payload": true}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", x.baseURL, x.collection), bytes.NewReader(b))
	x.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=qdrant.Search: %w: %v", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("op=qdrant.Search: %w: status %d", domain.ErrIndexUnavailable, resp.StatusCode)
	}
	var out struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("op=qdrant.Search: %w: %v", domain.ErrIndexUnavailable, err)
	}
	hits := make([]domain.SearchHit, 0, len(out.Result))
	for _, r := range out.Result {
		id, _ := r.Payload["mentor_id"].(string)
		if id == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{MentorID: id, Similarity: r.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].MentorID < hits[j].MentorID
	})
	return hits, nil
}

// Size returns the number of points in the collection.
func (x *Index) Size(ctx context.Context) (int, error) {
	body := map[string]any{"exact": true}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/count", x.baseURL, x.collection), bytes.NewReader(b))
	x.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := x.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("op=qdrant.Size: %w: %v", domain.ErrIndexUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("op=qdrant.Size: %w: status %d", domain.ErrIndexUnavailable, resp.StatusCode)
	}
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("op=qdrant.Size: %w: %v", domain.ErrIndexUnavailable, err)
	}
	return out.Result.Count, nil
}

func (x *Index) publishSize(ctx context.Context) {
	if n, err := x.Size(ctx); err == nil {
		observability.VectorIndexSize.Set(float64(n))
	}
}

// pointID maps a mentor id onto a stable UUID accepted by Qdrant.
func pointID(mentorID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(mentorID)).String()
}

func (x *Index) setHeaders(req *http.Request) {
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}
}
