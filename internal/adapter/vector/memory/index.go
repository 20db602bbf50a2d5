// Package memory implements an in-process vector index over normalized
// embeddings. Searches scan an immutable snapshot, so the read path never
// takes a lock; writers copy, modify and atomically swap the snapshot.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/domain"
)

type snapshot struct {
	ids  []string
	vecs [][]float32
}

// Index is a flat exact-search index keyed by mentor id.
type Index struct {
	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
}

// New returns an empty index.
func New() *Index {
	idx := &Index{}
	idx.snap.Store(&snapshot{})
	return idx
}

// Upsert inserts or replaces the vector for mentorID.
func (x *Index) Upsert(_ context.Context, mentorID string, vec []float32) error {
	if mentorID == "" || len(vec) == 0 {
		return fmt.Errorf("op=index.Upsert: %w", domain.ErrInvalidArgument)
	}
	v := make([]float32, len(vec))
	copy(v, vec)

	x.mu.Lock()
	defer x.mu.Unlock()
	cur := x.snap.Load()
	next := &snapshot{ids: make([]string, 0, len(cur.ids)+1), vecs: make([][]float32, 0, len(cur.ids)+1)}
	replaced := false
	for i, id := range cur.ids {
		if id == mentorID {
			next.ids = append(next.ids, id)
			next.vecs = append(next.vecs, v)
			replaced = true
			continue
		}
		next.ids = append(next.ids, id)
		next.vecs = append(next.vecs, cur.vecs[i])
	}
	if !replaced {
		next.ids = append(next.ids, mentorID)
		next.vecs = append(next.vecs, v)
	}
	x.snap.Store(next)
	observability.VectorIndexSize.Set(float64(len(next.ids)))
	return nil
}

// Remove deletes the vector for mentorID. Removing an absent id is a no-op.
func (x *Index) Remove(_ context.Context, mentorID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	cur := x.snap.Load()
	next := &snapshot{ids: make([]string, 0, len(cur.ids)), vecs: make([][]float32, 0, len(cur.ids))}
	for i, id := range cur.ids {
		if id == mentorID {
			continue
		}
		next.ids = append(next.ids, id)
		next.vecs = append(next.vecs, cur.vecs[i])
	}
	x.snap.Store(next)
	observability.VectorIndexSize.Set(float64(len(next.ids)))
	return nil
}

// Search returns the k nearest entries by dot product (cosine similarity for
// normalized vectors), ordered by similarity descending with ties broken by
// ascending id. An empty index yields an empty result; k larger than the
// index returns everything.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	snap := x.snap.Load()
	if len(snap.ids) == 0 {
		return nil, nil
	}
	hits := make([]domain.SearchHit, 0, len(snap.ids))
	for i, id := range snap.ids {
		hits = append(hits, domain.SearchHit{MentorID: id, Similarity: dot(query, snap.vecs[i])})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].MentorID < hits[j].MentorID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Size returns the number of indexed vectors.
func (x *Index) Size(_ context.Context) (int, error) {
	return len(x.snap.Load().ids), nil
}

func dot(a, b []float32) float64 {
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
