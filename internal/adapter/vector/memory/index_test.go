package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/mentor-match/internal/adapter/vector/memory"
	"github.com/fairyhunter13/mentor-match/internal/domain"
)

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := memory.New()
	require.NoError(t, idx.Upsert(ctx, "far", []float32{0, 1}))
	require.NoError(t, idx.Upsert(ctx, "near", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "mid", []float32{0.7071, 0.7071}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "near", hits[0].MentorID)
	assert.Equal(t, "mid", hits[1].MentorID)
	assert.Equal(t, "far", hits[2].MentorID)
}

func TestIndex_TieBreaksOnID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := memory.New()
	require.NoError(t, idx.Upsert(ctx, "b", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].MentorID)
	assert.Equal(t, "b", hits[1].MentorID)
}

func TestIndex_EmptyAndOversizedK(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := memory.New()

	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Upsert(ctx, "only", []float32{1, 0}))
	hits, err = idx.Search(ctx, []float32{1, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_UpsertReplacesVector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := memory.New()
	require.NoError(t, idx.Upsert(ctx, "m", []float32{0, 1}))
	require.NoError(t, idx.Upsert(ctx, "m", []float32{1, 0}))

	n, err := idx.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestIndex_RemoveIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := memory.New()
	require.NoError(t, idx.Upsert(ctx, "m", []float32{1, 0}))
	require.NoError(t, idx.Remove(ctx, "m"))
	require.NoError(t, idx.Remove(ctx, "m"))

	n, err := idx.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIndex_UpsertRejectsEmpty(t *testing.T) {
	t.Parallel()
	idx := memory.New()
	assert.ErrorIs(t, idx.Upsert(context.Background(), "", []float32{1}), domain.ErrInvalidArgument)
	assert.ErrorIs(t, idx.Upsert(context.Background(), "m", nil), domain.ErrInvalidArgument)
}

func TestIndex_ConcurrentReadWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := memory.New()
	require.NoError(t, idx.Upsert(ctx, "seed", []float32{1, 0}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = idx.Upsert(ctx, "w", []float32{0, 1})
				_ = idx.Remove(ctx, "w")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hits, err := idx.Search(ctx, []float32{1, 0}, 10)
				assert.NoError(t, err)
				assert.NotEmpty(t, hits)
			}
		}()
	}
	wg.Wait()
}
