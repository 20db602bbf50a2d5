package tokencount_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/mentor-match/internal/adapter/ai/tokencount"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	n, err := c.CountTokens("backend engineering mentorship", "text-embedding-3-small")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestTruncate_WithinLimitUnchanged(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	got, err := c.Truncate("short bio", "text-embedding-3-small", 100)
	require.NoError(t, err)
	assert.Equal(t, "short bio", got)
}

func TestTruncate_ClipsLongText(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	long := strings.Repeat("distributed systems and mentoring ", 200)
	got, err := c.Truncate(long, "text-embedding-3-small", 20)
	require.NoError(t, err)
	assert.Less(t, len(got), len(long))

	n, err := c.CountTokens(got, "text-embedding-3-small")
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 20)
}
