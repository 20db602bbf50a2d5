package openai_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/mentor-match/internal/adapter/ai/openai"
	"github.com/fairyhunter13/mentor-match/internal/config"
	"github.com/fairyhunter13/mentor-match/internal/domain"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:          "test",
		OpenAIAPIKey:    "test-key",
		OpenAIBaseURL:   baseURL,
		EmbeddingsModel: "text-embedding-3-small",
	}
}

type embedPayload struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func embedResponse(vecs ...[]float64) embedPayload {
	var out embedPayload
	for _, v := range vecs {
		out.Data = append(out.Data, struct {
			Embedding []float64 `json:"embedding"`
		}{Embedding: v})
	}
	return out
}

func TestEmbed_SuccessNormalizesVectors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body["model"])
		_ = json.NewEncoder(w).Encode(embedResponse([]float64{3, 4}, []float64{0, 2}))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	vecs, err := c.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 0.6, float64(vecs[0][0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vecs[0][1]), 1e-6)

	var norm float64
	for _, x := range vecs[1] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestEmbed_ClientErrorDoesNotRetry(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"bad input"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	_, err := c.Embed(context.Background(), []string{"alpha"})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEmbed_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse([]float64{1, 0}))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	vecs, err := c.Embed(context.Background(), []string{"alpha"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestEmbed_VectorCountMismatch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse([]float64{1, 0}))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	_, err := c.Embed(context.Background(), []string{"alpha", "beta"})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestEmbed_InputValidation(t *testing.T) {
	t.Parallel()
	c := openai.New(testConfig("http://unused"))
	_, err := c.Embed(context.Background(), []string{"   "})
	assert.ErrorIs(t, err, domain.ErrEmptyText)

	missing := openai.New(config.Config{AppEnv: "test"})
	_, err = missing.Embed(context.Background(), []string{"alpha"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
