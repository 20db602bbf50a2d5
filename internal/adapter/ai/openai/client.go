// Package openai implements the embedding provider against an OpenAI
// compatible /embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"log/slog"

	"github.com/fairyhunter13/mentor-match/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/config"
	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// Client implements domain.Embedder against the OpenAI embeddings API.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs a client with a sensible request timeout.
func New(cfg config.Config) *Client {
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 30 * time.Second},
		counter: tokencount.NewCounter(),
	}
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// Embed calls the embeddings endpoint and returns one L2-normalized vector per
// input text. 429 and 5xx responses retry with exponential backoff; other 4xx
// responses fail immediately. Inputs are token-truncated before the call so an
// oversized bio cannot fail the whole batch.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.cfg.OpenAIAPIKey == "" || c.cfg.EmbeddingsModel == "" {
		// Do not log secrets; only indicate presence
		slog.Error("OpenAI API key or model missing", slog.String("provider", "openai"), slog.Bool("has_api_key", c.cfg.OpenAIAPIKey != ""), slog.String("model", c.cfg.EmbeddingsModel))
		return nil, fmt.Errorf("%w: OPENAI_API_KEY or EMBEDDINGS_MODEL missing", domain.ErrInvalidArgument)
	}
	input := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("op=openai.Embed: text %d: %w", i, domain.ErrEmptyText)
		}
		input[i] = c.truncate(t)
	}

	body := map[string]any{
		"model": c.cfg.EmbeddingsModel,
		"input": input,
	}
	b, _ := json.Marshal(body)
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/embeddings", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.EmbedRequestDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.EmbedRequestsTotal.WithLabelValues("openai", "error").Inc()
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode == http.StatusTooManyRequests {
			observability.EmbedRequestsTotal.WithLabelValues("openai", "rate_limited").Inc()
			slog.Warn("embedding provider rate limited", slog.String("provider", "openai"), slog.Int("status", resp.StatusCode), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client error: non-retryable
			observability.EmbedRequestsTotal.WithLabelValues("openai", "client_error").Inc()
			snippet := readSnippet(resp.Body, 512)
			slog.Warn("embedding provider 4xx", slog.String("provider", "openai"), slog.Int("status", resp.StatusCode), slog.String("model", c.cfg.EmbeddingsModel), slog.String("body", snippet))
			return backoff.Permanent(fmt.Errorf("embed status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// 5xx and others: retryable
			observability.EmbedRequestsTotal.WithLabelValues("openai", "server_error").Inc()
			snippet := readSnippet(resp.Body, 512)
			slog.Error("embedding provider non-2xx", slog.String("provider", "openai"), slog.Int("status", resp.StatusCode), slog.String("model", c.cfg.EmbeddingsModel), slog.String("body", snippet))
			return fmt.Errorf("embed status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			observability.EmbedRequestsTotal.WithLabelValues("openai", "decode_error").Inc()
			slog.Error("embedding provider decode error", slog.String("provider", "openai"), slog.Any("error", err))
			return err
		}
		observability.EmbedRequestsTotal.WithLabelValues("openai", "ok").Inc()
		return nil
	}
	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		slog.Error("embedding provider failed after retries", slog.String("provider", "openai"), slog.Any("error", err))
		return nil, fmt.Errorf("op=openai.Embed: %w: %v", domain.ErrEmbedding, err)
	}

	if len(out.Data) != len(input) {
		slog.Error("embedding provider returned wrong vector count", slog.Int("want", len(input)), slog.Int("got", len(out.Data)))
		return nil, fmt.Errorf("op=openai.Embed: %w: %v", domain.ErrEmbedding, errors.New("vector count mismatch"))
	}

	res := make([][]float32, len(out.Data))
	for i := range out.Data {
		res[i] = normalize(out.Data[i].Embedding)
	}
	return res, nil
}

// truncate clips text to the configured token budget using the model encoding.
func (c *Client) truncate(text string) string {
	limit := c.cfg.EmbedMaxTokens
	if limit <= 0 {
		return text
	}
	clipped, err := c.counter.Truncate(text, c.cfg.EmbeddingsModel, limit)
	if err != nil {
		slog.Warn("token truncation failed, using raw text", slog.Any("error", err))
		return text
	}
	return clipped
}

// normalize converts to float32 and rescales to unit length. Providers return
// near-unit vectors already; exact normalization keeps dot products equal to
// cosine similarity.
func normalize(in []float64) []float32 {
	var sum float64
	for _, x := range in {
		sum += x * x
	}
	out := make([]float32, len(in))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range in {
		out[i] = float32(x / norm)
	}
	return out
}

// readSnippet reads up to n bytes from r for log context.
func readSnippet(r io.Reader, n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return string(b)
}
