// Package redis persists re-ranking weights in Redis so the server and the
// adjustment worker share one source of truth across processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// DefaultKey is the Redis key holding the weight configuration.
const DefaultKey = "mentor-match:weights"

// Store implements domain.WeightsStore over a Redis key holding JSON.
type Store struct {
	client *redis.Client
	key    string
}

// New constructs a Store at the default key.
func New(addr string) *Store {
	return NewWithKey(addr, DefaultKey)
}

// NewWithKey constructs a Store at a custom key, used by tests.
func NewWithKey(addr, key string) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

// Load returns the persisted weights, or the defaults when the key is absent.
// Corrupt payloads also fall back to the defaults rather than poisoning the
// serving path.
func (s *Store) Load(ctx context.Context) (domain.Weights, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DefaultWeights(), nil
	}
	if err != nil {
		return domain.Weights{}, fmt.Errorf("op=weights.load: %w", err)
	}
	var w domain.Weights
	if err := json.Unmarshal(raw, &w); err != nil || w.Sum() <= 0 {
		return domain.DefaultWeights(), nil
	}
	return w.Normalized(), nil
}

// Save persists the weights after normalizing them.
func (s *Store) Save(ctx context.Context, w domain.Weights) error {
	b, err := json.Marshal(w.Normalized())
	if err != nil {
		return fmt.Errorf("op=weights.save: %w", err)
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("op=weights.save: %w", err)
	}
	return nil
}

// Ping verifies connectivity, used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.client.Close() }
