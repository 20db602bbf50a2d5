package app

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// Pinger is the minimal interface for a dependency capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns three readiness checks: db, the weights store
// and the vector index. A nil dependency reports as not configured; callers
// wire only the checks their deployment actually uses.
func BuildReadinessChecks(pool Pinger, weights Pinger, idx domain.VectorIndex) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	redisCheck := func(ctx context.Context) error {
		if weights == nil {
			return fmt.Errorf("weights store not configured")
		}
		return weights.Ping(ctx)
	}
	indexCheck := func(ctx context.Context) error {
		if idx == nil {
			return fmt.Errorf("index not configured")
		}
		_, err := idx.Size(ctx)
		return err
	}
	return dbCheck, redisCheck, indexCheck
}
