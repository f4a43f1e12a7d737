package leaderboard

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Cache keeps the last computed standings. Any mutation of grades, attendance
// or the roster must call Invalidate.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context) (standings []Standing, ok bool, err error)

	Set(ctx context.Context, standings []Standing, ttl time.Duration) error

	Invalidate(ctx context.Context) error
}
