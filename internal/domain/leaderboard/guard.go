package leaderboard

import (
	"context"
	"sync/atomic"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// GUARDED CACHE
// ══════════════════════════════════════════════════════════════════════════════

// GuardedCache wraps a Cache and counts invalidations, so standings computed
// before a write are never left in the cache after it. Writers and readers
// must share the same GuardedCache.
type GuardedCache struct {
	inner Cache
	gen   atomic.Uint64
}

var _ Cache = (*GuardedCache)(nil)

// Guard wraps c. A GuardedCache is returned unchanged.
func Guard(c Cache) *GuardedCache {
	if g, ok := c.(*GuardedCache); ok {
		return g
	}
	return &GuardedCache{inner: c}
}

func (c *GuardedCache) Get(ctx context.Context) ([]Standing, bool, error) {
	return c.inner.Get(ctx)
}

// Set stores standings unconditionally. Use Fill for computed results.
func (c *GuardedCache) Set(ctx context.Context, standings []Standing, ttl time.Duration) error {
	return c.inner.Set(ctx, standings, ttl)
}

// Invalidate bumps the generation before dropping the entry.
func (c *GuardedCache) Invalidate(ctx context.Context) error {
	c.gen.Add(1)
	return c.inner.Invalidate(ctx)
}

// Generation is taken before reading the records a result is computed from.
func (c *GuardedCache) Generation() uint64 {
	return c.gen.Load()
}

// Fill stores standings computed at generation gen and reports whether they
// were kept. Nothing is stored when an invalidation happened since gen, and
// an invalidation that lands during the write drops the entry again.
func (c *GuardedCache) Fill(ctx context.Context, gen uint64, standings []Standing, ttl time.Duration) (bool, error) {
	if c.gen.Load() != gen {
		return false, nil
	}
	if err := c.inner.Set(ctx, standings, ttl); err != nil {
		return false, err
	}
	if c.gen.Load() != gen {
		return false, c.inner.Invalidate(ctx)
	}
	return true, nil
}
