package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
)

var _ leaderboard.Cache = (*StandingsCache)(nil)

// StandingsCache is the in-process leaderboard.Cache used when Redis is disabled.
type StandingsCache struct {
	mu        sync.Mutex
	now       func() time.Time
	standings []leaderboard.Standing
	expires   time.Time
	filled    bool
}

// NewStandingsCache creates an empty cache.
func NewStandingsCache() *StandingsCache {
	return &StandingsCache{now: time.Now}
}

func (c *StandingsCache) Get(_ context.Context) ([]leaderboard.Standing, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.filled || (!c.expires.IsZero() && !c.now().Before(c.expires)) {
		return nil, false, nil
	}
	out := make([]leaderboard.Standing, len(c.standings))
	copy(out, c.standings)
	return out, true, nil
}

// Set stores a copy. A zero ttl never expires.
func (c *StandingsCache) Set(_ context.Context, standings []leaderboard.Standing, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.standings = make([]leaderboard.Standing, len(standings))
	copy(c.standings, standings)
	c.filled = true
	c.expires = time.Time{}
	if ttl > 0 {
		c.expires = c.now().Add(ttl)
	}
	return nil
}

func (c *StandingsCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.standings = nil
	c.filled = false
	return nil
}
