package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/circuitbreaker"
)

var _ leaderboard.Cache = (*StandingsCache)(nil)

// StandingsCache implements leaderboard.Cache on top of Cache.
// The whole ranked list is stored as one JSON value.
type StandingsCache struct {
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker

	// stale is set when an invalidation could not reach Redis. The entry is
	// deleted before anything is read again.
	stale atomic.Bool
}

// NewStandingsCache creates a new StandingsCache.
func NewStandingsCache(cache *Cache) *StandingsCache {
	return &StandingsCache{cache: cache}
}

// WithBreaker routes every Redis call through cb.
func (s *StandingsCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *StandingsCache {
	s.breaker = cb
	return s
}

func (s *StandingsCache) run(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Execute(ctx, fn)
}

// Get returns ok=false on a miss or an undecodable entry.
func (s *StandingsCache) Get(ctx context.Context) ([]leaderboard.Standing, bool, error) {
	if s.stale.Load() {
		if err := s.Invalidate(ctx); err != nil {
			return nil, false, err
		}
	}

	var (
		standings []leaderboard.Standing
		hit       bool
	)
	err := s.run(ctx, func(ctx context.Context) error {
		err := s.cache.Get(ctx, StandingsKey(), &standings)
		switch {
		case err == nil:
			hit = true
			return nil
		case errors.Is(err, ErrCacheMiss), errors.Is(err, ErrCacheSerialization):
			return nil
		default:
			return err
		}
	})
	if err != nil || !hit {
		return nil, false, err
	}
	return standings, true, nil
}

// Set stores standings. An empty class is cached as an empty list.
func (s *StandingsCache) Set(ctx context.Context, standings []leaderboard.Standing, ttl time.Duration) error {
	if s.stale.Load() {
		return errStale
	}
	if standings == nil {
		standings = []leaderboard.Standing{}
	}
	return s.run(ctx, func(ctx context.Context) error {
		return s.cache.Set(ctx, StandingsKey(), standings, ttl)
	})
}

// Invalidate drops the cached standings.
func (s *StandingsCache) Invalidate(ctx context.Context) error {
	err := s.run(ctx, func(ctx context.Context) error {
		return s.cache.Delete(ctx, StandingsKey())
	})
	if err != nil {
		s.stale.Store(true)
		return err
	}
	s.stale.Store(false)
	return nil
}

var errStale = errors.New("standings cache has a pending invalidation")
