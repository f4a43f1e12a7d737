package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/circuitbreaker"
)

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 10, opts.PoolSize)

	cfg.URL = "redis://:secret@cache.internal:6380/2"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	cfg.URL = "http://not-redis"
	_, err = cfg.Options()
	assert.Error(t, err)
}

func TestStandingsKey(t *testing.T) {
	assert.Equal(t, "gradebook:standings:class", StandingsKey())
}

// Runs against a live server when REDIS_TEST_URL is set.
func TestStandingsCache_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.URL = url
	cache, err := NewCache(ctx, cfg)
	require.NoError(t, err)
	defer cache.Close()

	sc := NewStandingsCache(cache)
	require.NoError(t, sc.Invalidate(ctx))

	_, ok, err := sc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []leaderboard.Standing{{
		StudentID: "s1",
		Name:      "Ana",
		Metrics:   leaderboard.Metrics{AverageGrade: 8, AttendancePoints: 1.5, TotalScore: 9.5},
		Position:  1,
	}}
	require.NoError(t, sc.Set(ctx, want, time.Minute))

	got, ok, err := sc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, sc.Invalidate(ctx))
	_, ok, err = sc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// Nothing listens on port 1, so every call fails fast.
func unreachableCache(t *testing.T) *Cache {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.MaxRetries = -1
	cfg.DialTimeout = 200 * time.Millisecond
	opts, err := cfg.Options()
	require.NoError(t, err)
	cache := NewCacheFromClient(goredis.NewClient(opts))
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestStandingsCache_UnreachableServer(t *testing.T) {
	ctx := context.Background()
	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	sc := NewStandingsCache(unreachableCache(t)).WithBreaker(breaker)

	require.Error(t, sc.Invalidate(ctx))
	assert.True(t, sc.stale.Load())

	// A pending invalidation blocks writes so stale standings never land.
	assert.ErrorIs(t, sc.Set(ctx, nil, time.Minute), errStale)

	_, ok, err := sc.Get(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, _, err = sc.Get(ctx)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}
