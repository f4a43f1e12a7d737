package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refresherFunc func(ctx context.Context) (int, error)

func (f refresherFunc) Refresh(ctx context.Context) (int, error) { return f(ctx) }

func TestWarmStandingsJob_Run(t *testing.T) {
	var deadline time.Time
	job := NewWarmStandingsJob(refresherFunc(func(ctx context.Context) (int, error) {
		deadline, _ = ctx.Deadline()
		return 12, nil
	}), time.Second, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, WarmStandingsName, job.Name())
	assert.False(t, deadline.IsZero())
}

func TestWarmStandingsJob_Error(t *testing.T) {
	down := errors.New("database down")
	job := NewWarmStandingsJob(refresherFunc(func(context.Context) (int, error) {
		return 0, down
	}), 0, nil)

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "warm standings")
}
