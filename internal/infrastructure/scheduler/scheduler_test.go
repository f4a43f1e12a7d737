package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

// immediately makes a job due on every tick.
type immediately struct{}

func (immediately) Next(t time.Time) time.Time { return t }
func (immediately) String() string             { return "@tick" }

type recorder struct {
	ok, failed atomic.Int32
}

func (r *recorder) JobRun(_ string, success bool, _ time.Duration) {
	if success {
		r.ok.Add(1)
	} else {
		r.failed.Add(1)
	}
}

func TestEvery(t *testing.T) {
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, start.Add(5*time.Minute), Every(5*time.Minute).Next(start))
	assert.Equal(t, time.Second, Every(10*time.Millisecond).Interval)
	assert.Equal(t, "@every 5m0s", Every(5*time.Minute).String())
}

func TestRegister_Duplicate(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Register(&countingJob{name: "a"}, Every(time.Minute)))
	require.NoError(t, s.Register(&countingJob{name: "b"}, Every(time.Minute)))

	err := s.Register(&countingJob{name: "a"}, Every(time.Minute))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
	assert.Equal(t, []string{"a", "b"}, s.Jobs())
}

func TestRunNow(t *testing.T) {
	rec := &recorder{}
	s := New(Options{Metrics: rec})
	job := &countingJob{name: "warm", err: errors.New("boom")}
	require.NoError(t, s.Register(job, Every(time.Hour)))

	result, err := s.RunNow(context.Background(), "warm")
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.EqualError(t, result.Err, "boom")

	last, ok := s.LastResult("warm")
	require.True(t, ok)
	assert.Equal(t, "warm", last.JobName)
	assert.Equal(t, int32(1), rec.failed.Load())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStartRunsDueJobs(t *testing.T) {
	rec := &recorder{}
	s := New(Options{Tick: 5 * time.Millisecond, Metrics: rec})
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, immediately{}))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
	assert.GreaterOrEqual(t, rec.ok.Load(), int32(2))
}

func TestJobNeverOverlaps(t *testing.T) {
	s := New(Options{Tick: 2 * time.Millisecond})
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, immediately{}))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 2*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), job.runs.Load())

	_, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrJobBusy)

	// Stop cancels the blocked run.
	require.NoError(t, s.Stop())
	last, ok := s.LastResult("slow")
	require.True(t, ok)
	assert.ErrorIs(t, last.Err, context.Canceled)
}
