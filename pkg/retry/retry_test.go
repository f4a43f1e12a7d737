package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("connection refused")

func fast(opts ...Option) *Retrier {
	return New(append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond), WithJitter(0)}, opts...)...)
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := fast(WithMaxAttempts(5)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errFlaky)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPlainError(t *testing.T) {
	calls := 0
	err := fast().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIfAcceptsPlainErrors(t *testing.T) {
	calls := 0
	err := fast(WithMaxAttempts(2), WithRetryIf(func(error) bool { return true })).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 2, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	var retried []int
	r := fast(WithMaxAttempts(3), WithOnRetry(func(attempt int, err error, d time.Duration) {
		retried = append(retried, attempt)
	}))
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(errFlaky)
	})

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Do(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDatabaseRetrier_LeavesPlainErrorsAlone(t *testing.T) {
	calls := 0
	err := DatabaseRetrier().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 1, calls)
}

func TestCalculateDelay_Capped(t *testing.T) {
	r := New(WithInitialDelay(time.Second), WithMaxDelay(3*time.Second), WithJitter(0))
	assert.Equal(t, time.Second, r.calculateDelay(1))
	assert.Equal(t, 2*time.Second, r.calculateDelay(2))
	assert.Equal(t, 3*time.Second, r.calculateDelay(5))
}
