// Package retry runs an operation again with exponential backoff and jitter.
// The gradebook uses it while PostgreSQL is still booting and for
// serialization failures inside transactions.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MARKERS
// ══════════════════════════════════════════════════════════════════════════════

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks err as worth another attempt.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

type config struct {
	// maxAttempts counts the first call too.
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64

	// jitter spreads each delay by up to ± that fraction.
	jitter float64

	// retryIf decides which errors are retried. Nil retries only errors
	// marked with Retryable.
	retryIf func(error) bool

	onRetry func(attempt int, err error, delay time.Duration)
}

// Option configures a Retrier. Out-of-range values are ignored.
type Option func(*config)

func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

func WithJitter(j float64) Option {
	return func(c *config) {
		if j >= 0 && j <= 1.0 {
			c.jitter = j
		}
	}
}

func WithRetryIf(fn func(error) bool) Option {
	return func(c *config) { c.retryIf = fn }
}

// WithOnRetry registers fn to run before each sleep.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *config) { c.onRetry = fn }
}

// Retrier runs operations under one backoff policy.
type Retrier struct {
	config config
}

// New creates a Retrier. Without options it makes three attempts, doubling
// from 100ms with 10% jitter.
func New(opts ...Option) *Retrier {
	c := config{
		maxAttempts:  3,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Retrier{config: c}
}

// Do calls operation until it succeeds, returns an error that should not be
// retried, runs out of attempts or ctx ends. The Retryable marker is removed
// from the returned error.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return unmark(lastErr)
			}
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.shouldRetry(err) || attempt == r.config.maxAttempts {
			return unmark(err)
		}

		delay := r.calculateDelay(attempt)
		if r.config.onRetry != nil {
			r.config.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unmark(lastErr)
		case <-timer.C:
		}
	}
	return unmark(lastErr)
}

func (r *Retrier) shouldRetry(err error) bool {
	if r.config.retryIf != nil {
		return r.config.retryIf(err)
	}
	return IsRetryable(err)
}

// calculateDelay returns initialDelay * multiplier^(attempt-1), capped at
// maxDelay, with jitter applied.
func (r *Retrier) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.initialDelay) * math.Pow(r.config.multiplier, float64(attempt-1))
	if delay > float64(r.config.maxDelay) {
		delay = float64(r.config.maxDelay)
	}
	if r.config.jitter > 0 {
		delay += delay * r.config.jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(delay, 0))
}

func unmark(err error) error {
	if e, ok := err.(*retryableError); ok {
		return e.err
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESETS
// ══════════════════════════════════════════════════════════════════════════════

// StartupRetrier retries every error for about 15 seconds, long enough for a
// database container started alongside the API.
func StartupRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(
		WithMaxAttempts(6),
		WithInitialDelay(500*time.Millisecond),
		WithMaxDelay(8*time.Second),
		WithJitter(0.2),
		WithRetryIf(func(error) bool { return true }),
		WithOnRetry(onRetry),
	)
}

// DatabaseRetrier retries errors marked Retryable, three attempts in total.
func DatabaseRetrier() *Retrier {
	return New(
		WithMaxAttempts(3),
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(time.Second),
		WithJitter(0.05),
	)
}
