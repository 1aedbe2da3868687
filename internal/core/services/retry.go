package services

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// RetryPolicy retries an operation with exponential backoff.
// A zero MaxAttempts means a single attempt.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait after the first failure. It grows by Multiplier
	// per attempt and is capped at MaxDelay when MaxDelay is positive.
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	// Jitter spreads each delay by up to ±Jitter of its value.
	Jitter float64

	// Retryable decides whether an error is worth another attempt.
	Retryable func(error) bool

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// NewRetryPolicy builds the model-call policy from settings.
// Only transient model errors are retried.
func NewRetryPolicy(settings domain.RetrySettings) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: settings.MaxAttempts,
		BaseDelay:   settings.BaseDelay,
		MaxDelay:    settings.MaxDelay,
		Multiplier:  2,
		Jitter:      0.2,
		Retryable:   domain.IsTransient,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt bound is reached. It returns the number of attempts made and the
// last error. A cancelled wait stops retrying and returns the last error.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := max(1, p.MaxAttempts)
	retryable := p.Retryable
	if retryable == nil {
		retryable = domain.IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if attempt >= maxAttempts || !retryable(err) {
			return attempt, err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return attempt, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
