// Package retry runs an operation under an explicit retry policy.
package retry

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidPolicy = errors.New("max attempts must be at least 1")

// Policy описывает сколько раз и с какими паузами повторять вызов.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(err error) bool
	// OnRetry вызывается перед паузой, удобно для логов и метрик
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Exponential returns base, 2*base, 4*base ... for attempts 1, 2, 3 ...
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. There is no pause after the last attempt. If ctx is
// done while waiting, ctx.Err() is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, ErrInvalidPolicy
	}

	for attempt := 1; ; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}

		if attempt >= p.MaxAttempts || p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
