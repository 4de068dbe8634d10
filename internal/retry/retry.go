// Package retry retries transient failures with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Policy controls how often and how long to retry.
type Policy struct {
	Attempts   int           // total attempts, at least 1
	BaseDelay  time.Duration // delay before the second attempt
	MaxDelay   time.Duration // delay ceiling
	Multiplier float64
	Jitter     float64 // fraction of the delay, 0-1
}

// DefaultPolicy suits a single storage API request.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// Transient marks err as worth retrying.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}

// Delay returns the wait before attempt n+1, after n failed attempts, without jitter.
func (p Policy) Delay(n int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a non-transient error, the
// attempts are used up, or ctx ends. onRetry may be nil.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), onRetry func(attempt int, err error)) (T, error) {
	var zero T
	attempts := max(p.Attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		wait := p.Delay(attempt)
		if p.Jitter > 0 {
			wait += time.Duration(float64(wait) * p.Jitter * (rand.Float64()*2 - 1))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
