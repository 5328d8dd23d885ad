package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy bounds a retry loop. Retryable decides whether an error is worth
// another attempt; nil treats every error as retryable. Hint may return a
// delay requested by the failing server (e.g. Retry-After); it replaces the
// backoff when longer, capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
	Hint        func(error) time.Duration
}

func (p Policy) delay(err error, attempt int) time.Duration {
	d := Backoff(p.BaseDelay, p.MaxDelay, attempt)
	if p.Hint == nil {
		return d
	}
	h := p.Hint(err)
	if p.MaxDelay > 0 && h > p.MaxDelay {
		h = p.MaxDelay
	}
	if h > d {
		return h
	}
	return d
}

// Backoff returns an exponential delay for attempt (1-based) capped at max,
// minus up to 50% jitter.
func Backoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 32 {
		if d := min * time.Duration(1<<uint(attempt-1)); d > 0 && d < max {
			exp = d
		}
	}
	if half := int64(exp) / 2; half > 0 {
		exp -= time.Duration(rand.Int63n(half))
	}
	return exp
}

// Do runs fn until it succeeds, returns a non-retryable error, the context
// ends, or MaxAttempts is reached. It returns the number of attempts made and
// the last error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return attempt, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return attempt, err
		}
		if attempt == p.MaxAttempts {
			return attempt, err
		}
		t := time.NewTimer(p.delay(err, attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt, errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
	return p.MaxAttempts, err
}
