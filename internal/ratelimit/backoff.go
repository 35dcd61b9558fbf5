package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff returns the delay before the retry that follows the given
// zero-based attempt: base*2^attempt plus jitter, capped at MaxDelay.
func Backoff(attempt int, p Policy, jitter time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	delay += jitter
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// RandomJitter returns a uniformly distributed duration in [0, d/4).
func RandomJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	n := int64(d / 4)
	if n <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(n))
}

// NoJitter disables jitter.
func NoJitter(time.Duration) time.Duration { return 0 }

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
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
