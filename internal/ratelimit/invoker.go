// Package ratelimit wraps calls to external services with bounded
// concurrency, request spacing and retry on rate limiting.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/metrics"
)

// Policy configures admission and retry for one Invoker.
type Policy struct {
	// MaxInFlight caps concurrent attempts.
	MaxInFlight int

	// MinSpacing is the minimum gap between the start of two attempts.
	// Zero disables spacing.
	MinSpacing time.Duration

	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	// AttemptTimeout bounds each attempt separately. Zero disables it.
	AttemptTimeout time.Duration

	// Retryable reports whether an error should be retried.
	// Defaults to matching domain.ErrRateLimited.
	Retryable func(error) bool
}

// DefaultPolicy returns the default policy.
func DefaultPolicy() Policy {
	return PolicyFromSettings(domain.DefaultEngineSettings().Invoker)
}

// PolicyFromSettings converts configured invoker settings into a Policy.
func PolicyFromSettings(s domain.InvokerSettings) Policy {
	return Policy{
		MaxInFlight:    s.MaxInFlight,
		MinSpacing:     s.MinSpacing,
		BaseDelay:      s.BaseDelay,
		MaxDelay:       s.MaxDelay,
		MaxAttempts:    s.MaxAttempts,
		AttemptTimeout: s.AttemptTimeout,
	}
}

// IsRateLimited is the default retry classifier.
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// JitterFunc returns the jitter added to a backoff delay.
type JitterFunc func(d time.Duration) time.Duration

// Option configures an Invoker.
type Option func(*Invoker)

// WithSleep replaces the backoff sleep. Used by tests.
func WithSleep(fn SleepFunc) Option {
	return func(i *Invoker) { i.sleep = fn }
}

// WithJitter replaces the jitter source.
func WithJitter(fn JitterFunc) Option {
	return func(i *Invoker) { i.jitter = fn }
}

// Invoker executes closures against one external provider.
// It is safe for concurrent use; all callers share its queue and clock.
type Invoker struct {
	name    string
	policy  Policy
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	sleep   SleepFunc
	jitter  JitterFunc
	log     logger.Scoped
}

// New creates an Invoker for the named provider.
func New(name string, p Policy, opts ...Option) *Invoker {
	if p.MaxInFlight <= 0 {
		p.MaxInFlight = 1
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Retryable == nil {
		p.Retryable = IsRateLimited
	}

	limit := rate.Inf
	if p.MinSpacing > 0 {
		limit = rate.Every(p.MinSpacing)
	}

	inv := &Invoker{
		name:    name,
		policy:  p,
		sem:     semaphore.NewWeighted(int64(p.MaxInFlight)),
		limiter: rate.NewLimiter(limit, 1),
		sleep:   SleepContext,
		jitter:  RandomJitter,
		log:     logger.Component("invoker/" + name),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Name returns the provider name.
func (i *Invoker) Name() string {
	return i.name
}

// Policy returns the effective policy.
func (i *Invoker) Policy() Policy {
	return i.policy
}

// Do runs fn until it succeeds, fails with a non-retryable error, or
// MaxAttempts rate-limited attempts were made.
func (i *Invoker) Do(ctx context.Context, fn func(context.Context) error) error {
	var last error
	for attempt := 0; attempt < i.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := Backoff(attempt-1, i.policy, i.jitter(i.policy.BaseDelay))
			i.log.Debug("%v, retrying in %s (attempt %d/%d)", last, delay, attempt+1, i.policy.MaxAttempts)
			metrics.Default().IncRetry(i.name)
			if err := i.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := i.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !i.policy.Retryable(err) {
			return err
		}
		last = err
	}

	i.log.Warn("giving up after %d attempts: %v", i.policy.MaxAttempts, last)
	return &domain.RateLimitExceededError{
		Provider: i.name,
		Attempts: i.policy.MaxAttempts,
		Last:     last,
	}
}

// attempt runs fn once inside the admission queue and spacing clock.
func (i *Invoker) attempt(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := i.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer i.sem.Release(1)

	if err := i.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s: spacing: %w", i.name, err)
	}

	attemptCtx := ctx
	if i.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, i.policy.AttemptTimeout)
		defer cancel()
	}

	done := metrics.TimeInvocation(i.name)
	err := fn(attemptCtx)
	done(err == nil)
	metrics.Default().IncInvocation(i.name, outcome(ctx, err, i.policy.Retryable))
	return err
}

func outcome(ctx context.Context, err error, retryable func(error) bool) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case ctx.Err() != nil:
		return metrics.OutcomeCanceled
	case retryable(err):
		return metrics.OutcomeRateLimited
	default:
		return metrics.OutcomeError
	}
}

// Invoke runs fn through inv and returns its value.
func Invoke[T any](ctx context.Context, inv *Invoker, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := inv.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
