// Package retry provides the bounded exponential backoff policy shared by
// every remote call in the pipeline: embedding, upsert, query and generation.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts is the number of tries, including the first one.
	DefaultMaxAttempts = 3

	// DefaultInitialDelay is the wait before the second attempt.
	DefaultInitialDelay = 500 * time.Millisecond

	// DefaultMaxDelay caps the exponential growth of the wait.
	DefaultMaxDelay = 10 * time.Second
)

// Policy configures bounded retries with exponential backoff.
type Policy struct {
	// MaxAttempts is the total number of attempts. Defaults to DefaultMaxAttempts if zero.
	MaxAttempts int

	// InitialDelay is the delay before the first retry. It doubles after each
	// failed attempt. Defaults to DefaultInitialDelay if zero.
	InitialDelay time.Duration

	// MaxDelay caps a single delay. Defaults to DefaultMaxDelay if zero.
	MaxDelay time.Duration

	// OnRetry, when set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns a Policy with the package defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// Delay returns the backoff before retry number attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// Do calls fn until it succeeds, the attempts are exhausted, or ctx is done.
// The returned error wraps the last error from fn.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for functions that produce a result. Only the result of the
// successful attempt is returned; results of failed attempts are discarded.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}
