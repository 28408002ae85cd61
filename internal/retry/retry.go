// Package retry re-invokes failing node steps according to their retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
)

// Defaults applied when a policy leaves a delay unset.
const (
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultMaxDelay     = 5 * time.Second
)

// NonRetryableError wraps errors that should not be retried.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable marks err so Do returns it immediately.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config is the resolved form of a domain.RetryPolicy.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// FromPolicy resolves a node retry policy. A nil policy runs the step once.
func FromPolicy(p *domain.RetryPolicy) Config {
	if p == nil || p.MaxAttempts <= 1 {
		return Config{MaxAttempts: 1}
	}

	cfg := Config{
		MaxAttempts:  p.MaxAttempts,
		InitialDelay: time.Duration(p.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(p.MaxDelayMs) * time.Millisecond,
	}

	switch p.Backoff {
	case domain.BackoffNone:
		cfg.InitialDelay, cfg.MaxDelay = 0, 0
		return cfg
	case domain.BackoffExponential:
		cfg.Multiplier = 2.0
	default:
		cfg.Multiplier = 1.0
	}

	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	return cfg
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is canceled. The last error is returned unwrapped.
// fn receives the 1-based attempt number.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) || ctx.Err() != nil || attempt == cfg.MaxAttempts {
			break
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}

		next := time.Duration(float64(delay) * cfg.Multiplier)
		if next > cfg.MaxDelay || next < 0 {
			next = cfg.MaxDelay
		}
		delay = next
	}
	return lastErr
}
