// Package resilience retries operations that fail for transient reasons,
// such as Bot API calls hitting a network error or a server-side hiccup.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhaustedRetries indicates retry attempts were exhausted.
var ErrExhaustedRetries = errors.New("retry attempts exhausted")

// RetryConfig holds configuration for retry operations.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	RandomFactor    float64
	// Permanent reports errors that must not be retried. Nil retries everything.
	Permanent func(error) bool
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		RandomFactor:    0.1,
	}
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.InitialInterval
	eb.MaxInterval = c.MaxInterval
	eb.Multiplier = c.Multiplier
	eb.RandomizationFactor = c.RandomFactor
	eb.MaxElapsedTime = 0
	eb.Reset()

	retries := c.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// WithRetry runs operation until it succeeds, fails permanently, ctx is done
// or MaxAttempts is reached. Permanent errors are returned as they are.
func WithRetry(ctx context.Context, operation func(context.Context) error, cfg RetryConfig) error {
	attempts := 0
	permanent := false

	err := backoff.RetryNotify(func() error {
		attempts++
		err := operation(ctx)
		if err != nil && cfg.Permanent != nil && cfg.Permanent(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}, cfg.backOff(ctx), func(err error, next time.Duration) {
		slog.Debug("Operation failed, retrying",
			"attempt", attempts,
			"max_attempts", cfg.MaxAttempts,
			"next_interval", next,
			"error", err,
		)
	})

	switch {
	case err == nil:
		return nil
	case permanent:
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("retry abandoned: %w", ctx.Err())
	default:
		return fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, attempts, err)
	}
}
