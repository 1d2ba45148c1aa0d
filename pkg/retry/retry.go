// Package retry provides a bounded exponential-backoff retry policy.
// Every file-lock resolution path in the exporter goes through this one
// implementation so delay constants stay consistent.
package retry

import (
	"fmt"
	"math/rand"
	"time"

	"context"

	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/rs/zerolog"
)

// Package-specific error codes for retry operations
var (
	OperationFailed = errors.MustNewCode("retry.operation_failed")
)

// Policy holds retry configuration
type Policy struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// DefaultPolicy returns the retry policy used for file-lock resolution.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   5,
		BaseDelay:     200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        false,
	}
}

// Operation represents an operation that can be retried
type Operation func(ctx context.Context) error

// Do executes an operation with exponential backoff retry logic.
// Cancellation is checked before every attempt and during every delay.
func Do(ctx context.Context, policy Policy, operation Operation, logger zerolog.Logger) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	delay := policy.BaseDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Dur("delay", delay).
			Msg("Operation failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered(delay, policy.Jitter)):
		}

		delay = time.Duration(float64(delay) * policy.BackoffFactor)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return errors.New(OperationFailed, "operation failed after retry attempts", lastErr).
		AddContext("max_attempts", fmt.Sprintf("%d", policy.MaxAttempts))
}

// jittered spreads a delay over [delay/2, delay) to avoid synchronized retries.
func jittered(delay time.Duration, jitter bool) time.Duration {
	if !jitter || delay <= 0 {
		return delay
	}
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)))
}
