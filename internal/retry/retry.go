package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/deusflow/vzradar/internal/fault"
)

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool          // Linear backoff: attempt * Delay
	MaxDelay    time.Duration // 0 = no cap

	// Retryable decides whether an error is worth another attempt.
	// nil retries every error.
	Retryable func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DelayFor returns the wait after the given failed attempt (1-based).
func (c RetryConfig) DelayFor(attempt int) time.Duration {
	delay := c.Delay
	if c.Backoff {
		delay = time.Duration(attempt) * c.Delay
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

func WithRetry(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if config.Retryable != nil && !config.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := config.DelayFor(attempt)
		if config.OnRetry != nil {
			config.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Transient reports whether err carries a retryable fault kind and is not a
// permanent client error. Use it as RetryConfig.Retryable for outbound HTTP
// and model calls.
func Transient(err error) bool {
	if fault.IsPermanent(err) {
		return false
	}
	return fault.Retryable(fault.KindOf(err))
}
