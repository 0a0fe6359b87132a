package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"syscall"
	"time"
)

// RetryConfig defines how connection attempts are retried.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, at least 1.
	MaxAttempts int
	// InitialBackoff is the wait before the second attempt; each further
	// attempt doubles it.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between attempts. Zero means no cap.
	MaxBackoff time.Duration
}

// retry calls fn until it succeeds, fails with a non-retryable error, or
// attempts are exhausted.
func retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// backoff returns InitialBackoff * 2^(attempt-1), capped at MaxBackoff.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1)) * float64(cfg.InitialBackoff))
	if cfg.MaxBackoff > 0 && d > cfg.MaxBackoff {
		d = cfg.MaxBackoff
	}
	return d
}

// isRetryable reports whether the request never reached the server, so
// repeating it cannot start or stop the profiler twice.
func isRetryable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
