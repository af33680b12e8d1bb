package errors

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig defines retry behavior configuration
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number for linear backoff
	BaseDelay time.Duration
	// RetryableErrors is a function to determine if an error is retryable
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns the retry configuration shared by every
// remote listing and URL resolution call: three attempts with linear
// 1s, 2s backoff between them. No jitter; request volume is low enough
// that synchronized retries are not a concern.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		RetryableErrors: func(err error) bool {
			return IsRetryable(err)
		},
	}
}

// Retry executes fn with linear backoff retry logic. After an attempt
// fails, it waits BaseDelay * attemptNumber before trying again; once
// attempts are exhausted the last error is returned wrapped.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt == config.MaxAttempts {
			break
		}

		backoff := config.BaseDelay * time.Duration(attempt)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("max attempts (%d) exceeded: %w", config.MaxAttempts, lastErr)
}
