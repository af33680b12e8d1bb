package errors

import (
	"context"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %v, want 3", config.MaxAttempts)
	}
	if config.BaseDelay != 1*time.Second {
		t.Errorf("BaseDelay = %v, want 1s", config.BaseDelay)
	}
	if config.RetryableErrors == nil {
		t.Error("RetryableErrors function is nil")
	}
}

func TestRetry_Success(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		RetryableErrors: func(err error) bool {
			return IsRetryable(err)
		},
	}

	attemptCount := 0
	err := Retry(ctx, config, func() error {
		attemptCount++
		if attemptCount < 3 {
			return NewNetworkError("temporary failure", nil)
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if attemptCount != 3 {
		t.Errorf("Expected 3 attempts, got %d", attemptCount)
	}
}

func TestRetry_MaxAttemptsExceeded(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		RetryableErrors: func(err error) bool {
			return IsRetryable(err)
		},
	}

	attemptCount := 0
	err := Retry(ctx, config, func() error {
		attemptCount++
		return NewNetworkError("persistent failure", nil)
	})

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if attemptCount != 3 {
		t.Errorf("Expected 3 attempts, got %d", attemptCount)
	}
	if !IsNetwork(err) {
		t.Errorf("Expected wrapped network error, got %v", err)
	}
}

func TestRetry_NonRetryableError(t *testing.T) {
	ctx := context.Background()
	config := DefaultRetryConfig()
	config.BaseDelay = 10 * time.Millisecond

	attemptCount := 0
	err := Retry(ctx, config, func() error {
		attemptCount++
		return NewNotFoundError("no such album")
	})

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if attemptCount != 1 {
		t.Errorf("Expected 1 attempt (no retries), got %d", attemptCount)
	}
}

func TestRetry_LinearBackoff(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		RetryableErrors: func(err error) bool {
			return true
		},
	}

	start := time.Now()
	_ = Retry(ctx, config, func() error {
		return NewNetworkError("fail", nil)
	})
	elapsed := time.Since(start)

	// Waits are 1*base then 2*base = 60ms total.
	if elapsed < 60*time.Millisecond {
		t.Errorf("Elapsed = %v, want >= 60ms for linear backoff", elapsed)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	config := RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		RetryableErrors: func(err error) bool {
			return true
		},
	}

	attemptCount := 0
	err := Retry(ctx, config, func() error {
		attemptCount++
		return NewNetworkError("fail", nil)
	})

	if err == nil {
		t.Error("Expected error after context cancellation, got nil")
	}
	if attemptCount > 2 {
		t.Errorf("Expected cancellation to stop retries early, got %d attempts", attemptCount)
	}
}
