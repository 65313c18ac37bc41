package providers

import (
	"context"
	"time"
)

// base holds retry configuration shared by every vendor driver.
// Grounded on internal/agent/providers.BaseProvider's linear-backoff
// retry helper, reused as-is since every driver in this package needs
// the same "retry on transient HTTP failure" behavior regardless of
// vendor.
type base struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

func newBase(name string, maxRetries int, retryDelay time.Duration) base {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return base{name: name, maxRetries: maxRetries, retryDelay: retryDelay}
}

func (b *base) Name() string { return b.name }

// retry executes op with linear backoff while isRetryable(err) holds.
func (b *base) retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if isRetryable == nil || !isRetryable(err) {
			return err
		}
		if attempt >= b.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.retryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}

// isRetryableHTTP classifies common transient network/HTTP failures as
// retryable; every driver's HTTP-backed Prompt call passes this to
// retry.
func isRetryableHTTP(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{"timeout", "connection reset", "EOF", "429", "503", "502", "temporarily unavailable"} {
		if containsFold(msg, pattern) {
			return true
		}
	}
	return false
}
