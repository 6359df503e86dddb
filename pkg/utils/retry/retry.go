// Package retry wraps sethvargo/go-retry with the linear backoff policy used
// across the store and tool adapters: delay grows as base × attempt, and only
// errors explicitly marked retryable are tried again.
package retry

import (
	"context"
	"time"

	vretry "github.com/sethvargo/go-retry"
)

// Linear returns a backoff whose nth delay is n × base. Not safe for reuse
// across concurrent Do calls; construct one per call.
func Linear(base time.Duration) vretry.Backoff {
	attempt := 0
	return vretry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}

// Do runs fn up to attempts times, sleeping base × attempt between tries.
// fn must mark transient failures with Retryable; any other error stops the
// loop immediately and is returned as-is.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := vretry.WithMaxRetries(uint64(attempts-1), Linear(base))
	return vretry.Do(ctx, b, fn)
}

// Retryable marks err as transient so Do will try again.
func Retryable(err error) error {
	return vretry.RetryableError(err)
}
