// Package retry provides a minimal bounded-retry helper for store and catalog
// lookups. Retries are for transient infrastructure failures only; callers
// must not route validation failures through it.
package retry

import (
	"context"
	"time"
)

// Do invokes fn up to attempts times, sleeping delay between failures.
// It stops early when the context is done and returns the last error.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}

		if i < attempts-1 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}
	}
	return lastErr
}
