// Package poll implements the bounded wait used when a freshly deployed
// service needs time to come up: fixed interval, fixed attempt ceiling,
// early exit on success.
package poll

import (
	"context"
	"fmt"
	"time"
)

// Predicate reports whether the awaited condition holds. A returned error
// is treated as "not yet" and remembered; it surfaces only if the ceiling
// is reached without success.
type Predicate func(ctx context.Context) (bool, error)

// Until invokes fn up to attempts times, sleeping interval between tries,
// and returns nil as soon as fn reports true. When the ceiling is reached
// the last error from fn (if any) is wrapped into the timeout error.
// Context cancellation aborts the wait between attempts.
func Until(ctx context.Context, interval time.Duration, attempts int, fn Predicate) error {
	if attempts < 1 {
		return fmt.Errorf("poll: attempts must be >= 1")
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		ok, err := fn(ctx)
		if ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	if lastErr != nil {
		return fmt.Errorf("condition not met after %d attempts: %w", attempts, lastErr)
	}
	return fmt.Errorf("condition not met after %d attempts", attempts)
}
