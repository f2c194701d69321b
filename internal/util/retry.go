package util

import (
	"context"
	"log/slog"
	"time"
)

// Retry runs fn up to maxAttempts times, doubling the wait between attempts
// starting from baseDelay. The first success wins; otherwise the last error
// is returned. Cancellation of ctx is respected while waiting.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		wait := baseDelay << (attempt - 1)
		slog.Debug("retrying after failure",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("err", lastErr.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
