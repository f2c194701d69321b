package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations so that at most perMinute of them start per
// minute. Slots are handed out in call order; it is safe for concurrent use.
type RateLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time // earliest start of the next slot
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute. Values below one are treated as one.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{interval: time.Minute / time.Duration(perMinute)}
}

// Wait blocks until this caller's slot opens or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	if rl.next.Before(now) {
		rl.next = now
	}
	wait := rl.next.Sub(now)
	rl.next = rl.next.Add(rl.interval)
	rl.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
