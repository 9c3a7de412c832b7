package gbp

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is the single process-wide gate in front of the provider API.
// Every client call waits for a slot here regardless of tenant or listing,
// so a burst of work for one business throttles all others identically.
// Construct one at service startup and hand it to NewClient.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter admits one call per minInterval with no burst allowance.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// WaitForSlot blocks until a call is permitted. It never rejects on its own;
// the only error path is cancellation of ctx.
func (r *RateLimiter) WaitForSlot(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
