package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces outbound calls to a metered API.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows maxTokens calls per window, all of which may burst at once.
func NewRateLimiter(maxTokens int, window time.Duration) *RateLimiter {
	if maxTokens <= 0 {
		maxTokens = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	every := window / time.Duration(maxTokens)
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(every), maxTokens)}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
