// Package ratelimiter throttles operation admission per origin.
package ratelimiter

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter admits requests using the token bucket algorithm.
//
// It wraps golang.org/x/time/rate and only exposes the non-blocking path:
// admission never waits, matching the lock manager, which never queues.
//
//  1. Tokens are added to the bucket at a constant rate (requests per second)
//  2. Each admitted request consumes one token
//  3. With an empty bucket the request is refused immediately
//  4. Burst capacity allows temporary spikes above the sustained rate
//
// A nil *RateLimiter admits everything.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - requestsPerSecond: Maximum sustained rate; 0 disables limiting
//   - burst: Bucket capacity; values below 1 are raised to 1 so that a
//     positive rate can ever admit anything
//
// Example:
//
//	// Allow 100 operations/s sustained, bursts of 200
//	limiter := New(100, 200)
func New(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Allow consumes a token if one is available.
//
// Returns:
//   - true if the request is admitted (token consumed)
//   - false if the request must be refused (no tokens available)
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}

// AllowAt is Allow evaluated at t. Used by tests to avoid sleeping.
func (r *RateLimiter) AllowAt(t time.Time) bool {
	if r == nil {
		return true
	}
	return r.limiter.AllowN(t, 1)
}

// Unlimited reports whether the limiter admits everything.
func (r *RateLimiter) Unlimited() bool {
	return r == nil || r.limiter.Limit() == rate.Inf
}

// SetLimit changes the sustained rate; 0 disables limiting.
func (r *RateLimiter) SetLimit(requestsPerSecond float64) {
	if requestsPerSecond <= 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
	if r.limiter.Burst() < 1 {
		r.limiter.SetBurst(1)
	}
}

// Tokens returns the number of tokens currently available. Primarily useful
// for diagnostics; the value may change immediately after the call.
func (r *RateLimiter) Tokens() float64 {
	if r.Unlimited() {
		return float64(rate.Inf)
	}
	return r.limiter.Tokens()
}
