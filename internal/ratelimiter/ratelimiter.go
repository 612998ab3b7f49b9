// Package ratelimiter throttles how fast the Gopher listener hands out new
// connections.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket over accepted connections.
//
// A nil *RateLimiter is valid and never throttles, so callers can keep a
// single code path whether or not limiting is configured.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter admitting requestsPerSecond connections on average
// with bursts of up to burst.
//
// Returns nil (unlimited) when requestsPerSecond is 0. A burst of 0 defaults
// to requestsPerSecond so that at least one token fits in the bucket.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return nil
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Throttle takes a token, waiting for one if the bucket is empty.
//
// Returns throttled=true when the caller had to wait, and ctx's error if it
// was cancelled first.
func (r *RateLimiter) Throttle(ctx context.Context) (throttled bool, err error) {
	if r.Allow() {
		return false, nil
	}
	return true, r.Wait(ctx)
}

// Tokens returns the number of tokens currently in the bucket.
// Unlimited limiters report -1.
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return -1
	}
	return r.limiter.Tokens()
}
