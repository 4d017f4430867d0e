package papersources

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// NCBI request rates per second without and with an API key.
const (
	NCBIRate        = 3.0
	NCBIRateWithKey = 10.0
)

// NCBIRateFor returns the highest rate NCBI allows for the given API key.
func NCBIRateFor(apiKey string) float64 {
	if apiKey != "" {
		return NCBIRateWithKey
	}
	return NCBIRate
}

// RateLimiter is a token bucket that backs off after rate limit responses.
// Slowdown halves the rate, never below a quarter of the configured rate, and
// every successful request afterwards steps it back towards the configured rate.
//
// It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	ceiling float64
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests with the given burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		ceiling: ratePerSecond,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Rate returns the rate currently in effect.
func (r *RateLimiter) Rate() float64 {
	return float64(r.limiter.Limit())
}

// Ceiling returns the configured rate.
func (r *RateLimiter) Ceiling() float64 {
	return r.ceiling
}

// Slowdown halves the current rate and returns the rate in effect afterwards.
func (r *RateLimiter) Slowdown() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := max(float64(r.limiter.Limit())/2, r.ceiling/4)
	r.limiter.SetLimit(rate.Limit(next))
	return next
}

// Recover raises a lowered rate by an eighth of the configured rate and returns
// the rate in effect afterwards.
func (r *RateLimiter) Recover() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := float64(r.limiter.Limit())
	if current >= r.ceiling {
		return current
	}
	next := min(current+r.ceiling/8, r.ceiling)
	r.limiter.SetLimit(rate.Limit(next))
	return next
}
