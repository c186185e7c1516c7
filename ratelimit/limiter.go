// Package ratelimit provides a token-bucket limiter backed by
// golang.org/x/time/rate for smoothing the request rate against the
// generation provider. It complements the admission gate: the gate bounds
// how many calls are in flight, the limiter bounds how fast new calls
// start.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter that paces outgoing provider calls.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter that permits rps calls per second with the
// given burst size.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow reports whether a single call may proceed immediately.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
