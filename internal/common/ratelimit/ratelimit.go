// Package ratelimit throttles outbound authentication attempts so a tight
// repair loop cannot hammer the identity provider.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket with a burst of one. A zero or negative rate
// disables limiting; every method is then a no-op.
type Limiter struct {
	limiter *rate.Limiter
	rps     float64
}

// New returns a limiter allowing rps requests per second.
func New(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		rps:     rps,
	}
}

// Enabled reports whether the limiter throttles at all.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limiter != nil
}

// RPS returns the configured rate, 0 when disabled.
func (l *Limiter) RPS() float64 {
	if !l.Enabled() {
		return 0
	}
	return l.rps
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (l *Limiter) Allow() bool {
	if !l.Enabled() {
		return true
	}
	return l.limiter.Allow()
}

// Reserve reserves a token. Returns nil when limiting is disabled.
func (l *Limiter) Reserve() *rate.Reservation {
	if !l.Enabled() {
		return nil
	}
	return l.limiter.Reserve()
}

func (l *Limiter) String() string {
	if !l.Enabled() {
		return "rate limit disabled"
	}
	if l.rps < 1 {
		return fmt.Sprintf("1 request per %s", time.Duration(float64(time.Second)/l.rps))
	}
	return fmt.Sprintf("%.2f rps", l.rps)
}
