package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"huddle/pkg/errors"
)

// Limiter throttles calls against an upstream API
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// PerMinute creates a limiter allowing requestsPerMinute, with a burst of
// 10% of the per-minute budget
func PerMinute(name string, requestsPerMinute int) *Limiter {
	rps := float64(requestsPerMinute) / 60.0

	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Every creates a limiter that releases one call per interval with no
// burst, i.e. a fixed pacing delay between consecutive calls
func Every(name string, interval time.Duration) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		name:    name,
	}
}

// Wait blocks until the limiter allows the call
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter %s", l.name)
	}
	return nil
}

// Allow checks if a call is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
