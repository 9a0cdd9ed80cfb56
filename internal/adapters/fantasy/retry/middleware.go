package retry

import (
	"context"
	"math"
	"time"

	"huddle/pkg/errors"
)

// Strategy defines the retry strategy
type Strategy string

const (
	// StrategyExponential uses exponential backoff
	StrategyExponential Strategy = "exponential"
	// StrategyLinear uses linear backoff
	StrategyLinear Strategy = "linear"
	// StrategyFixed uses fixed delay
	StrategyFixed Strategy = "fixed"
)

// Config contains retry configuration
type Config struct {
	// MaxAttempts is the total number of tries, including the first
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
	Strategy    Strategy
	Multiplier  float64 // For exponential backoff
}

// DefaultConfig matches the provider connect policy: three attempts
// two seconds apart.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		MaxDelay:    30 * time.Second,
		Strategy:    StrategyFixed,
	}
}

// Middleware retries failed calls. Provider errors are treated
// opaquely: any failure is worth another attempt because transient
// network faults and provider hiccups dominate, and classification
// happens at the hint layer instead.
type Middleware struct {
	config Config
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Delay <= 0 {
		config.Delay = 2 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyFixed
	}

	return &Middleware{config: config}
}

// Do executes fn until it succeeds or attempts run out. Cancellation is
// honored between attempts, never mid-call.
func (m *Middleware) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= m.config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == m.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(m.delay(attempt)):
		}
	}

	return errors.Wrapf(lastErr, "%d attempts exhausted", m.config.MaxAttempts)
}

// delay returns the wait before the next attempt; attempt counts from 1.
func (m *Middleware) delay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		delay = time.Duration(float64(m.config.Delay) * math.Pow(m.config.Multiplier, float64(attempt-1)))
	case StrategyLinear:
		delay = m.config.Delay * time.Duration(attempt)
	default:
		delay = m.config.Delay
	}

	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}

	return delay
}
