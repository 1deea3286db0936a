// Package retry runs an operation with exponential backoff and jitter.
// Grounded on packages/core/retry/retry.go, kept field-for-field
// (Config/Option/Do/safeMultiplyDelay/addJitter) since the shape already
// fit this engine's needs without modification.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrMaxRetriesExceeded indicates all retry attempts failed.
var ErrMaxRetriesExceeded = errors.New("retry: max attempts exceeded")

// Func is the operation being retried.
type Func func(ctx context.Context) error

// Condition decides whether a given error should trigger another attempt.
type Condition func(err error) bool

// Config holds retry tuning.
type Config struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterFactor      float64
	ShouldRetry       Condition
}

// Option configures a Config.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.2,
	}
}

// WithMaxAttempts sets the total attempt count, including the first.
func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d < 0 {
			d = 0
		}
		c.InitialDelay = d
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d < 0 {
			d = 0
		}
		c.MaxDelay = d
	}
}

// WithRetryCondition sets which errors are worth retrying; nil (the
// default) retries every non-nil error.
func WithRetryCondition(cond Condition) Option {
	return func(c *Config) { c.ShouldRetry = cond }
}

// Do runs fn, retrying on error per the given options until MaxAttempts
// is exhausted, ShouldRetry rejects an error, or ctx is cancelled.
func Do(ctx context.Context, fn Func, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("%w: no attempts configured", ErrMaxRetriesExceeded)
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(addJitter(delay, cfg.JitterFactor))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = safeMultiplyDelay(delay, cfg.BackoffMultiplier, cfg.MaxDelay)
	}

	return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

func safeMultiplyDelay(delay time.Duration, multiplier float64, maxDelay time.Duration) time.Duration {
	if multiplier <= 1.0 {
		return min(delay, maxDelay)
	}
	result := float64(delay) * multiplier
	if math.IsInf(result, 0) || math.IsNaN(result) || result > float64(math.MaxInt64) {
		return maxDelay
	}
	newDelay := time.Duration(result)
	if newDelay < 0 {
		return maxDelay
	}
	return min(newDelay, maxDelay)
}

func addJitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 || d <= 0 {
		return d
	}
	if factor > 1.0 {
		factor = 1.0
	}
	jitterRange := float64(d) * factor
	jitter := time.Duration(jitterRange * (2*rand.Float64() - 1))
	result := d + jitter
	if result < 0 {
		return 0
	}
	return result
}
