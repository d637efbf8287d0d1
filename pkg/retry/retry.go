// Package retry runs operations with exponential backoff and jitter.
// It is used for startup dependencies (database, redis) where a transient failure
// should not kill the process. Request-path calls to upstream APIs are never retried.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// PermanentError stops the retry loop immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Config holds retry configuration.
type Config struct {
	// MaxAttempts includes the first attempt. Default: 3.
	MaxAttempts int

	// InitialDelay is the delay before the second attempt. Default: 100ms.
	InitialDelay time.Duration

	// MaxDelay caps the backoff. Default: 10s.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts. Default: 2.
	Multiplier float64

	// JitterFactor randomizes each delay by ±factor. Default: 0.1.
	JitterFactor float64

	// OnRetry is called before sleeping.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// Option is a functional option for configuring retries.
type Option func(*Config)

func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.InitialDelay = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

func WithJitter(j float64) Option {
	return func(c *Config) {
		if j >= 0 && j <= 1 {
			c.JitterFactor = j
		}
	}
}

func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// Retrier executes operations according to its Config.
type Retrier struct {
	config Config
}

// New creates a new Retrier with the given options.
func New(opts ...Option) *Retrier {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Retrier{config: cfg}
}

// Do runs operation until it succeeds, returns a permanent error,
// the attempts run out, or ctx is done.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		lastErr = err

		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}

	return lastErr
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	if r.config.JitterFactor > 0 {
		d += d * r.config.JitterFactor * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// DatabaseRetrier is used when connecting to Postgres at startup.
func DatabaseRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(
		WithMaxAttempts(5),
		WithInitialDelay(500*time.Millisecond),
		WithMaxDelay(8*time.Second),
		WithJitter(0.2),
		WithOnRetry(onRetry),
	)
}

// CacheRetrier is used when connecting to Redis at startup.
func CacheRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(
		WithMaxAttempts(3),
		WithInitialDelay(200*time.Millisecond),
		WithMaxDelay(2*time.Second),
		WithOnRetry(onRetry),
	)
}
