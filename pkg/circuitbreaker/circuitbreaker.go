// Package circuitbreaker protects upstream HTTP dependencies (LLM gateway, search API,
// email provider, auth admin API) from being hammered while they are failing.
// An open breaker fails fast; callers map that to an upstream error without retrying.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration.
type Config struct {
	Name string

	// FailureThreshold consecutive failures open the circuit. Default: 5.
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open before a trial call. Default: 30s.
	OpenTimeout time.Duration

	// OnStateChange is called outside the lock after every transition.
	OnStateChange func(name string, from, to State)

	// IsFailure decides whether err counts. Cancelled contexts never count.
	IsFailure func(error) bool
}

// Option is a functional option for configuring the circuit breaker.
type Option func(*Config)

func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

func WithOpenTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.OpenTimeout = d
		}
	}
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) { c.IsFailure = fn }
}

// CircuitBreaker is a consecutive-failure breaker with a single half-open trial call.
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a new CircuitBreaker with the given name and options.
func New(name string, opts ...Option) *CircuitBreaker {
	cfg := Config{
		Name:             name,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CircuitBreaker{config: cfg, now: time.Now}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if !cb.countsAsFailure(err) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if cb.config.IsFailure != nil {
		return cb.config.IsFailure(err)
	}
	return true
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if fn := cb.config.OnStateChange; fn != nil {
		name := cb.config.Name
		go fn(name, from, to)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// StatusError is a non-success HTTP response from an upstream API.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Service, e.Code, e.Body)
}

// IsUpstreamFailure reports whether err says the upstream itself is unhealthy.
// A 4xx response is a problem with the request, except 408 and 429.
func IsUpstreamFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
		return se.Code == http.StatusRequestTimeout || se.Code == http.StatusTooManyRequests
	}
	return true
}

// Upstream returns a breaker tuned for third-party HTTP APIs on the request path.
func Upstream(name string, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(
		name,
		WithFailureThreshold(5),
		WithOpenTimeout(30*time.Second),
		WithOnStateChange(onStateChange),
		WithIsFailure(IsUpstreamFailure),
	)
}
