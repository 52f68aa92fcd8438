// Package recovery implements the circuit breaker that guards a bridge's
// destination send path: a destination failing repeatedly is fast-failed
// instead of retried per message, bounding dispatch latency without
// changing the externally observable per-message error semantics of
// spec §7 (SendError is still produced and logged for every failed
// call).
package recovery

import (
	"fmt"
	"sync"
	"time"
)

// State is the circuit breaker's current state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config configures a CircuitBreaker.
type Config struct {
	MaxFailures      int
	Timeout          time.Duration
	HalfOpenMaxTries int
}

// CircuitBreaker wraps a fallible call, opening after MaxFailures
// consecutive failures and refusing calls until Timeout elapses, then
// allowing HalfOpenMaxTries probe calls before fully closing again.
type CircuitBreaker struct {
	maxFailures      int
	timeout          time.Duration
	halfOpenMaxTries int

	mu               sync.Mutex
	state            State
	failures         int
	lastFailureTime  time.Time
	halfOpenAttempts int
}

// New creates a CircuitBreaker, applying the teacher's defaults (5
// failures, 30s timeout, 3 half-open probes) for any zero field.
func New(cfg Config) *CircuitBreaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxTries == 0 {
		cfg.HalfOpenMaxTries = 3
	}
	return &CircuitBreaker{
		maxFailures:      cfg.MaxFailures,
		timeout:          cfg.Timeout,
		halfOpenMaxTries: cfg.HalfOpenMaxTries,
		state:            StateClosed,
	}
}

// Call runs fn if the circuit allows it, recording the outcome.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastFailureTime) > cb.timeout {
			cb.state = StateHalfOpen
			cb.halfOpenAttempts = 1
			return nil
		}
		return fmt.Errorf("circuit breaker open (failed %d times)", cb.failures)
	case StateHalfOpen:
		if cb.halfOpenAttempts >= cb.halfOpenMaxTries {
			return fmt.Errorf("circuit breaker half-open: probe budget exhausted")
		}
		cb.halfOpenAttempts++
		return nil
	default:
		return fmt.Errorf("circuit breaker: unknown state")
	}
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailureTime = time.Now()
		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.maxFailures {
				cb.state = StateOpen
			}
		case StateHalfOpen:
			cb.state = StateOpen
			cb.halfOpenAttempts = 0
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		if cb.halfOpenAttempts >= cb.halfOpenMaxTries {
			cb.state = StateClosed
			cb.failures = 0
			cb.halfOpenAttempts = 0
		}
	}
}

// CurrentState returns the breaker's current state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
