// Package resilience provides the circuit breaker, retry and
// reconnection primitives shared by the upstream clients.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // normal operation
	StateOpen                         // requests fail immediately
	StateHalfOpen                     // probing for recovery
)

// ErrCircuitOpen is returned when a call is rejected by an open circuit.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// halfOpenProbes is how many requests may pass while probing recovery.
const halfOpenProbes = 3

// CircuitBreaker protects an upstream service from being hammered while
// it is failing.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu            sync.Mutex
	state         CircuitState
	failures      int
	successes     int
	halfOpenCount int
	lastFailure   time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. After maxFailures
// consecutive failures the circuit opens; after resetTimeout it admits a
// few probe requests and closes again once they all succeed.
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// Name returns the breaker's service name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Call executes fn under circuit breaker protection.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.RecordResult(err == nil)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastFailure) >= cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.halfOpenCount = 0
			cb.successes = 0
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenCount < halfOpenProbes {
			return true
		}
	}
	return false
}

// RecordResult records the outcome of a request. Exposed for callers
// that cannot route the request through Call, like SDK callbacks.
func (cb *CircuitBreaker) RecordResult(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if success {
			cb.failures = 0
			return
		}
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
		}
	case StateHalfOpen:
		cb.halfOpenCount++
		if !success {
			cb.state = StateOpen
			cb.lastFailure = time.Now()
			return
		}
		cb.successes++
		if cb.successes >= halfOpenProbes {
			cb.state = StateClosed
			cb.failures = 0
		}
	case StateOpen:
		if !success {
			cb.lastFailure = time.Now()
		}
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
