package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the state of a circuit breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker stops calling a failing upstream for a cool-down period.
// After maxFailures consecutive failures it opens; once timeout has passed a
// single probe call is let through and its outcome closes or reopens it.
type CircuitBreaker struct {
	name        string
	maxFailures uint32
	timeout     time.Duration
	logger      *logrus.Logger
	now         func() time.Time

	mu              sync.Mutex
	state           State
	failures        uint32
	openedAt        time.Time
	probeInFlight   bool
	requestCount    uint64
	rejectedCount   uint64
	lastFailureTime time.Time
}

// New creates a circuit breaker. A nil logger gets a default logrus logger.
func New(name string, maxFailures uint32, timeout time.Duration, logger *logrus.Logger) *CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		timeout:     timeout,
		logger:      logger,
		now:         time.Now,
		state:       StateClosed,
	}
}

// Execute runs fn unless the circuit is open. Errors for which countable
// returns false are passed through without affecting the circuit.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error, countable func(error) bool) error {
	probe, err := cb.acquire()
	if err != nil {
		return err
	}

	err = fn(ctx)
	switch {
	case err == nil:
		cb.record(probe, outcomeSuccess)
	case countable == nil || countable(err):
		cb.record(probe, outcomeFailure)
	default:
		cb.record(probe, outcomeIgnored)
	}
	return err
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeIgnored
)

func (cb *CircuitBreaker) acquire() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requestCount++

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			cb.rejectedCount++
			return false, &CircuitBreakerError{Name: cb.name, State: StateOpen}
		}
		cb.state = StateHalfOpen
		cb.logger.WithFields(logrus.Fields{
			"circuit_breaker": cb.name,
			"state":           StateHalfOpen.String(),
		}).Info("Circuit breaker transitioned to half-open")
		fallthrough
	case StateHalfOpen:
		if cb.probeInFlight {
			cb.rejectedCount++
			return false, &CircuitBreakerError{Name: cb.name, State: StateHalfOpen}
		}
		cb.probeInFlight = true
		return true, nil
	default:
		return false, nil
	}
}

// record applies a call's outcome. An ignored outcome frees the probe slot
// and leaves the state as it was.
func (cb *CircuitBreaker) record(probe bool, result outcome) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probeInFlight = false
	}

	switch result {
	case outcomeIgnored:
		return
	case outcomeSuccess:
		if cb.state != StateClosed {
			cb.logger.WithField("circuit_breaker", cb.name).Info("Circuit breaker closed after successful probe")
		}
		cb.state = StateClosed
		cb.failures = 0
		return
	}

	cb.failures++
	cb.lastFailureTime = cb.now()
	if probe || cb.failures >= cb.maxFailures {
		cb.trip()
	}
}

// trip must be called with mu held
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"failures":        cb.failures,
		"state":           StateOpen.String(),
	}).Warn("Circuit breaker opened due to failures")
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		Name:            cb.name,
		State:           cb.state,
		Failures:        cb.failures,
		Requests:        cb.requestCount,
		Rejected:        cb.rejectedCount,
		LastFailureTime: cb.lastFailureTime,
	}
}

// Stats represents circuit breaker statistics
type Stats struct {
	Name            string
	State           State
	Failures        uint32
	Requests        uint64
	Rejected        uint64
	LastFailureTime time.Time
}

// CircuitBreakerError is returned without calling the upstream while the circuit is open
type CircuitBreakerError struct {
	Name  string
	State State
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is %s", e.Name, e.State)
}

// IsCircuitBreakerError checks if an error is a circuit breaker error
func IsCircuitBreakerError(err error) bool {
	var cbErr *CircuitBreakerError
	return errors.As(err, &cbErr)
}
