package embedding

import (
	"sync"
	"time"
)

// breakerState is one of the three states in spec §4.C's circuit breaker.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// failureWindow bounds a run of consecutive failures: a failure arriving
// more than failureWindow after the previous one starts a new run.
const failureWindow = 30 * time.Second

// CircuitBreaker trips to Open after a run of consecutive provider
// failures within failureWindow, short-circuiting further calls until a cooldown elapses; it
// then allows one trial call (Half-Open) to decide whether to close again
// or reopen.
type CircuitBreaker struct {
	mu sync.Mutex

	state            breakerState
	failureThreshold int
	cooldown         time.Duration

	consecutiveFailures int
	lastFailureAt       time.Time
	openedAt            time.Time
}

// NewCircuitBreaker builds a breaker that opens after failureThreshold
// consecutive failures and stays open for cooldown before probing again.
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{failureThreshold: failureThreshold, cooldown: cooldown}
}

// Allow reports whether a call should be attempted right now. It
// transitions Open -> HalfOpen once the cooldown has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = breakerHalfOpen
			return true
		}
		return false
	case breakerHalfOpen:
		return true
	}
	return true
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.consecutiveFailures = 0
}

// RecordFailure increments the failure count, opening the breaker once the
// threshold is reached (or immediately, if the failing call was the
// Half-Open trial).
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = time.Now()
		return
	}

	now := time.Now()
	if !b.lastFailureAt.IsZero() && now.Sub(b.lastFailureAt) > failureWindow {
		b.consecutiveFailures = 0
	}
	b.lastFailureAt = now
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.failureThreshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
	}
}

// State reports the breaker's current state as a string, for diagnostics.
func (b *CircuitBreaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	}
	return "unknown"
}
