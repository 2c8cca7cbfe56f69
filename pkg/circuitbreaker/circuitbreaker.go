// Package circuitbreaker guards outbound calls (the event broker, mostly)
// with a failure-counting breaker: trip after consecutive failures, reject
// while open, probe once after a cooldown.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without invoking the call while the breaker is open.
var ErrOpen = errors.New("circuit breaker open")

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type Settings struct {
	// Name identifies the breaker in state-change callbacks, typically
	// the guarded channel or endpoint.
	Name string
	// FailureThreshold is the consecutive-failure count that trips the
	// breaker. Zero means 5.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before letting one
	// probe call through. Zero means 30s.
	Cooldown time.Duration
	// OnStateChange, when set, fires on every transition.
	OnStateChange func(name string, from, to State)
}

type CircuitBreaker struct {
	settings Settings

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

func New(settings Settings) *CircuitBreaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{settings: settings, state: StateClosed}
}

// State reports the current state, accounting for an elapsed cooldown.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.settings.Cooldown {
		return StateHalfOpen
	}
	return cb.state
}

// Execute runs fn unless the breaker is open. A success in half-open closes
// the breaker; any failure past the threshold opens it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) <= cb.settings.Cooldown {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.transition(StateHalfOpen)
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.settings.FailureThreshold {
			cb.transition(StateOpen)
		}
		return err
	}

	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
	cb.failures = 0
	return nil
}

// transition must be called with the mutex held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}
