// Package circuit implements a per-dependency circuit breaker state
// machine (CLOSED/OPEN/HALF_OPEN) plus a process-wide registry, grounded on
// the mutex-guarded shared-counter pattern the teacher uses around its
// concurrent chunk bookkeeping (graph.Builder.Build's mu sync.Mutex
// protecting shared counters while the wrapped work runs outside the lock).
package circuit

import (
	"fmt"
	"sync"
	"time"
)

// State is a closed set of circuit breaker states.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// OpenError is returned when a call is rejected because the circuit is open.
type OpenError struct {
	Name             string
	RecoveryRemaining time.Duration
}

func (e *OpenError) Error() string {
	if e.RecoveryRemaining > 0 {
		return fmt.Sprintf("circuit %q is open, recovery in %s", e.Name, e.RecoveryRemaining.Round(time.Millisecond))
	}
	return fmt.Sprintf("circuit %q is open", e.Name)
}

// Config configures a Breaker.
type Config struct {
	Name               string
	FailureThreshold   int
	RecoveryTimeout    time.Duration
	HalfOpenMaxCalls   int
	AllowedExceptions  []func(error) bool
}

// Breaker is a single named circuit breaker. The zero value is not usable;
// construct with New.
type Breaker struct {
	cfg Config

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	halfOpenCalls   int
	lastFailureTime time.Time
	stateChangeTime time.Time
}

// New constructs a Breaker in the CLOSED state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	return &Breaker{cfg: cfg, state: StateClosed, stateChangeTime: time.Now()}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to CLOSED, clearing counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
	b.failureCount = 0
	b.halfOpenCalls = 0
}

// transitionTo must be called with b.mu held.
func (b *Breaker) transitionTo(s State) {
	b.state = s
	b.stateChangeTime = time.Now()
}

// admit decides, under the lock, whether a call may proceed, possibly
// moving the breaker from OPEN to HALF_OPEN. It returns a non-nil error
// only if the call must be rejected.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if !b.lastFailureTime.IsZero() && time.Since(b.lastFailureTime) >= b.cfg.RecoveryTimeout {
			b.transitionTo(StateHalfOpen)
			b.halfOpenCalls = 1
			return nil
		}
		remaining := b.cfg.RecoveryTimeout - time.Since(b.lastFailureTime)
		return &OpenError{Name: b.cfg.Name, RecoveryRemaining: remaining}

	case StateHalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			return &OpenError{Name: b.cfg.Name}
		}
		b.halfOpenCalls++
		return nil

	default: // StateClosed
		return nil
	}
}

// isAllowed reports whether err is in the allowed-exceptions list, meaning
// it propagates without counting as a breaker failure.
func (b *Breaker) isAllowed(err error) bool {
	for _, pred := range b.cfg.AllowedExceptions {
		if pred(err) {
			return true
		}
	}
	return false
}

// recordSuccess must be called without the lock held.
func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successCount++
	switch b.state {
	case StateHalfOpen:
		b.transitionTo(StateClosed)
		b.failureCount = 0
		b.halfOpenCalls = 0
	case StateClosed:
		b.failureCount = 0
	}
}

// recordFailure must be called without the lock held.
func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateHalfOpen:
		b.transitionTo(StateOpen)
		b.halfOpenCalls = 0
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	}
}

// Execute runs fn protected by the breaker. If the circuit is open (and no
// fallback is given), an *OpenError is returned without invoking fn or
// fallback. The wrapped call itself always runs outside the breaker's lock.
func Execute[T any](b *Breaker, fn func() (T, error), fallback func() (T, error)) (T, error) {
	var zero T

	if err := b.admit(); err != nil {
		if fallback != nil {
			return fallback()
		}
		return zero, err
	}

	val, err := fn()
	if err == nil {
		b.recordSuccess()
		return val, nil
	}

	if b.isAllowed(err) {
		return zero, err
	}

	b.recordFailure()
	return zero, err
}

// Registry is a process-wide map from breaker name to *Breaker, so the
// same logical dependency shares one breaker (spec.md §4.3 and §9 "Global
// circuit-breaker registry"). The zero value is ready to use.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
}

var global = &Registry{}

// Global returns the package-wide singleton registry.
func Global() *Registry { return global }

// GetOrCreate returns the named breaker, constructing it with cfg on first
// use. Subsequent calls for the same name ignore cfg and return the
// existing breaker.
func (r *Registry) GetOrCreate(cfg Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.breakers == nil {
		r.breakers = make(map[string]*Breaker)
	}
	if b, ok := r.breakers[cfg.Name]; ok {
		return b
	}
	b := New(cfg)
	r.breakers[cfg.Name] = b
	return b
}

// Get returns the named breaker if it has been created, or false.
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	return b, ok
}
