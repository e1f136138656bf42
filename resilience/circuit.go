package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the target recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
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

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Disabled turns the breaker into a pass-through: Allow always returns
	// true and recording is a no-op.
	Disabled bool

	// FailureThreshold is the number of failures inside FailureWindow that
	// opens the circuit.
	// Default: 5
	FailureThreshold int

	// FailureWindow is the trailing window failures are counted in.
	// Default: 60 seconds
	FailureWindow time.Duration

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenRequests is the number of trial requests allowed while half-open.
	// Default: 1
	HalfOpenRequests int

	// SuccessThreshold is the number of trial successes that close the
	// circuit. Clamped to HalfOpenRequests.
	// Default: 1
	SuccessThreshold int

	// OnStateChange is called when the circuit state changes. It runs with
	// the breaker lock held and must not call back into the breaker.
	OnStateChange func(from, to State)

	// Clock drives the window and reset timers.
	// Default: SystemClock
	Clock Clock
}

// CircuitBreaker tracks failures for one logical target and gates attempts.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	failures        []time.Time // failure timestamps inside the window, oldest first
	openedAt        time.Time
	probesRemaining int
	probeSuccesses  int
	lastFailure     time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.FailureWindow <= 0 {
		config.FailureWindow = 60 * time.Second
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenRequests <= 0 {
		config.HalfOpenRequests = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.SuccessThreshold > config.HalfOpenRequests {
		config.SuccessThreshold = config.HalfOpenRequests
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Enabled reports whether the breaker gates requests at all.
func (cb *CircuitBreaker) Enabled() bool {
	return !cb.config.Disabled
}

// Allow reports whether a new logical call may proceed. While half-open each
// allowed call consumes one probe slot.
func (cb *CircuitBreaker) Allow() bool {
	if cb.config.Disabled {
		return true
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.probesRemaining <= 0 {
			return false
		}
		cb.probesRemaining--
	}
	return true
}

// RecordSuccess records a successful attempt.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb.config.Disabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.currentStateLocked() != StateHalfOpen {
		return
	}

	cb.probeSuccesses++
	if cb.probeSuccesses >= cb.config.SuccessThreshold {
		cb.failures = cb.failures[:0]
		cb.setStateLocked(StateClosed)
	}
}

// RecordFailure records a failed attempt.
func (cb *CircuitBreaker) RecordFailure() {
	if cb.config.Disabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.config.Clock.Now()
	cb.lastFailure = now

	switch cb.currentStateLocked() {
	case StateClosed:
		cb.failures = append(cb.failures, now)
		cb.pruneLocked(now)
		if len(cb.failures) >= cb.config.FailureThreshold {
			cb.openedAt = now
			cb.setStateLocked(StateOpen)
		}

	case StateHalfOpen:
		// A failed probe reopens with a fresh timer.
		cb.openedAt = now
		cb.setStateLocked(StateOpen)

	case StateOpen:
		// Late completion of a call admitted before the circuit opened.
	}
}

// Abandon returns a half-open probe slot taken by Allow for a call that was
// cancelled before producing an outcome. Nothing is recorded.
func (cb *CircuitBreaker) Abandon() {
	if cb.config.Disabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.probesRemaining < cb.config.HalfOpenRequests {
		cb.probesRemaining++
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	if cb.config.Disabled {
		return StateClosed
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = cb.failures[:0]
	cb.setStateLocked(StateClosed)
}

// currentStateLocked applies the lazy Open -> HalfOpen transition.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && !cb.config.Clock.Now().Before(cb.openedAt.Add(cb.config.ResetTimeout)) {
		cb.setStateLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	old := cb.state
	cb.state = state

	switch state {
	case StateHalfOpen:
		cb.probesRemaining = cb.config.HalfOpenRequests
		cb.probeSuccesses = 0
	case StateClosed, StateOpen:
		cb.probesRemaining = 0
		cb.probeSuccesses = 0
	}

	if old != state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(old, state)
	}
}

func (cb *CircuitBreaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-cb.config.FailureWindow)
	i := 0
	for i < len(cb.failures) && !cb.failures[i].After(cutoff) {
		i++
	}
	if i > 0 {
		cb.failures = append(cb.failures[:0], cb.failures[i:]...)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := StateClosed
	if !cb.config.Disabled {
		state = cb.currentStateLocked()
		cb.pruneLocked(cb.config.Clock.Now())
	}

	return CircuitBreakerMetrics{
		State:           state,
		Failures:        len(cb.failures),
		ProbesRemaining: cb.probesRemaining,
		ProbeSuccesses:  cb.probeSuccesses,
		OpenedAt:        cb.openedAt,
		LastFailure:     cb.lastFailure,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State           State
	Failures        int
	ProbesRemaining int
	ProbeSuccesses  int
	OpenedAt        time.Time
	LastFailure     time.Time
}
