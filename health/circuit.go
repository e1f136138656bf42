package health

import (
	"context"

	"github.com/jonwraymond/adminops/resilience"
)

// CircuitChecker reports a circuit breaker's state. It performs no I/O.
//
//   - closed:    healthy
//   - half-open: degraded (the target is being probed)
//   - open:      unhealthy
type CircuitChecker struct {
	breaker *resilience.CircuitBreaker
}

// NewCircuitChecker creates a checker for breaker.
func NewCircuitChecker(breaker *resilience.CircuitBreaker) *CircuitChecker {
	return &CircuitChecker{breaker: breaker}
}

// Check reads the breaker state.
func (c *CircuitChecker) Check(context.Context) Result {
	if !c.breaker.Enabled() {
		return Healthy("circuit breaker disabled")
	}

	m := c.breaker.Metrics()
	details := map[string]any{
		"state":    m.State.String(),
		"failures": m.Failures,
	}
	if !m.LastFailure.IsZero() {
		details["last_failure"] = m.LastFailure
	}

	switch m.State {
	case resilience.StateOpen:
		details["opened_at"] = m.OpenedAt
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		details["probes_remaining"] = m.ProbesRemaining
		return Degraded("circuit half-open").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}
