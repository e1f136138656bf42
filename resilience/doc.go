// Package resilience provides the failure-handling building blocks of the
// admin API request pipeline.
//
// # Patterns
//
//   - RetryPolicy: classifies a transport outcome (success, retryable,
//     non-retryable, auth failure, rate limited) and computes backoff delays.
//
//   - CircuitBreaker: counts failures in a trailing window and fails fast
//     while a target is known to be down, probing it again after a cool-off.
//
//   - RateLimiter: paces attempts against one target.
//
//   - Bulkhead: bounds concurrent logical calls against one target.
//
//   - Poll: repeats a check until it completes or an overall deadline passes.
//
// All time-dependent pieces take a Clock, so tests can use a ManualClock and
// assert exact backoff schedules.
//
// # Usage
//
//	policy := resilience.NewRetryPolicy(resilience.RetryConfig{
//	    BaseDelay: time.Second,
//	})
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    FailureWindow:    time.Minute,
//	    ResetTimeout:     30 * time.Second,
//	})
//
//	if !cb.Allow() {
//	    return resilience.ErrCircuitOpen
//	}
//	c := policy.Classify(resilience.Outcome{StatusCode: 503})
//	if c.Class == resilience.ClassRetryable {
//	    cb.RecordFailure()
//	    delay := policy.BackoffDelay(1)
//	    ...
//	}
package resilience
