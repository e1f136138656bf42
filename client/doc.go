// Package client turns logical API calls into resilient network operations.
//
// Every call funnels through Executor.Execute, which consults the response
// cache, gates on the circuit breaker, then runs a bounded attempt loop that
// retries transient failures with backoff, honors Retry-After on 429 and
// transparently re-authenticates a session once when the target rejects the
// token. Failures surface only as the typed errors in this package; use
// KindOf or errors.As to branch on them.
//
// Client bundles one executor with the per-profile state it depends on:
// breaker, cache and session are owned by the Client and never shared across
// profiles. FanOut runs one call per profile concurrently with isolated
// failures.
package client
