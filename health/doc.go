// Package health reports the health of configured admin API profiles.
//
// Each profile contributes checkers: a CircuitChecker that maps the
// profile's breaker state onto a Status without any I/O, and optionally a
// ProbeChecker that issues one uncached, unretried GET. An Aggregator runs
// the checkers concurrently under a shared timeout and rolls the results up:
// any unhealthy result makes the report unhealthy, any degraded result
// makes it degraded.
//
//	agg := health.NewAggregator()
//	agg.Register("prod/circuit", health.NewCircuitChecker(prod.Breaker()))
//	agg.Register("prod/probe", health.NewProbeChecker(prod, "/services/server/health"))
//	report := agg.CheckAll(ctx)
//
// The HTTP handlers expose a report for liveness and readiness probes.
package health
