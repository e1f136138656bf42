// Package cache stores recent successful GET responses for one API target.
//
// Responses are keyed by normalized request identity (Key), so two requests
// for the same URL with the same query parameters in a different order share
// an entry. Per-path TTLs come from a prefix table of Policy values; a
// Cache-Control max-age on the response overrides the configured TTL.
//
// Freshness is evaluated on every read against an injectable Clock, so an
// expired entry is never returned even while it still occupies storage.
// Storage itself is bounded and swept by otter.
package cache
