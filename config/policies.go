package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonwraymond/adminops/cache"
)

// PathPolicies is the cache path-prefix table. The environment form is a
// comma-separated list of prefix=policy pairs where policy is a duration or
// "no-cache":
//
//	/services/server/info=5m,/services/search/jobs=no-cache
type PathPolicies map[string]cache.Policy

// EnvDecode implements envconfig.Decoder.
func (p *PathPolicies) EnvDecode(val string) error {
	out := PathPolicies{}
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		prefix, raw, ok := strings.Cut(item, "=")
		prefix, raw = strings.TrimSpace(prefix), strings.TrimSpace(raw)
		if !ok || !strings.HasPrefix(prefix, "/") || raw == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPolicy, item)
		}

		if raw == "no-cache" {
			out[prefix] = cache.NoCache()
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidPolicy, item)
		}
		out[prefix] = cache.CacheWithTTL(d)
	}
	*p = out
	return nil
}

// String renders the table in its environment form, sorted by prefix.
func (p PathPolicies) String() string {
	prefixes := make([]string, 0, len(p))
	for k := range p {
		prefixes = append(prefixes, k)
	}
	sort.Strings(prefixes)

	parts := make([]string, 0, len(p))
	for _, k := range prefixes {
		v := "no-cache"
		if p[k].Cacheable() {
			v = p[k].TTL().String()
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}
