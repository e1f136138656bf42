package cache

import (
	"sort"
	"strings"
	"time"
)

// Policy says whether a request path is cacheable and for how long.
// The zero value is NoCache.
type Policy struct {
	ttl time.Duration
}

// NoCache returns the policy that disables caching.
func NoCache() Policy {
	return Policy{}
}

// CacheWithTTL returns a policy caching for ttl. A non-positive ttl is
// NoCache.
func CacheWithTTL(ttl time.Duration) Policy {
	if ttl <= 0 {
		return Policy{}
	}
	return Policy{ttl: ttl}
}

// Cacheable reports whether the policy caches at all.
func (p Policy) Cacheable() bool {
	return p.ttl > 0
}

// TTL returns the configured TTL, zero for NoCache.
func (p Policy) TTL() time.Duration {
	return p.ttl
}

// String returns "no-cache" or "ttl=<d>".
func (p Policy) String() string {
	if !p.Cacheable() {
		return "no-cache"
	}
	return "ttl=" + p.ttl.String()
}

// EffectiveTTL returns the TTL for a response: the header max-age when
// present, otherwise the policy TTL. maxTTL > 0 clamps the result.
func (p Policy) EffectiveTTL(headerMaxAge time.Duration, hasMaxAge bool, maxTTL time.Duration) time.Duration {
	ttl := p.ttl
	if hasMaxAge {
		ttl = headerMaxAge
	}
	if maxTTL > 0 && ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl
}

type prefixRule struct {
	prefix string
	policy Policy
}

// policyTable is an immutable prefix table, longest prefix first.
type policyTable []prefixRule

func newPolicyTable(policies map[string]Policy) policyTable {
	t := make(policyTable, 0, len(policies))
	for prefix, p := range policies {
		t = append(t, prefixRule{prefix: prefix, policy: p})
	}
	t.sort()
	return t
}

func (t policyTable) sort() {
	sort.Slice(t, func(i, j int) bool {
		if len(t[i].prefix) != len(t[j].prefix) {
			return len(t[i].prefix) > len(t[j].prefix)
		}
		return t[i].prefix < t[j].prefix
	})
}

// lookup returns the policy of the longest matching prefix.
func (t policyTable) lookup(path string) (Policy, bool) {
	for _, r := range t {
		if strings.HasPrefix(path, r.prefix) {
			return r.policy, true
		}
	}
	return Policy{}, false
}

// with returns a copy of t with prefix set to p.
func (t policyTable) with(prefix string, p Policy) policyTable {
	out := make(policyTable, 0, len(t)+1)
	for _, r := range t {
		if r.prefix != prefix {
			out = append(out, r)
		}
	}
	out = append(out, prefixRule{prefix: prefix, policy: p})
	out.sort()
	return out
}
