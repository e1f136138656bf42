package cache

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

// ErrInvalidConfig is returned by New for an unusable configuration.
var ErrInvalidConfig = errors.New("cache: invalid config")

// Clock supplies the time used to stamp and expire entries.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// otterClock drives the store's own expiry from the cache Clock so both
// agree on when an entry lapses.
type otterClock struct {
	clock Clock
}

func (c otterClock) NowNano() int64 { return c.clock.Now().UnixNano() }

func (otterClock) Tick(d time.Duration) <-chan time.Time { return time.Tick(d) }

// Config configures a ResponseCache.
type Config struct {
	// Disabled starts the cache disabled.
	Disabled bool

	// DefaultTTL applies to GET paths no prefix rule matches. Zero means
	// unmatched paths are not cached.
	DefaultTTL time.Duration

	// MaxTTL clamps every entry TTL, including header max-age. Zero means
	// no clamp.
	MaxTTL time.Duration

	// MaxEntries bounds storage.
	// Default: 1024
	MaxEntries int

	// Policies maps path prefixes to policies. Longest prefix wins.
	Policies map[string]Policy

	// Clock stamps and expires entries. The backing store expires by the
	// same clock, so a frozen clock keeps entries alive.
	// Default: wall clock
	Clock Clock
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	EntryCount int
	Enabled    bool
	Hits       uint64
	Misses     uint64
	Evictions  uint64
}

// ResponseCache holds successful GET responses for one target.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Freshness: Get never returns an entry for which IsExpired(now) holds.
type ResponseCache struct {
	config  Config
	clock   Clock
	store   *otter.Cache[Key, Entry]
	counter *stats.Counter
	enabled atomic.Bool

	hits   atomic.Uint64
	misses atomic.Uint64

	mu       sync.RWMutex
	policies policyTable
}

// New creates a response cache.
func New(config Config) (*ResponseCache, error) {
	if config.DefaultTTL < 0 || config.MaxTTL < 0 {
		return nil, ErrInvalidConfig
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1024
	}
	opts := &otter.Options[Key, Entry]{
		MaximumSize: config.MaxEntries,
		ExpiryCalculator: otter.ExpiryCreatingFunc(func(e otter.Entry[Key, Entry]) time.Duration {
			return e.Value.TTL
		}),
	}
	clock := config.Clock
	if clock == nil {
		clock = wallClock{}
	} else {
		opts.Clock = otterClock{clock: clock}
	}

	counter := stats.NewCounter()
	opts.StatsRecorder = counter
	store, err := otter.New(opts)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	c := &ResponseCache{
		config:   config,
		clock:    clock,
		store:    store,
		counter:  counter,
		policies: newPolicyTable(config.Policies),
	}
	c.enabled.Store(!config.Disabled)
	return c, nil
}

// Get returns a fresh entry for key. Expired entries are dropped and
// reported as a miss.
func (c *ResponseCache) Get(key Key) (Entry, bool) {
	if !c.enabled.Load() {
		return Entry{}, false
	}

	e, ok := c.store.GetIfPresent(key)
	if !ok {
		c.misses.Add(1)
		return Entry{}, false
	}
	if e.IsExpired(c.clock.Now()) {
		c.store.Invalidate(key)
		c.misses.Add(1)
		return Entry{}, false
	}

	c.hits.Add(1)
	return e, true
}

// Insert stores entry under key. Entries with a non-positive TTL and inserts
// into a disabled cache are ignored.
func (c *ResponseCache) Insert(key Key, entry Entry) {
	if !c.enabled.Load() || entry.TTL <= 0 {
		return
	}
	c.store.Set(key, entry)
}

// Store builds an entry from a successful response and inserts it. The TTL
// is the Cache-Control max-age when present, otherwise the policy TTL.
// Responses marked no-store are skipped. It reports whether an entry was
// stored.
func (c *ResponseCache) Store(key Key, policy Policy, statusCode int, header http.Header, body []byte) (Entry, bool) {
	if !c.enabled.Load() || !policy.Cacheable() {
		return Entry{}, false
	}

	cc := ParseCacheControl(header)
	if cc.NoStore {
		return Entry{}, false
	}

	ttl := policy.EffectiveTTL(cc.MaxAge, cc.HasMaxAge, c.config.MaxTTL)
	if ttl <= 0 {
		return Entry{}, false
	}

	entry := NewEntry(statusCode, header, body, c.clock.Now(), ttl)
	c.Insert(key, entry)
	return entry, true
}

// Invalidate removes key. Idempotent.
func (c *ResponseCache) Invalidate(key Key) {
	c.store.Invalidate(key)
}

// InvalidateAll removes every entry.
func (c *ResponseCache) InvalidateAll() {
	c.store.InvalidateAll()
}

// IsEnabled reports whether the cache serves and stores entries.
func (c *ResponseCache) IsEnabled() bool {
	return c.enabled.Load()
}

// Enable turns the cache on.
func (c *ResponseCache) Enable() {
	c.enabled.Store(true)
}

// Disable turns the cache off. Stored entries are kept but not served.
func (c *ResponseCache) Disable() {
	c.enabled.Store(false)
}

// ShouldCacheRequest returns the policy for a request. Non-GET methods and a
// disabled cache always yield NoCache.
func (c *ResponseCache) ShouldCacheRequest(method, path string) Policy {
	if !c.enabled.Load() || method != http.MethodGet {
		return NoCache()
	}

	c.mu.RLock()
	p, ok := c.policies.lookup(path)
	c.mu.RUnlock()
	if ok {
		return p
	}
	return CacheWithTTL(c.config.DefaultTTL)
}

// SetPolicy sets the policy for a path prefix. Readers see either the old or
// the new table, never a partial update.
func (c *ResponseCache) SetPolicy(prefix string, p Policy) {
	c.mu.Lock()
	c.policies = c.policies.with(prefix, p)
	c.mu.Unlock()
}

// Stats returns current statistics.
func (c *ResponseCache) Stats() Stats {
	return Stats{
		EntryCount: c.store.EstimatedSize(),
		Enabled:    c.enabled.Load(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.counter.Snapshot().Evictions,
	}
}
