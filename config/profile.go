package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/jonwraymond/adminops/auth"
	"github.com/jonwraymond/adminops/cache"
	"github.com/jonwraymond/adminops/client"
	"github.com/jonwraymond/adminops/resilience"
	"github.com/jonwraymond/adminops/secret"
)

// Profile is the configuration of one target.
type Profile struct {
	// Name is set by LoadProfile.
	Name string

	URL string `env:"URL, required"`

	// Credentials. Either Token or Username+Password, or none.
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	Token    string `env:"TOKEN"`

	InsecureSkipVerify bool          `env:"INSECURE_SKIP_VERIFY, default=false"`
	LoginPath          string        `env:"LOGIN_PATH, default=/services/auth/login"`
	SessionScheme      string        `env:"SESSION_SCHEME, default=Splunk"`
	HealthPath         string        `env:"HEALTH_PATH, default=/services/server/health/splunkd"`
	AttemptTimeout     time.Duration `env:"ATTEMPT_TIMEOUT, default=30s"`
	MaxRetries         int           `env:"MAX_RETRIES, default=3"`
	SessionTTL         time.Duration `env:"SESSION_TTL, default=1h"`
	ExpiryBuffer       time.Duration `env:"SESSION_EXPIRY_BUFFER, default=60s"`
	OutputMode         string        `env:"OUTPUT_MODE, default=json"`

	Retry     RetrySettings     `env:", prefix=RETRY_"`
	Breaker   BreakerSettings   `env:", prefix=BREAKER_"`
	Cache     CacheSettings     `env:", prefix=CACHE_"`
	RateLimit RateLimitSettings `env:", prefix=RATE_LIMIT_"`

	MaxConcurrent int `env:"MAX_CONCURRENT, default=0"`
}

// RetrySettings configures backoff.
type RetrySettings struct {
	BaseDelay     time.Duration `env:"BASE_DELAY, default=1s"`
	MaxDelay      time.Duration `env:"MAX_DELAY, default=60s"`
	Strategy      string        `env:"STRATEGY, default=exponential"`
	Jitter        bool          `env:"JITTER, default=false"`
	MaxRetryAfter time.Duration `env:"MAX_RETRY_AFTER, default=5m"`
}

// BreakerSettings configures the circuit breaker.
type BreakerSettings struct {
	Enabled          bool          `env:"ENABLED, default=true"`
	FailureThreshold int           `env:"FAILURE_THRESHOLD, default=5"`
	FailureWindow    time.Duration `env:"FAILURE_WINDOW, default=60s"`
	ResetTimeout     time.Duration `env:"RESET_TIMEOUT, default=30s"`
	HalfOpenRequests int           `env:"HALF_OPEN_REQUESTS, default=1"`
	SuccessThreshold int           `env:"SUCCESS_THRESHOLD, default=1"`
}

// CacheSettings configures the response cache.
type CacheSettings struct {
	Enabled    bool          `env:"ENABLED, default=true"`
	DefaultTTL time.Duration `env:"DEFAULT_TTL, default=60s"`
	MaxTTL     time.Duration `env:"MAX_TTL, default=0s"`
	MaxEntries int           `env:"MAX_ENTRIES, default=1024"`
	Policies   PathPolicies  `env:"POLICIES"`
}

// RateLimitSettings configures client-side pacing. Rate 0 disables it.
type RateLimitSettings struct {
	Rate    float64       `env:"RATE, default=0"`
	Burst   int           `env:"BURST, default=1"`
	MaxWait time.Duration `env:"MAX_WAIT, default=30s"`
}

// LoadProfile reads one profile from lookup under ADMINOPS_<NAME>_ and
// resolves its credential references.
func LoadProfile(ctx context.Context, name string, lookup envconfig.Lookuper) (Profile, error) {
	if !profileNamePattern.MatchString(name) {
		return Profile{}, fmt.Errorf("%w: %q", ErrInvalidProfileName, name)
	}
	if lookup == nil {
		lookup = envconfig.OsLookuper()
	}

	var p Profile
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &p,
		Lookuper: envconfig.PrefixLookuper(envPrefix(name), lookup),
	}); err != nil {
		return p, fmt.Errorf("profile %q: %w", name, err)
	}
	p.Name = name

	resolver := secret.DefaultResolver(lookup.Lookup)
	for _, field := range []*string{&p.URL, &p.Username, &p.Password, &p.Token} {
		v, err := resolver.ResolveValue(ctx, *field)
		if err != nil {
			return p, fmt.Errorf("profile %q: %w", name, err)
		}
		*field = v
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("profile %q: %w", name, err)
	}
	return p, nil
}

// Validate checks value ranges and credential combinations.
func (p *Profile) Validate() error {
	if p.Token != "" && p.Username != "" {
		return ErrAmbiguousCredentials
	}
	if p.Username != "" && p.Password == "" {
		return ErrIncompleteCredentials
	}
	if p.MaxRetries < 0 || p.MaxRetries > resilience.MaxRetriesCap {
		return fmt.Errorf("%w: MAX_RETRIES must be within [0, %d], got %d", ErrInvalidValue, resilience.MaxRetriesCap, p.MaxRetries)
	}
	if p.AttemptTimeout <= 0 {
		return fmt.Errorf("%w: ATTEMPT_TIMEOUT must be positive", ErrInvalidValue)
	}
	if _, err := p.Retry.strategy(); err != nil {
		return err
	}
	if p.Breaker.SuccessThreshold > p.Breaker.HalfOpenRequests {
		return fmt.Errorf("%w: BREAKER_SUCCESS_THRESHOLD exceeds BREAKER_HALF_OPEN_REQUESTS", ErrInvalidValue)
	}
	return nil
}

// Strategy returns the profile's auth strategy, or nil for an
// unauthenticated profile.
func (p *Profile) Strategy() auth.Strategy {
	switch {
	case p.Token != "":
		return auth.APIToken{Token: p.Token}
	case p.Username != "":
		return auth.SessionToken{Username: p.Username, Password: p.Password}
	default:
		return nil
	}
}

func (r RetrySettings) strategy() (resilience.BackoffStrategy, error) {
	switch r.Strategy {
	case "", "exponential":
		return resilience.BackoffExponential, nil
	case "linear":
		return resilience.BackoffLinear, nil
	case "constant":
		return resilience.BackoffConstant, nil
	default:
		return 0, fmt.Errorf("%w: RETRY_STRATEGY %q", ErrInvalidValue, r.Strategy)
	}
}

// ClientOptions maps the profile onto client.Options. Transport, clock and
// middleware are left for the caller.
func (p *Profile) ClientOptions() (client.Options, error) {
	strategy, err := p.Retry.strategy()
	if err != nil {
		return client.Options{}, err
	}

	var query []cache.Param
	if p.OutputMode != "" {
		query = []cache.Param{{Name: "output_mode", Value: p.OutputMode}}
	}

	return client.Options{
		Profile:       p.Name,
		BaseURL:       p.URL,
		Strategy:      p.Strategy(),
		LoginPath:     p.LoginPath,
		SessionScheme: p.SessionScheme,
		SessionTTL:    p.SessionTTL,
		ExpiryBuffer:  p.ExpiryBuffer,
		HTTPTransport: client.HTTPTransportConfig{InsecureSkipVerify: p.InsecureSkipVerify},
		Retry: resilience.RetryConfig{
			BaseDelay:     p.Retry.BaseDelay,
			MaxDelay:      p.Retry.MaxDelay,
			Strategy:      strategy,
			Jitter:        p.Retry.Jitter,
			MaxRetryAfter: p.Retry.MaxRetryAfter,
		},
		Breaker: resilience.CircuitBreakerConfig{
			Disabled:         !p.Breaker.Enabled,
			FailureThreshold: p.Breaker.FailureThreshold,
			FailureWindow:    p.Breaker.FailureWindow,
			ResetTimeout:     p.Breaker.ResetTimeout,
			HalfOpenRequests: p.Breaker.HalfOpenRequests,
			SuccessThreshold: p.Breaker.SuccessThreshold,
		},
		Cache: cache.Config{
			Disabled:   !p.Cache.Enabled,
			DefaultTTL: p.Cache.DefaultTTL,
			MaxTTL:     p.Cache.MaxTTL,
			MaxEntries: p.Cache.MaxEntries,
			Policies:   p.Cache.Policies,
		},
		RateLimit: resilience.RateLimiterConfig{
			Rate:    p.RateLimit.Rate,
			Burst:   p.RateLimit.Burst,
			MaxWait: p.RateLimit.MaxWait,
		},
		Bulkhead:       resilience.BulkheadConfig{MaxConcurrent: p.MaxConcurrent},
		AttemptTimeout: p.AttemptTimeout,
		MaxRetries:     p.clientMaxRetries(),
		DefaultQuery:   query,
	}, nil
}

// clientMaxRetries maps an explicit zero onto client.Options' "no retries".
func (p *Profile) clientMaxRetries() int {
	if p.MaxRetries == 0 {
		return -1
	}
	return p.MaxRetries
}
