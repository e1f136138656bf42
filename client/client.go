package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jonwraymond/adminops/auth"
	"github.com/jonwraymond/adminops/cache"
	"github.com/jonwraymond/adminops/observe"
	"github.com/jonwraymond/adminops/resilience"
)

// DefaultMaxRetries is the retry budget used by Get, Post and Delete.
const DefaultMaxRetries = 3

// Options configures a Client for one profile.
type Options struct {
	// Profile names the target.
	Profile string

	// BaseURL is the scheme and host of the admin API.
	BaseURL string

	// Strategy selects session or static-token authentication. Nil sends
	// unauthenticated requests.
	Strategy auth.Strategy

	// Authenticator overrides the login handshake for session strategies.
	// Default: NewLoginHandshake against LoginPath
	Authenticator auth.Authenticator

	// LoginPath is the session login endpoint.
	// Default: DefaultLoginPath
	LoginPath string

	// SessionScheme prefixes session keys in the Authorization header.
	// Default: auth.SchemeSession
	SessionScheme string

	// SessionTTL and ExpiryBuffer configure the session token lifetime.
	SessionTTL   time.Duration
	ExpiryBuffer time.Duration

	// Transport sends requests.
	// Default: NewHTTPTransport(HTTPTransport)
	Transport     Transport
	HTTPTransport HTTPTransportConfig

	Retry     resilience.RetryConfig
	Breaker   resilience.CircuitBreakerConfig
	Cache     cache.Config
	RateLimit resilience.RateLimiterConfig
	Bulkhead  resilience.BulkheadConfig

	// AttemptTimeout bounds each transport attempt.
	// Default: 30 seconds
	AttemptTimeout time.Duration

	// MaxRetries is the budget for Get, Post and Delete. Zero selects the
	// default; a negative value disables retries.
	// Default: DefaultMaxRetries
	MaxRetries int

	// Middleware instruments calls.
	// Default: no-op telemetry
	Middleware *observe.Middleware

	// Clock is shared by the retry policy, breaker, cache and session.
	// Default: SystemClock
	Clock resilience.Clock

	UserAgent    string
	DefaultQuery []cache.Param
}

// Client is the per-profile request pipeline. It owns its breaker, cache
// and session; nothing is shared with other clients.
type Client struct {
	profile    string
	maxRetries int
	clock      resilience.Clock

	exec    *Executor
	breaker *resilience.CircuitBreaker
	cache   *cache.ResponseCache
	session *auth.SessionState
	limiter *resilience.RateLimiter
	bulk    *resilience.Bulkhead
}

// New wires a Client from opts.
func New(opts Options) (*Client, error) {
	if opts.Clock == nil {
		opts.Clock = resilience.SystemClock{}
	}
	if opts.Middleware == nil {
		opts.Middleware = observe.NewMiddleware(nil, nil, nil)
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Transport == nil {
		opts.Transport = NewHTTPTransport(opts.HTTPTransport)
	}

	c := &Client{
		profile:    opts.Profile,
		maxRetries: resilience.ClampRetries(opts.MaxRetries),
		clock:      opts.Clock,
	}

	if opts.Retry.Clock == nil {
		opts.Retry.Clock = opts.Clock
	}
	retry := resilience.NewRetryPolicy(opts.Retry)

	if opts.Breaker.Clock == nil {
		opts.Breaker.Clock = opts.Clock
	}
	c.breaker = resilience.NewCircuitBreaker(withTransitions(opts.Breaker, opts.Profile, opts.Middleware))

	if opts.Cache.Clock == nil {
		opts.Cache.Clock = opts.Clock
	}
	rc, err := cache.New(opts.Cache)
	if err != nil {
		return nil, err
	}
	c.cache = rc

	if opts.Strategy != nil {
		authn := opts.Authenticator
		if authn == nil {
			switch opts.Strategy.(type) {
			case auth.SessionToken, *auth.SessionToken:
				authn, err = NewLoginHandshake(LoginConfig{
					Transport: opts.Transport,
					BaseURL:   opts.BaseURL,
					Path:      opts.LoginPath,
					Timeout:   opts.AttemptTimeout,
				})
				if err != nil {
					return nil, err
				}
			}
		}
		c.session, err = auth.NewSessionState(auth.SessionConfig{
			Strategy:      opts.Strategy,
			Authenticator: authn,
			Scheme:        opts.SessionScheme,
			TTL:           opts.SessionTTL,
			ExpiryBuffer:  opts.ExpiryBuffer,
			LoginTimeout:  opts.AttemptTimeout,
			Clock:         opts.Clock,
		})
		if err != nil {
			return nil, err
		}
	}

	c.limiter = resilience.NewRateLimiter(opts.RateLimit)
	c.bulk = resilience.NewBulkhead(opts.Bulkhead)

	c.exec, err = NewExecutor(ExecutorConfig{
		Profile:        opts.Profile,
		BaseURL:        opts.BaseURL,
		Transport:      opts.Transport,
		Retry:          retry,
		Breaker:        c.breaker,
		Cache:          c.cache,
		Session:        c.session,
		RateLimiter:    c.limiter,
		Bulkhead:       c.bulk,
		Middleware:     opts.Middleware,
		Clock:          opts.Clock,
		AttemptTimeout: opts.AttemptTimeout,
		DefaultQuery:   opts.DefaultQuery,
		UserAgent:      opts.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// withTransitions chains breaker state changes into the log and metrics.
func withTransitions(cfg resilience.CircuitBreakerConfig, profile string, mw *observe.Middleware) resilience.CircuitBreakerConfig {
	next := cfg.OnStateChange
	log := mw.Logger().With(observe.Field{Key: "profile", Value: profile})
	metrics := mw.Metrics()

	cfg.OnStateChange = func(from, to resilience.State) {
		ctx := context.Background()
		log.Warn(ctx, "circuit state changed",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		metrics.RecordCircuitTransition(ctx, profile, from.String(), to.String())
		if next != nil {
			next(from, to)
		}
	}
	return cfg
}

// Profile returns the profile name.
func (c *Client) Profile() string { return c.profile }

// Breaker returns the client's circuit breaker.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.breaker }

// Cache returns the client's response cache.
func (c *Client) Cache() *cache.ResponseCache { return c.cache }

// Session returns the client's session state, or nil when unauthenticated.
func (c *Client) Session() *auth.SessionState { return c.session }

// Execute runs spec with the client's default retry budget.
func (c *Client) Execute(ctx context.Context, spec RequestSpec) (*Response, error) {
	return c.exec.Execute(ctx, spec, c.maxRetries)
}

// ExecuteWithRetries runs spec with an explicit retry budget.
func (c *Client) ExecuteWithRetries(ctx context.Context, spec RequestSpec, maxRetries int) (*Response, error) {
	return c.exec.Execute(ctx, spec, maxRetries)
}

// Get issues a GET for path.
func (c *Client) Get(ctx context.Context, path string, query ...cache.Param) (*Response, error) {
	return c.Execute(ctx, RequestSpec{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a form-encoded POST for path.
func (c *Client) Post(ctx context.Context, path string, form url.Values) (*Response, error) {
	return c.Execute(ctx, RequestSpec{Method: http.MethodPost, Path: path}.Form(form))
}

// Delete issues a DELETE for path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Execute(ctx, RequestSpec{Method: http.MethodDelete, Path: path})
}

// Login forces a fresh session login. It is a no-op for static tokens.
func (c *Client) Login(ctx context.Context) error {
	if c.session == nil {
		return nil
	}
	return c.session.Login(ctx)
}
