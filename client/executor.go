package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/adminops/auth"
	"github.com/jonwraymond/adminops/cache"
	"github.com/jonwraymond/adminops/observe"
	"github.com/jonwraymond/adminops/resilience"
)

// RequestIDHeader carries the client-generated request id.
const RequestIDHeader = "X-Request-Id"

// ExecutorConfig wires an Executor. Transport, Retry and Breaker are
// required; the rest is optional.
type ExecutorConfig struct {
	// Profile names the target in errors and telemetry.
	Profile string

	// BaseURL is the scheme and host (plus optional path prefix) of the
	// target.
	BaseURL string

	Transport Transport
	Retry     *resilience.RetryPolicy
	Breaker   *resilience.CircuitBreaker

	// Cache serves and stores GET responses. Nil disables caching.
	Cache *cache.ResponseCache

	// Session supplies credentials. Nil sends requests unauthenticated.
	Session *auth.SessionState

	// RateLimiter paces attempts. Nil disables pacing.
	RateLimiter *resilience.RateLimiter

	// Bulkhead bounds concurrent logical calls. Nil disables the bound.
	Bulkhead *resilience.Bulkhead

	// Middleware instruments each logical call.
	// Default: no-op telemetry
	Middleware *observe.Middleware

	// Clock drives backoff sleeps.
	// Default: SystemClock
	Clock resilience.Clock

	// AttemptTimeout bounds each transport attempt.
	// Default: 30 seconds
	AttemptTimeout time.Duration

	// DefaultQuery is appended to every request, e.g. output_mode=json.
	DefaultQuery []cache.Param

	// UserAgent is sent on every request.
	UserAgent string

	// NewRequestID generates request ids.
	// Default: uuid.NewString
	NewRequestID func() string
}

// Executor runs logical calls through cache, breaker, auth and retry.
//
// Contract:
// - Concurrency: safe for concurrent use; attempts within one call are
//   strictly sequential.
// - Cancellation: a cancelled call returns the context error and records no
//   outcome for the interrupted attempt.
type Executor struct {
	config  ExecutorConfig
	base    *url.URL
	mw      *observe.Middleware
	clock   resilience.Clock
	metrics observe.Metrics
}

// ErrInvalidExecutorConfig is returned by NewExecutor for missing wiring.
var ErrInvalidExecutorConfig = errors.New("client: invalid executor config")

// NewExecutor validates config and creates an Executor.
func NewExecutor(config ExecutorConfig) (*Executor, error) {
	if config.Transport == nil || config.Retry == nil || config.Breaker == nil {
		return nil, ErrInvalidExecutorConfig
	}

	base, err := parseBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	if config.Middleware == nil {
		config.Middleware = observe.NewMiddleware(nil, nil, nil)
	}
	if config.Clock == nil {
		config.Clock = resilience.SystemClock{}
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 30 * time.Second
	}
	if config.NewRequestID == nil {
		config.NewRequestID = uuid.NewString
	}

	return &Executor{
		config:  config,
		base:    base,
		mw:      config.Middleware,
		clock:   config.Clock,
		metrics: config.Middleware.Metrics(),
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &InvalidURLError{URL: raw, Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidURLError{URL: raw, Message: "scheme must be http or https"}
	}
	if u.Host == "" {
		return nil, &InvalidURLError{URL: raw, Message: "missing host"}
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// resolve joins the spec path and query onto the base URL.
func (e *Executor) resolve(spec RequestSpec) (string, error) {
	if strings.Contains(spec.Path, "?") {
		return "", &InvalidURLError{URL: spec.Path, Message: "query belongs in RequestSpec.Query"}
	}

	u := e.base.JoinPath(spec.Path)

	params := make([]string, 0, len(spec.Query)+len(e.config.DefaultQuery))
	for _, p := range spec.Query {
		params = append(params, url.QueryEscape(p.Name)+"="+url.QueryEscape(p.Value))
	}
	for _, p := range e.config.DefaultQuery {
		params = append(params, url.QueryEscape(p.Name)+"="+url.QueryEscape(p.Value))
	}
	u.RawQuery = strings.Join(params, "&")

	return u.String(), nil
}

// Execute runs one logical call with up to maxRetries retries (clamped to
// [0, resilience.MaxRetriesCap]).
func (e *Executor) Execute(ctx context.Context, spec RequestSpec, maxRetries int) (*Response, error) {
	if spec.Method == "" {
		spec.Method = http.MethodGet
	}
	maxRetries = resilience.ClampRetries(maxRetries)

	meta := observe.CallMeta{
		Profile:   e.config.Profile,
		Method:    spec.Method,
		Path:      spec.Path,
		Operation: spec.Operation,
		RequestID: e.config.NewRequestID(),
	}

	var resp *Response
	err := e.mw.Wrap(func(ctx context.Context, meta observe.CallMeta) error {
		var err error
		resp, err = e.run(ctx, spec, meta, maxRetries)
		return err
	})(ctx, meta)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// call is the state of one logical call.
type call struct {
	e          *Executor
	spec       RequestSpec
	meta       observe.CallMeta
	log        observe.Logger
	url        string
	maxRetries int

	token    auth.Token
	hasToken bool

	// settled is set once an outcome was recorded on the breaker.
	settled bool

	transportAttempts int
}

func (e *Executor) run(ctx context.Context, spec RequestSpec, meta observe.CallMeta, maxRetries int) (*Response, error) {
	fullURL, err := e.resolve(spec)
	if err != nil {
		return nil, err
	}

	c := &call{
		e:          e,
		spec:       spec,
		meta:       meta,
		log:        e.mw.Logger().WithCall(meta),
		url:        fullURL,
		maxRetries: maxRetries,
	}

	policy := cache.NoCache()
	var key cache.Key
	if e.config.Cache != nil && spec.Method == http.MethodGet && !spec.NoCache {
		policy = e.config.Cache.ShouldCacheRequest(spec.Method, spec.Path)
		if policy.Cacheable() {
			key = cache.NewKey(fullURL, nil)
			if entry, ok := e.config.Cache.Get(key); ok {
				c.log.Debug(ctx, "cache hit", observe.Field{Key: "cache_key", Value: key.Digest()})
				trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("adminops.cache_hit", true))
				return &Response{
					StatusCode: entry.StatusCode,
					Header:     entry.HTTPHeader(),
					Body:       entry.Body,
					FromCache:  true,
					RequestID:  meta.RequestID,
				}, nil
			}
		}
	}

	release, err := e.config.Bulkhead.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if !e.config.Breaker.Allow() {
		c.log.Warn(ctx, "circuit open, failing fast")
		return nil, &CircuitOpenError{Profile: e.config.Profile}
	}
	defer func() {
		if !c.settled {
			e.config.Breaker.Abandon()
		}
	}()

	resp, err := c.attemptLoop(ctx)
	if err != nil {
		return nil, err
	}

	if policy.Cacheable() {
		if _, stored := e.config.Cache.Store(key, policy, resp.StatusCode, resp.Header, resp.Body); stored {
			c.log.Debug(ctx, "response cached", observe.Field{Key: "cache_key", Value: key.Digest()})
		}
	}
	return resp, nil
}

func (c *call) recordSuccess() {
	c.settled = true
	c.e.config.Breaker.RecordSuccess()
}

func (c *call) recordFailure() {
	c.settled = true
	c.e.config.Breaker.RecordFailure()
}

// cancelled reports whether the parent context is done.
func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

func (c *call) attemptLoop(ctx context.Context) (*Response, error) {
	e := c.e

	if s := e.config.Session; s != nil {
		t, err := s.EnsureToken(ctx)
		if err != nil {
			if cancelled(ctx) {
				return nil, ctx.Err()
			}
			c.recordFailure()
			return nil, err
		}
		c.token, c.hasToken = t, true
	}

	var lastErr error
	replayed := false

	for attempt := 1; ; {
		if err := e.config.RateLimiter.Wait(ctx); err != nil {
			if cancelled(ctx) {
				return nil, ctx.Err()
			}
			return nil, err
		}

		resp, out, latency := c.send(ctx)
		if cancelled(ctx) {
			c.log.Debug(ctx, "attempt interrupted by cancellation", observe.Field{Key: "attempt", Value: attempt})
			return nil, ctx.Err()
		}

		cls := e.config.Retry.Classify(out)
		c.observeAttempt(ctx, attempt, cls, out, latency)

		switch cls.Class {
		case resilience.ClassSuccess:
			c.recordSuccess()
			return &Response{
				StatusCode: resp.StatusCode,
				Header:     resp.Header,
				Body:       resp.Body,
				Attempts:   c.transportAttempts,
				RequestID:  c.meta.RequestID,
			}, nil

		case resilience.ClassNonRetryable:
			c.recordFailure()
			return nil, c.errorFor(out, resp)

		case resilience.ClassAuthFailure:
			next, err := c.reauthenticate(ctx, replayed)
			if err != nil {
				return nil, err
			}
			if next {
				// The replay does not consume retry budget.
				replayed = true
				continue
			}

		case resilience.ClassRetryable:
			c.recordFailure()
			lastErr = c.errorFor(out, resp)

		case resilience.ClassRateLimited:
			c.recordFailure()
			lastErr = &RateLimitedError{RetryAfter: cls.RetryAfter}
		}

		if attempt > c.maxRetries {
			break
		}

		delay := e.config.Retry.BackoffDelay(attempt)
		if cls.Class == resilience.ClassRateLimited && cls.HasRetryAfter {
			delay = cls.RetryAfter
		}
		c.log.Warn(ctx, "retrying after transient failure",
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "delay", Value: delay},
			observe.Field{Key: "error", Value: lastErr},
		)
		if err := e.clock.Sleep(ctx, delay); err != nil {
			return nil, err
		}
		attempt++
	}

	return nil, &MaxRetriesExceededError{Attempts: c.maxRetries + 1, Err: lastErr}
}

// reauthenticate is the ReAuthenticating sub-state. It returns true when the
// request should be replayed with a fresh token.
func (c *call) reauthenticate(ctx context.Context, replayed bool) (bool, error) {
	s := c.e.config.Session
	if s == nil {
		c.recordFailure()
		return false, &UnauthorizedError{Message: "credentials rejected by " + c.url}
	}

	switch s.OnAuthFailure(replayed) {
	case auth.DecisionRelogin:
		c.log.Info(ctx, "session rejected, logging in again", observe.Field{Key: "username", Value: s.Username()})
		if err := s.Login(ctx); err != nil {
			if cancelled(ctx) {
				return false, ctx.Err()
			}
			c.recordFailure()
			return false, err
		}
		t, ok := s.CurrentToken()
		c.token, c.hasToken = t, ok
		return true, nil

	case auth.DecisionSessionExpired:
		c.recordFailure()
		return false, &SessionExpiredError{Username: s.Username()}

	default:
		c.recordFailure()
		msg := "static token rejected"
		if c.token.Subject != "" {
			msg = fmt.Sprintf("static token for %q rejected", c.token.Subject)
		}
		return false, &UnauthorizedError{Message: msg}
	}
}

// send performs one transport attempt under the attempt timeout.
func (c *call) send(ctx context.Context) (*TransportResponse, resilience.Outcome, time.Duration) {
	e := c.e
	c.transportAttempts++

	header := c.spec.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(RequestIDHeader, c.meta.RequestID)
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	if e.config.UserAgent != "" {
		header.Set("User-Agent", e.config.UserAgent)
	}
	if c.hasToken {
		header.Set("Authorization", c.token.AuthorizationHeader())
	}

	attemptCtx, cancel := context.WithTimeout(ctx, e.config.AttemptTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.config.Transport.Send(attemptCtx, &TransportRequest{
		Method:  c.spec.Method,
		URL:     c.url,
		Header:  header,
		Body:    c.spec.Body,
		Timeout: e.config.AttemptTimeout,
	})
	latency := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !cancelled(ctx) {
			err = &TimeoutError{Timeout: e.config.AttemptTimeout}
		}
		return nil, resilience.Outcome{Err: err}, latency
	}
	if resp == nil {
		err := &InvalidResponseError{Message: "transport returned no response"}
		return nil, resilience.Outcome{Err: err}, latency
	}
	return resp, resilience.Outcome{StatusCode: resp.StatusCode, Header: resp.Header}, latency
}

func (c *call) observeAttempt(ctx context.Context, attempt int, cls resilience.Classification, out resilience.Outcome, latency time.Duration) {
	c.e.metrics.RecordAttempt(ctx, c.meta, observe.Attempt{
		Number:     attempt,
		Outcome:    cls.Class.String(),
		StatusCode: out.StatusCode,
		Duration:   latency,
	})

	trace.SpanFromContext(ctx).AddEvent("attempt", trace.WithAttributes(
		attribute.Int("attempt", attempt),
		attribute.String("outcome", cls.Class.String()),
		attribute.Int("status_code", out.StatusCode),
	))

	c.log.Debug(ctx, "attempt finished",
		observe.Field{Key: "attempt", Value: attempt},
		observe.Field{Key: "outcome", Value: cls.Class.String()},
		observe.Field{Key: "status_code", Value: out.StatusCode},
		observe.Field{Key: "latency", Value: latency},
	)
}

// errorFor builds the typed error for a failed outcome.
func (c *call) errorFor(out resilience.Outcome, resp *TransportResponse) error {
	if out.Err != nil {
		var k kinded
		if errors.As(out.Err, &k) {
			return out.Err
		}
		if errors.Is(out.Err, context.DeadlineExceeded) {
			return &TimeoutError{Timeout: c.e.config.AttemptTimeout}
		}
		return &InvalidResponseError{Message: out.Err.Error(), Err: out.Err}
	}

	requestID := c.meta.RequestID
	if resp != nil {
		if id := resp.Header.Get(RequestIDHeader); id != "" {
			requestID = id
		}
	}

	var body []byte
	if resp != nil {
		body = resp.Body
	}
	apiErr := &APIError{
		StatusCode: out.StatusCode,
		URL:        c.url,
		Message:    extractMessage(out.StatusCode, body),
		RequestID:  requestID,
	}
	if out.StatusCode == http.StatusNotFound {
		return &NotFoundError{Resource: c.spec.Path, API: apiErr}
	}
	return apiErr
}
