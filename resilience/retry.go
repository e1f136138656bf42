package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// BackoffStrategy defines how delays increase between retries.
type BackoffStrategy int

const (
	// BackoffExponential doubles the delay each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// MaxRetriesCap bounds the per-call retry budget.
const MaxRetriesCap = 10

// Class is the outcome category that drives the attempt loop.
type Class int

const (
	// ClassSuccess is a 2xx response.
	ClassSuccess Class = iota
	// ClassRetryable is a transient failure worth another attempt.
	ClassRetryable
	// ClassNonRetryable fails the call immediately.
	ClassNonRetryable
	// ClassAuthFailure is a 401 or 403.
	ClassAuthFailure
	// ClassRateLimited is a 429; RetryAfter carries the server's hint.
	ClassRateLimited
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassRetryable:
		return "retryable"
	case ClassNonRetryable:
		return "non_retryable"
	case ClassAuthFailure:
		return "auth_failure"
	case ClassRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Outcome is the observed result of one transport call. Err is set for
// transport-level failures, in which case StatusCode is zero.
type Outcome struct {
	StatusCode int
	Header     http.Header
	Err        error
}

// Classification is the result of classifying an Outcome.
type Classification struct {
	Class Class

	// RetryAfter is the server-signalled delay for ClassRateLimited.
	RetryAfter time.Duration

	// HasRetryAfter is set when the server sent a usable hint. A hint of
	// zero means retry immediately rather than fall back to backoff.
	HasRetryAfter bool
}

// RetryableError is implemented by transport errors that know whether they
// are transient. Classification uses it instead of inspecting messages.
type RetryableError interface {
	error
	Retryable() bool
}

// RetryConfig configures the retry policy.
type RetryConfig struct {
	// BaseDelay is the delay before the first retry.
	// Default: 1s
	BaseDelay time.Duration

	// MaxDelay caps the maximum delay between retries.
	// Default: 60s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds up to 25% randomness on top of each delay.
	// Default: false
	Jitter bool

	// MaxRetryAfter caps a server-provided Retry-After delay.
	// Default: 5m
	MaxRetryAfter time.Duration

	// Clock resolves HTTP-date Retry-After values.
	// Default: SystemClock
	Clock Clock
}

// RetryPolicy classifies outcomes and computes backoff delays.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a retry policy.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 60 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.MaxRetryAfter <= 0 {
		config.MaxRetryAfter = 5 * time.Minute
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	return &RetryPolicy{config: config}
}

// Classify maps an outcome onto a Class.
func (p *RetryPolicy) Classify(o Outcome) Classification {
	if o.Err != nil {
		if isTransientTransportError(o.Err) {
			return Classification{Class: ClassRetryable}
		}
		return Classification{Class: ClassNonRetryable}
	}

	code := o.StatusCode
	switch {
	case code >= 200 && code < 300:
		return Classification{Class: ClassSuccess}
	case code == http.StatusBadGateway,
		code == http.StatusServiceUnavailable,
		code == http.StatusGatewayTimeout:
		return Classification{Class: ClassRetryable}
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return Classification{Class: ClassAuthFailure}
	case code == http.StatusTooManyRequests:
		delay, ok := p.retryAfter(o.Header)
		return Classification{
			Class:         ClassRateLimited,
			RetryAfter:    delay,
			HasRetryAfter: ok,
		}
	default:
		// 500/501, the remaining 4xx and anything unexpected (1xx/3xx).
		return Classification{Class: ClassNonRetryable}
	}
}

func isTransientTransportError(err error) bool {
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// BackoffDelay returns the delay to sleep after the given failed attempt
// (1-based). Exponential: BaseDelay * Multiplier^(attempt-1).
func (p *RetryPolicy) BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var delay time.Duration

	switch p.config.Strategy {
	case BackoffConstant:
		delay = p.config.BaseDelay

	case BackoffLinear:
		delay = p.config.BaseDelay * time.Duration(attempt)

	default:
		multiplier := math.Pow(p.config.Multiplier, float64(attempt-1))
		scaled := float64(p.config.BaseDelay) * multiplier
		if scaled >= float64(p.config.MaxDelay) {
			delay = p.config.MaxDelay
		} else {
			delay = time.Duration(scaled)
		}
	}

	if delay > p.config.MaxDelay {
		delay = p.config.MaxDelay
	}

	if p.config.Jitter && delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}

	return delay
}

// RetryAfter parses a Retry-After header, accepting delta-seconds or an
// HTTP-date. Returns zero when absent or unparseable.
func (p *RetryPolicy) RetryAfter(h http.Header) time.Duration {
	d, _ := p.retryAfter(h)
	return d
}

// retryAfter reports the parsed delay and whether a usable hint was present.
// "0" and an HTTP-date already past are hints meaning retry now.
func (p *RetryPolicy) retryAfter(h http.Header) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}

	var delay time.Duration
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int64(p.config.MaxRetryAfter/time.Second) {
			return p.config.MaxRetryAfter, true
		}
		delay = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(raw); err == nil {
		delay = max(at.Sub(p.config.Clock.Now()), 0)
	} else {
		return 0, false
	}

	return min(delay, p.config.MaxRetryAfter), true
}

// ClampRetries bounds a caller-supplied retry budget to [0, MaxRetriesCap].
func ClampRetries(maxRetries int) int {
	if maxRetries < 0 {
		return 0
	}
	if maxRetries > MaxRetriesCap {
		return MaxRetriesCap
	}
	return maxRetries
}

// Config returns the retry configuration.
func (p *RetryPolicy) Config() RetryConfig {
	return p.config
}
