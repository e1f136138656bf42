package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/adminops/resilience"
)

// Kind is the category of a client error.
type Kind int

const (
	KindUnknown Kind = iota
	KindAPI
	KindUnauthorized
	KindSessionExpired
	KindRateLimited
	KindTimeout
	KindOperationTimeout
	KindConnectionRefused
	KindTLS
	KindInvalidResponse
	KindInvalidURL
	KindNotFound
	KindMaxRetriesExceeded
	KindCircuitOpen
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindAPI:                "api_error",
	KindUnauthorized:       "unauthorized",
	KindSessionExpired:     "session_expired",
	KindRateLimited:        "rate_limited",
	KindTimeout:            "timeout",
	KindOperationTimeout:   "operation_timeout",
	KindConnectionRefused:  "connection_refused",
	KindTLS:                "tls_error",
	KindInvalidResponse:    "invalid_response",
	KindInvalidURL:         "invalid_url",
	KindNotFound:           "not_found",
	KindMaxRetriesExceeded: "max_retries_exceeded",
	KindCircuitOpen:        "circuit_open",
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

type kinded interface {
	Kind() Kind
}

// KindOf returns the kind of the outermost client error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// ErrCircuitOpen matches every CircuitOpenError via errors.Is.
var ErrCircuitOpen = resilience.ErrCircuitOpen

// APIError is a non-success HTTP response.
type APIError struct {
	StatusCode int
	URL        string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error: status %d from %s", e.StatusCode, e.URL)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request_id=" + e.RequestID + ")"
	}
	return msg
}

// Kind returns KindAPI.
func (e *APIError) Kind() Kind { return KindAPI }

// NotFoundError is a 404. It wraps the APIError carrying the response detail.
type NotFoundError struct {
	Resource string
	API      *APIError
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Resource
}

// Kind returns KindNotFound.
func (e *NotFoundError) Kind() Kind { return KindNotFound }

func (e *NotFoundError) Unwrap() error {
	if e.API == nil {
		return nil
	}
	return e.API
}

// UnauthorizedError means the credentials were rejected and cannot be
// renewed automatically.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Message
}

// Kind returns KindUnauthorized.
func (e *UnauthorizedError) Kind() Kind { return KindUnauthorized }

// SessionExpiredError means a fresh login did not restore access.
type SessionExpiredError struct {
	Username string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired for user %q", e.Username)
}

// Kind returns KindSessionExpired.
func (e *SessionExpiredError) Kind() Kind { return KindSessionExpired }

// RateLimitedError is a 429 response.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return "rate limited, retry after " + e.RetryAfter.String()
	}
	return "rate limited"
}

// Kind returns KindRateLimited.
func (e *RateLimitedError) Kind() Kind { return KindRateLimited }

// TimeoutError is a per-attempt timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return "request timed out after " + e.Timeout.String()
	}
	return "request timed out"
}

// Kind returns KindTimeout.
func (e *TimeoutError) Kind() Kind { return KindTimeout }

// Retryable reports true.
func (e *TimeoutError) Retryable() bool { return true }

// OperationTimeoutError is an overall deadline of a higher-level operation,
// such as polling for job completion. It is never retried.
type OperationTimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *OperationTimeoutError) Error() string {
	return fmt.Sprintf("operation %q did not complete within %s", e.Operation, e.Timeout)
}

// Kind returns KindOperationTimeout.
func (e *OperationTimeoutError) Kind() Kind { return KindOperationTimeout }

// ConnectionRefusedError is a failure to reach the target.
type ConnectionRefusedError struct {
	Addr string
	Err  error
}

func (e *ConnectionRefusedError) Error() string {
	msg := "connection refused: " + e.Addr
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Kind returns KindConnectionRefused.
func (e *ConnectionRefusedError) Kind() Kind { return KindConnectionRefused }

// Retryable reports true.
func (e *ConnectionRefusedError) Retryable() bool { return true }

func (e *ConnectionRefusedError) Unwrap() error { return e.Err }

// TLSError is a TLS handshake or certificate failure.
type TLSError struct {
	Message string
	Err     error
}

func (e *TLSError) Error() string { return "tls error: " + e.Message }

// Kind returns KindTLS.
func (e *TLSError) Kind() Kind { return KindTLS }

// Retryable reports false.
func (e *TLSError) Retryable() bool { return false }

func (e *TLSError) Unwrap() error { return e.Err }

// InvalidResponseError is a response that could not be read or decoded.
type InvalidResponseError struct {
	Message string
	Err     error
}

func (e *InvalidResponseError) Error() string { return "invalid response: " + e.Message }

// Kind returns KindInvalidResponse.
func (e *InvalidResponseError) Kind() Kind { return KindInvalidResponse }

// Retryable reports false.
func (e *InvalidResponseError) Retryable() bool { return false }

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// InvalidURLError is a request URL that cannot be used.
type InvalidURLError struct {
	URL     string
	Message string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", e.URL, e.Message)
}

// Kind returns KindInvalidURL.
func (e *InvalidURLError) Kind() Kind { return KindInvalidURL }

// Retryable reports false.
func (e *InvalidURLError) Retryable() bool { return false }

// MaxRetriesExceededError is returned when every attempt failed transiently.
// Err is the last concrete failure.
type MaxRetriesExceededError struct {
	Attempts int
	Err      error
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.Err)
}

// Kind returns KindMaxRetriesExceeded.
func (e *MaxRetriesExceededError) Kind() Kind { return KindMaxRetriesExceeded }

func (e *MaxRetriesExceededError) Unwrap() error { return e.Err }

// CircuitOpenError is a fast failure from an open circuit. It matches
// ErrCircuitOpen.
type CircuitOpenError struct {
	Profile string
}

func (e *CircuitOpenError) Error() string {
	if e.Profile == "" {
		return ErrCircuitOpen.Error()
	}
	return ErrCircuitOpen.Error() + ": " + e.Profile
}

// Kind returns KindCircuitOpen.
func (e *CircuitOpenError) Kind() Kind { return KindCircuitOpen }

func (e *CircuitOpenError) Unwrap() error { return ErrCircuitOpen }

var (
	_ resilience.RetryableError = (*TimeoutError)(nil)
	_ resilience.RetryableError = (*ConnectionRefusedError)(nil)
	_ resilience.RetryableError = (*TLSError)(nil)
	_ resilience.RetryableError = (*InvalidResponseError)(nil)
	_ resilience.RetryableError = (*InvalidURLError)(nil)
)
