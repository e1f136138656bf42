package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonwraymond/adminops/resilience"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("x"), KindUnknown},
		{"context", context.Canceled, KindUnknown},
		{"api", &APIError{StatusCode: 500}, KindAPI},
		{"not found", &NotFoundError{Resource: "/x", API: &APIError{StatusCode: 404}}, KindNotFound},
		{"unauthorized", &UnauthorizedError{}, KindUnauthorized},
		{"session expired", &SessionExpiredError{Username: "admin"}, KindSessionExpired},
		{"rate limited", &RateLimitedError{}, KindRateLimited},
		{"timeout", &TimeoutError{}, KindTimeout},
		{"operation timeout", &OperationTimeoutError{}, KindOperationTimeout},
		{"connection refused", &ConnectionRefusedError{}, KindConnectionRefused},
		{"tls", &TLSError{}, KindTLS},
		{"invalid response", &InvalidResponseError{}, KindInvalidResponse},
		{"invalid url", &InvalidURLError{}, KindInvalidURL},
		{"max retries", &MaxRetriesExceededError{Err: &TimeoutError{}}, KindMaxRetriesExceeded},
		{"circuit open", &CircuitOpenError{}, KindCircuitOpen},
		{"wrapped", fmt.Errorf("listing apps: %w", &TLSError{}), KindTLS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "api_error", KindAPI.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "circuit_open", KindCircuitOpen.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{
			&APIError{StatusCode: 400, URL: "https://a/x", Message: "bad arg", RequestID: "r1"},
			"api error: status 400 from https://a/x: bad arg (request_id=r1)",
		},
		{&APIError{StatusCode: 500, URL: "https://a/x"}, "api error: status 500 from https://a/x"},
		{&NotFoundError{Resource: "/services/x"}, "not found: /services/x"},
		{&UnauthorizedError{}, "unauthorized"},
		{&UnauthorizedError{Message: "bad token"}, "unauthorized: bad token"},
		{&SessionExpiredError{Username: "admin"}, `session expired for user "admin"`},
		{&RateLimitedError{RetryAfter: 5 * time.Second}, "rate limited, retry after 5s"},
		{&RateLimitedError{}, "rate limited"},
		{&TimeoutError{Timeout: 30 * time.Second}, "request timed out after 30s"},
		{&OperationTimeoutError{Operation: "job", Timeout: time.Minute}, `operation "job" did not complete within 1m0s`},
		{&ConnectionRefusedError{Addr: "a:8089"}, "connection refused: a:8089"},
		{&TLSError{Message: "bad cert"}, "tls error: bad cert"},
		{&InvalidURLError{URL: "x", Message: "no host"}, `invalid url "x": no host`},
		{&CircuitOpenError{Profile: "prod"}, "resilience: circuit breaker is open: prod"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestErrorWrapping(t *testing.T) {
	api := &APIError{StatusCode: 404}
	var target *APIError
	assert.True(t, errors.As(&NotFoundError{API: api}, &target))
	assert.Same(t, api, target)
	assert.NoError(t, (&NotFoundError{}).Unwrap())

	assert.ErrorIs(t, &CircuitOpenError{}, ErrCircuitOpen)
	assert.ErrorIs(t, &CircuitOpenError{}, resilience.ErrCircuitOpen)

	inner := &ConnectionRefusedError{Addr: "a"}
	mre := &MaxRetriesExceededError{Attempts: 3, Err: inner}
	var cre *ConnectionRefusedError
	assert.True(t, errors.As(mre, &cre))
}

func TestRetryableClassification(t *testing.T) {
	p := resilience.NewRetryPolicy(resilience.RetryConfig{})

	tests := []struct {
		err  error
		want resilience.Class
	}{
		{&TimeoutError{}, resilience.ClassRetryable},
		{&ConnectionRefusedError{}, resilience.ClassRetryable},
		{&TLSError{}, resilience.ClassNonRetryable},
		{&InvalidResponseError{}, resilience.ClassNonRetryable},
		{&InvalidURLError{}, resilience.ClassNonRetryable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Classify(resilience.Outcome{Err: tt.err}).Class, "%T", tt.err)
	}
}
