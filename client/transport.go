package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TransportRequest is one physical request.
type TransportRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Timeout is the attempt budget, reported in TimeoutError.
	Timeout time.Duration
}

// TransportResponse is a received response of any status.
type TransportResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends one request. A non-2xx status is not an error; errors are
// reserved for failures to obtain a response and should be one of the typed
// transport errors of this package.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Send must return promptly when ctx is done.
type Transport interface {
	Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*TransportResponse, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	return f(ctx, req)
}

// HTTPTransportConfig configures HTTPTransport.
type HTTPTransportConfig struct {
	// InsecureSkipVerify disables certificate verification. Admin ports with
	// self-signed certificates commonly need it.
	InsecureSkipVerify bool

	// RootCAs overrides the system roots.
	RootCAs *x509.CertPool

	// MaxBodyBytes bounds how much of a response body is read.
	// Default: 32 MiB
	MaxBodyBytes int64

	// Base overrides the underlying round tripper; TLS settings are then
	// ignored.
	Base http.RoundTripper
}

// HTTPTransport sends requests with net/http, instrumented with otelhttp.
type HTTPTransport struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport(config HTTPTransportConfig) *HTTPTransport {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 32 << 20
	}

	base := config.Base
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    config.RootCAs,
			// #nosec G402 -- opt-in for self-signed admin endpoints.
			InsecureSkipVerify: config.InsecureSkipVerify,
		}
		base = t
	}

	return &HTTPTransport{
		client: &http.Client{
			Transport: otelhttp.NewTransport(base),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBody: config.MaxBodyBytes,
	}
}

// Send performs the request and classifies any failure.
func (t *HTTPTransport) Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &InvalidURLError{URL: req.URL, Message: err.Error()}
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, classifyTransportError(ctx, req, ctxErr)
		}
		return nil, &InvalidResponseError{Message: "reading body: " + err.Error(), Err: err}
	}
	if int64(len(data)) > t.maxBody {
		return nil, &InvalidResponseError{Message: fmt.Sprintf("body exceeds %d bytes", t.maxBody)}
	}

	return &TransportResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// classifyTransportError maps a net/http failure onto a typed error once, by
// type. Parent cancellation is returned as the bare context error.
func classifyTransportError(ctx context.Context, req *TransportRequest, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Timeout: req.Timeout}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Timeout: req.Timeout}
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalidCert      x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
		recordHeader     tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &unknownAuthority):
		return &TLSError{Message: "certificate signed by unknown authority", Err: err}
	case errors.As(err, &hostname):
		return &TLSError{Message: "certificate hostname mismatch", Err: err}
	case errors.As(err, &invalidCert):
		return &TLSError{Message: "certificate invalid", Err: err}
	case errors.As(err, &verification):
		return &TLSError{Message: "certificate verification failed", Err: err}
	case errors.As(err, &recordHeader):
		return &TLSError{Message: "server did not speak TLS", Err: err}
	}

	addr := req.URL
	if u, perr := url.Parse(req.URL); perr == nil && u.Host != "" {
		addr = u.Host
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &dnsErr),
		errors.As(err, &opErr):
		return &ConnectionRefusedError{Addr: addr, Err: err}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &ConnectionRefusedError{Addr: addr, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return &InvalidURLError{URL: req.URL, Message: urlErr.Err.Error()}
	}

	return &InvalidResponseError{Message: err.Error(), Err: err}
}

var (
	_ Transport = (*HTTPTransport)(nil)
	_ Transport = TransportFunc(nil)
)
