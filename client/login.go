package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/adminops/auth"
)

// DefaultLoginPath is the session login endpoint.
const DefaultLoginPath = "/services/auth/login"

// LoginConfig configures the login handshake.
type LoginConfig struct {
	Transport Transport
	BaseURL   string

	// Path is the login endpoint.
	// Default: DefaultLoginPath
	Path string

	// Timeout bounds the handshake request.
	// Default: 30 seconds
	Timeout time.Duration
}

type loginReply struct {
	SessionKey string `json:"sessionKey"`
}

// NewLoginHandshake returns an auth.Authenticator that exchanges username and
// password for a session key. The handshake is a single attempt; retrying
// it is the caller's decision.
func NewLoginHandshake(config LoginConfig) (auth.Authenticator, error) {
	if config.Transport == nil {
		return nil, ErrInvalidExecutorConfig
	}
	base, err := parseBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}
	if config.Path == "" {
		config.Path = DefaultLoginPath
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	target := base.JoinPath(config.Path).String()

	return auth.AuthenticatorFunc(func(ctx context.Context, creds auth.SessionToken) (string, error) {
		form := url.Values{}
		form.Set("username", creds.Username)
		form.Set("password", creds.Password)
		form.Set("output_mode", "json")

		header := http.Header{}
		header.Set("Content-Type", "application/x-www-form-urlencoded")
		header.Set("Accept", "application/json")

		ctx, cancel := context.WithTimeout(ctx, config.Timeout)
		defer cancel()

		resp, err := config.Transport.Send(ctx, &TransportRequest{
			Method:  http.MethodPost,
			URL:     target,
			Header:  header,
			Body:    []byte(form.Encode()),
			Timeout: config.Timeout,
		})
		if err != nil {
			return "", err
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return "", &UnauthorizedError{Message: extractMessage(resp.StatusCode, resp.Body)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return "", &APIError{
				StatusCode: resp.StatusCode,
				URL:        target,
				Message:    extractMessage(resp.StatusCode, resp.Body),
				RequestID:  resp.Header.Get(RequestIDHeader),
			}
		}

		var reply loginReply
		if err := json.Unmarshal(resp.Body, &reply); err != nil {
			return "", &InvalidResponseError{Message: "decoding login reply: " + err.Error(), Err: err}
		}
		key := strings.TrimSpace(reply.SessionKey)
		if key == "" {
			return "", &InvalidResponseError{Message: "login reply carries no sessionKey"}
		}
		return key, nil
	}), nil
}
