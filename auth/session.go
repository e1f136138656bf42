package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Authenticator performs the login handshake for a session strategy and
// returns the raw session token.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Authenticate must honor cancellation.
type Authenticator interface {
	Authenticate(ctx context.Context, creds SessionToken) (string, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, creds SessionToken) (string, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, creds SessionToken) (string, error) {
	return f(ctx, creds)
}

// Clock supplies the time used for issuance and expiry.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// SessionConfig configures a SessionState.
type SessionConfig struct {
	Strategy Strategy

	// Authenticator performs the handshake. Required for SessionToken.
	Authenticator Authenticator

	// TTL is the assumed lifetime of a session token when the token itself
	// carries no expiry.
	// Default: 1 hour
	TTL time.Duration

	// ExpiryBuffer treats a token as expired this long before its expiry.
	// Default: 60 seconds
	ExpiryBuffer time.Duration

	// LoginTimeout bounds one shared handshake. The handshake does not
	// inherit the cancellation of any single caller.
	// Default: 30 seconds
	LoginTimeout time.Duration

	// Scheme is the Authorization scheme of session tokens.
	// Default: SchemeSession
	Scheme string

	// Clock stamps issuance and evaluates expiry.
	// Default: wall clock
	Clock Clock
}

// Decision is what the request pipeline should do after the target rejected
// its credentials.
type Decision int

const (
	// DecisionRelogin: log in again and replay the request once.
	DecisionRelogin Decision = iota
	// DecisionSessionExpired: the replay after a fresh login was also
	// rejected.
	DecisionSessionExpired
	// DecisionUnauthorized: the strategy cannot recover (static token).
	DecisionUnauthorized
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionRelogin:
		return "relogin"
	case DecisionSessionExpired:
		return "session_expired"
	case DecisionUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// SessionState holds the current token for one client.
//
// Contract:
// - Concurrency: safe for concurrent use; Login replaces the token atomically.
// - Only SessionToken strategies ever log in.
type SessionState struct {
	config  SessionConfig
	session *SessionToken

	mu    sync.RWMutex
	token Token
	has   bool

	group  singleflight.Group
	logins atomic.Int64
}

// NewSessionState validates the strategy and returns the state. An APIToken
// is installed immediately; a SessionToken has no token until Login.
func NewSessionState(config SessionConfig) (*SessionState, error) {
	if config.Strategy == nil {
		return nil, ErrMissingCredentials
	}
	if err := config.Strategy.Validate(); err != nil {
		return nil, err
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.ExpiryBuffer <= 0 {
		config.ExpiryBuffer = 60 * time.Second
	}
	if config.LoginTimeout <= 0 {
		config.LoginTimeout = 30 * time.Second
	}
	if config.Scheme == "" {
		config.Scheme = SchemeSession
	}
	if config.Clock == nil {
		config.Clock = wallClock{}
	}

	s := &SessionState{config: config}

	switch st := config.Strategy.(type) {
	case SessionToken:
		if config.Authenticator == nil {
			return nil, ErrNoAuthenticator
		}
		s.session = &st
	case *SessionToken:
		if config.Authenticator == nil {
			return nil, ErrNoAuthenticator
		}
		cp := *st
		s.session = &cp
	case APIToken:
		s.installStatic(st.Token)
	case *APIToken:
		s.installStatic(st.Token)
	}

	return s, nil
}

func (s *SessionState) installStatic(raw string) {
	t := Token{
		Value:    raw,
		Scheme:   SchemeBearer,
		IssuedAt: s.config.Clock.Now(),
	}
	if exp, ok := TokenExpiry(raw); ok {
		t.ExpiresAt = exp
	}
	if sub, err := TokenSubject(raw); err == nil {
		t.Subject = sub
	}
	s.token = t
	s.has = true
}

// IsSessionStrategy reports whether the state can log in.
func (s *SessionState) IsSessionStrategy() bool {
	return s.session != nil
}

// Username returns the session username, or "" for a static token.
func (s *SessionState) Username() string {
	if s.session == nil {
		return ""
	}
	return s.session.Username
}

// CurrentToken returns the token, if any.
func (s *SessionState) CurrentToken() (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.has
}

// LoginCount returns the number of completed handshakes.
func (s *SessionState) LoginCount() int64 {
	return s.logins.Load()
}

// Login performs the handshake and replaces the token. Concurrent calls share
// one handshake. For a static token Login is a no-op.
//
// The shared handshake runs detached from the callers' contexts, bounded by
// LoginTimeout. A caller whose ctx is done stops waiting and gets ctx.Err();
// the handshake still completes for everyone else.
func (s *SessionState) Login(ctx context.Context) error {
	if s.session == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := s.group.DoChan("login", func() (any, error) {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.LoginTimeout)
		defer cancel()
		return nil, s.handshake(hctx)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *SessionState) handshake(ctx context.Context) error {
	raw, err := s.config.Authenticator.Authenticate(ctx, *s.session)
	if err != nil {
		return fmt.Errorf("%w as %q: %w", ErrLoginFailed, s.session.Username, err)
	}
	if raw == "" {
		return fmt.Errorf("%w as %q: %w", ErrLoginFailed, s.session.Username, ErrEmptyToken)
	}

	now := s.config.Clock.Now()
	t := Token{
		Value:     raw,
		Scheme:    s.config.Scheme,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.config.TTL),
	}
	if exp, ok := TokenExpiry(raw); ok && exp.Before(t.ExpiresAt) {
		t.ExpiresAt = exp
	}
	if sub, err := TokenSubject(raw); err == nil && sub != "" {
		t.Subject = sub
	}

	s.mu.Lock()
	s.token = t
	s.has = true
	s.mu.Unlock()

	s.logins.Add(1)
	return nil
}

// Expired reports whether the token is absent or inside the expiry buffer.
// A token with unknown expiry never expires.
func (s *SessionState) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.has {
		return true
	}
	if s.token.ExpiresAt.IsZero() {
		return false
	}
	return !s.config.Clock.Now().Before(s.token.ExpiresAt.Add(-s.config.ExpiryBuffer))
}

// EnsureToken logs in when a session strategy has no usable token and
// returns the current token. A static token is returned as-is even when
// expired.
func (s *SessionState) EnsureToken(ctx context.Context) (Token, error) {
	if s.session != nil && s.Expired() {
		if err := s.Login(ctx); err != nil {
			return Token{}, err
		}
	}

	t, ok := s.CurrentToken()
	if !ok {
		return Token{}, ErrMissingCredentials
	}
	return t, nil
}

// OnAuthFailure decides how to react to a rejected request. replayed is true
// when the rejected request was already the replay after a fresh login.
func (s *SessionState) OnAuthFailure(replayed bool) Decision {
	switch {
	case s.session == nil:
		return DecisionUnauthorized
	case replayed:
		return DecisionSessionExpired
	default:
		return DecisionRelogin
	}
}
