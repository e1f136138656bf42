package auth

import "fmt"

// Strategy is the configured way of authenticating. It is either
// SessionToken or APIToken.
type Strategy interface {
	// Name identifies the strategy in logs and config.
	Name() string

	// Validate reports missing credentials.
	Validate() error

	isStrategy()
}

// SessionToken logs in with a username and password.
type SessionToken struct {
	Username string
	Password string
}

// Name returns "session".
func (SessionToken) Name() string { return "session" }

// Validate checks that both username and password are set.
func (s SessionToken) Validate() error {
	if s.Username == "" || s.Password == "" {
		return fmt.Errorf("%w: session strategy needs username and password", ErrMissingCredentials)
	}
	return nil
}

// String omits the password.
func (s SessionToken) String() string {
	return fmt.Sprintf("session(%s)", s.Username)
}

func (SessionToken) isStrategy() {}

// APIToken presents a static bearer token.
type APIToken struct {
	Token string
}

// Name returns "api_token".
func (APIToken) Name() string { return "api_token" }

// Validate checks that the token is set.
func (a APIToken) Validate() error {
	if a.Token == "" {
		return fmt.Errorf("%w: api token is empty", ErrMissingCredentials)
	}
	return nil
}

// String omits the token.
func (APIToken) String() string { return "api_token(***)" }

func (APIToken) isStrategy() {}

var (
	_ Strategy = SessionToken{}
	_ Strategy = APIToken{}
)
