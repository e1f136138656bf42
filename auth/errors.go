package auth

import "errors"

// Sentinel errors for credential handling.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrNoAuthenticator    = errors.New("auth: session strategy requires an authenticator")
	ErrLoginFailed        = errors.New("auth: login failed")
	ErrEmptyToken         = errors.New("auth: authenticator returned an empty token")
	ErrTokenMalformed     = errors.New("auth: token malformed")
)
