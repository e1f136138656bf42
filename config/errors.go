package config

import "errors"

var (
	// ErrInvalidProfileName is returned for an empty or malformed profile name.
	ErrInvalidProfileName = errors.New("config: invalid profile name")

	// ErrAmbiguousCredentials is returned when a profile sets both a token
	// and a username.
	ErrAmbiguousCredentials = errors.New("config: both token and username configured")

	// ErrIncompleteCredentials is returned for a username without password.
	ErrIncompleteCredentials = errors.New("config: username requires a password")

	// ErrInvalidPolicy is returned for a malformed cache policy entry.
	ErrInvalidPolicy = errors.New("config: invalid cache policy")

	// ErrInvalidValue is returned by Validate for out-of-range settings.
	ErrInvalidValue = errors.New("config: invalid value")
)
