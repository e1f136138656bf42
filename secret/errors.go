package secret

import "errors"

var (
	// ErrMissingVariable is returned when ${VAR} names an unset variable.
	ErrMissingVariable = errors.New("secret: missing environment variable")

	// ErrUnknownProvider is returned for a secretref naming no provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrEmptySecret is returned by a strict resolver for an empty value.
	ErrEmptySecret = errors.New("secret: resolved to empty value")

	// ErrNotFound is returned by a provider that has no value for a ref.
	ErrNotFound = errors.New("secret: not found")
)
