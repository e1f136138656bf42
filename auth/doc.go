// Package auth holds the credential state a client presents to its target.
//
// Two strategies are supported. SessionToken exchanges a username and
// password for a short-lived session token through an injected
// Authenticator, and may log in again when the target rejects the token.
// APIToken carries a long-lived static token that is never refreshed.
//
// SessionState owns the current token for one client. Logins are collapsed
// so concurrent callers observing the same expired session trigger a single
// handshake.
package auth
