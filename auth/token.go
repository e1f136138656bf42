package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default Authorization header schemes. The session scheme is configurable
// through SessionConfig.Scheme.
const (
	SchemeSession = "Splunk"
	SchemeBearer  = "Bearer"
)

// Token is a credential ready to present to the target.
type Token struct {
	Value  string
	Scheme string

	// IssuedAt is when the token was obtained or installed.
	IssuedAt time.Time

	// ExpiresAt is the best known expiry. Zero means unknown.
	ExpiresAt time.Time

	// Subject is the sub claim when the token is a JWT.
	Subject string
}

// AuthorizationHeader returns the Authorization header value.
func (t Token) AuthorizationHeader() string {
	return t.Scheme + " " + t.Value
}

// String masks the token value.
func (t Token) String() string {
	return t.Scheme + " ***"
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// It returns false when raw is not a JWT or carries no exp.
func TokenExpiry(raw string) (time.Time, bool) {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenSubject returns the sub claim of an unverified JWT.
func TokenSubject(raw string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	return sub, nil
}
