// Package auth owns the persisted credential state: token storage with
// refresh-aware access, the advisory user projection, and auth-state
// change notification.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var errNoSubject = errors.New("token has no subject claim")

// tokenClaims is the subset of access-token claims the agent reads.
type tokenClaims struct {
	Subject string
	Email   string
	Expiry  int64
}

// decodeClaims parses the access token WITHOUT verifying its signature.
//
// UNTRUSTED by construction: anything decoded here is advisory, used only
// for display and for choosing the effective user id attached to writes.
// It must never gate authorization; the backend independently verifies the
// bearer token on every request.
func decodeClaims(accessToken string) (*tokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, err
	}

	out := &tokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if out.Subject == "" {
		return nil, errNoSubject
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Expiry = exp.Unix()
	}
	return out, nil
}
