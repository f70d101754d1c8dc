// Package models defines the data shapes shared by the capture agent's
// components: persisted auth tokens, the advisory auth user projection,
// buffered submissions, and the stored config record.
package models

// AuthTokens is the single persisted credential record. Exactly one value
// exists at a time: it is overwritten on refresh and erased on sign-out.
//
// ExpiresAt is a Unix-seconds timestamp. When the backend omits it, the
// token store derives it from the access token's exp claim, falling back
// to now+3600 if the token cannot be decoded.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// AuthUser is a read-only projection of the access token's claims
// (sub, email). It is never persisted independently.
//
// UNTRUSTED: the claims are decoded without signature verification, so
// this value is advisory only. It is used for display and for choosing the
// effective user id attached to writes; it must never gate authorization.
// The backend re-derives identity from the bearer token itself.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// SessionPayload is the token pair relayed by the session bridge from the
// companion web app.
type SessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
