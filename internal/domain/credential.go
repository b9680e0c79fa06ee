package domain

import "time"

// TokenExpiry is how long an access token is considered usable. KIS tokens
// are valid for 24 hours; we cut over an hour early so a token never expires
// mid-request.
const TokenExpiry = 23 * time.Hour

// Credential is a KIS access token together with its issuance time. It is
// created on successful authentication, persisted immediately, and replaced
// wholesale on refresh — never partially mutated.
type Credential struct {
	AccessToken string    `json:"access_token"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Valid reports whether the credential is still usable at the given time.
func (c Credential) Valid(now time.Time) bool {
	if c.AccessToken == "" || c.IssuedAt.IsZero() {
		return false
	}
	return now.Sub(c.IssuedAt) < TokenExpiry
}
