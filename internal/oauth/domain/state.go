// Package domain defines the OAuth state and nonce models used to protect the
// authorization-code flow against forgery and replay.
//
// A signed state has the wire form
//
//	provider:tenantID:nonce:timestampMillis:signature
//
// where signature is the hex HMAC-SHA256 of the first four colon-joined fields. The state
// is only meaningful together with a live Nonce entry in the registry.
package domain

import (
	"time"
)

const (
	// StateSeparator joins the state fields.
	StateSeparator = ":"

	// StateFieldCount is the number of fields of a signed state.
	StateFieldCount = 5

	// NonceSize is the number of random bytes behind every nonce.
	NonceSize = 32

	// DefaultStateMaxAge is the validity window of a state and its nonce.
	DefaultStateMaxAge = time.Hour

	// MaxClockSkew is how far in the future a state timestamp may lie before it is rejected.
	MaxClockSkew = time.Minute
)

// StateToken is the result of validating a signed state.
// Fields are populated whenever the state could be parsed; callers must check Valid.
type StateToken struct {
	Provider  string
	TenantID  string
	Nonce     string
	Timestamp time.Time
	Valid     bool
}

// Nonce is a registered, not yet consumed, one-time value bound to a tenant and provider.
type Nonce struct {
	Value     string
	TenantID  string
	Provider  string
	CreatedAt time.Time
}

// Matches reports whether the nonce was issued for tenantID and provider.
func (n *Nonce) Matches(tenantID, provider string) bool {
	return n.TenantID == tenantID && n.Provider == provider
}

// Expired reports whether the nonce is at least maxAge old at now.
func (n *Nonce) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(n.CreatedAt) >= maxAge
}
