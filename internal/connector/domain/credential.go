package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the persisted connector record of a tenant and provider.
//
// Rows are never hard deleted: disconnecting or replacing a credential sets IsActive to
// false. At most one row per (TenantID, Provider) is active; readers prefer the newest.
type Credential struct {
	ID           uuid.UUID
	TenantID     string
	Provider     Provider
	IsActive     bool
	Config       CredentialConfig
	LastTestedAt *time.Time
	LastError    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialConfig is the JSON document stored in the config column.
// Token fields hold tenant-scoped encrypted blobs, never plaintext.
type CredentialConfig struct {
	EncryptedAccessToken  string     `json:"encrypted_access_token"`
	EncryptedRefreshToken string     `json:"encrypted_refresh_token,omitempty"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	Scope                 string     `json:"scope,omitempty"`
	TokenType             string     `json:"token_type,omitempty"`
}

// Tokens holds decrypted provider tokens. It is never persisted or logged as is.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        string
	TokenType    string
}

// HasRefreshToken reports whether a refresh grant is possible.
func (t Tokens) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// NeedsRefresh reports whether the access token expires within window of now.
// Tokens without an expiry never need a refresh.
func (t Tokens) NeedsRefresh(now time.Time, window time.Duration) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Sub(now) <= window
}

// Expired reports whether the access token is past its expiry.
func (t Tokens) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// String never renders token values.
func (t Tokens) String() string {
	return "Tokens(***)"
}

// ConnectionState is the lifecycle state of a (tenant, provider) pair.
type ConnectionState string

// Lifecycle states. AuthInitiated lives only in the nonce registry and Refreshing only for
// the duration of a refresh call; the others can be derived from the stored credential.
const (
	StateNone          ConnectionState = "NONE"
	StateAuthInitiated ConnectionState = "AUTH_INITIATED"
	StateAuthorized    ConnectionState = "AUTHORIZED"
	StateNearExpiry    ConnectionState = "NEAR_EXPIRY"
	StateRefreshing    ConnectionState = "REFRESHING"
	StateRevoked       ConnectionState = "REVOKED"
)

// State derives the lifecycle state of a stored credential at now.
func (c *Credential) State(now time.Time, window time.Duration) ConnectionState {
	if c == nil {
		return StateNone
	}
	if !c.IsActive {
		return StateRevoked
	}
	if c.Config.ExpiresAt != nil && c.Config.ExpiresAt.Sub(now) <= window {
		return StateNearExpiry
	}
	return StateAuthorized
}

// Refreshable reports whether a refresh grant can be attempted for the credential.
func (c *Credential) Refreshable() bool {
	return c != nil && c.IsActive && c.Config.EncryptedRefreshToken != ""
}

// Connected reports whether the credential can still produce a usable access token at now.
// An expired credential without a refresh token must be re-authorized.
func (c *Credential) Connected(now time.Time) bool {
	if c == nil || !c.IsActive {
		return false
	}
	if c.Refreshable() || c.Config.ExpiresAt == nil {
		return true
	}
	return now.Before(*c.Config.ExpiresAt)
}

// ExpiringCursor is the keyset position after the last row of an expiring credentials page.
type ExpiringCursor struct {
	ExpiresAt time.Time
	ID        uuid.UUID
}

// NextExpiringCursor returns the cursor positioned after the credential. Credentials without
// an expiry never appear in expiring pages and yield nil.
func NextExpiringCursor(c *Credential) *ExpiringCursor {
	if c == nil || c.Config.ExpiresAt == nil {
		return nil
	}
	return &ExpiringCursor{ExpiresAt: c.Config.ExpiresAt.UTC(), ID: c.ID}
}
