package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CallbackReason is the stable error code sent to the browser after a failed callback.
type CallbackReason string

// Fixed callback reasons. A provider error parameter is passed through as its own reason
// after SanitizeProviderError.
const (
	ReasonMissingAuthorizationCode CallbackReason = "missing_authorization_code"
	ReasonInvalidOrExpiredState    CallbackReason = "invalid_or_expired_state"
	ReasonProviderMismatch         CallbackReason = "provider_mismatch"
	ReasonNonceValidationFailed    CallbackReason = "nonce_validation_failed"
	ReasonOAuthCallbackFailed      CallbackReason = "oauth_callback_failed"
)

// maxProviderErrorLength bounds the provider error code echoed back to the browser.
const maxProviderErrorLength = 64

// CallbackError is returned by every failed callback. Reason is safe to show to the end
// user; Err carries the internal cause for logging only.
type CallbackError struct {
	Reason CallbackReason
	Err    error
}

// NewCallbackError creates a CallbackError.
func NewCallbackError(reason CallbackReason, err error) *CallbackError {
	return &CallbackError{Reason: reason, Err: err}
}

func (e *CallbackError) Error() string {
	if e.Err == nil {
		return "oauth callback failed: " + string(e.Reason)
	}
	return "oauth callback failed: " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// SanitizeProviderError reduces a provider error parameter to a short token made of
// letters, digits, '_', '-' and '.'. An empty result maps to ReasonOAuthCallbackFailed.
func SanitizeProviderError(raw string) CallbackReason {
	var b strings.Builder
	for _, r := range raw {
		if b.Len() >= maxProviderErrorLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ReasonOAuthCallbackFailed
	}
	return CallbackReason(b.String())
}

// AuthorizationRequest is returned when an authorization flow starts.
type AuthorizationRequest struct {
	AuthURL  string
	Provider Provider
	Nonce    string
	State    string
}

// CallbackInput carries the query parameters the provider redirected with.
type CallbackInput struct {
	Provider string
	Code     string
	State    string
	Error    string
}

// CallbackResult describes the credential stored by a successful callback.
type CallbackResult struct {
	TenantID     string
	Provider     Provider
	CredentialID uuid.UUID
}

// TestResult is the outcome of a connection test.
type TestResult struct {
	Success   bool
	Provider  Provider
	Error     string
	Timestamp time.Time
}

// ConnectorStatus describes one configured provider for a tenant.
type ConnectorStatus struct {
	Provider   Provider
	Name       string
	Type       ProviderType
	Connected  bool
	LastTested *time.Time
	Error      *string
}
