package domain

import (
	"github.com/allisson/connectors/internal/errors"
)

// Connector errors.
var (
	// ErrUnknownProvider indicates a provider identifier outside the supported set.
	ErrUnknownProvider = errors.Wrap(errors.ErrInvalidInput, "unknown provider")

	// ErrProviderNotConfigured indicates the deployment has no client credentials for the provider.
	ErrProviderNotConfigured = errors.Wrap(errors.ErrInvalidInput, "provider not configured")

	// ErrCredentialNotFound indicates no active credential row exists.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrNotConnected indicates the tenant has no usable credential for the provider: none was
	// ever stored, it was disconnected, or it expired and could not be refreshed. The connector
	// must be re-authorized.
	ErrNotConnected = errors.Wrap(errors.ErrNotFound, "connector not connected")

	// ErrTokenExchangeFailed indicates the provider token endpoint rejected an authorization code.
	ErrTokenExchangeFailed = errors.Wrap(errors.ErrUnavailable, "token exchange failed")

	// ErrRefreshFailed indicates the provider rejected a refresh grant.
	ErrRefreshFailed = errors.Wrap(errors.ErrUnavailable, "token refresh failed")

	// ErrProbeFailed indicates the capability probe did not succeed.
	ErrProbeFailed = errors.Wrap(errors.ErrUnavailable, "connection probe failed")
)
