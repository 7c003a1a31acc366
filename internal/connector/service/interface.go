// Package service talks to the OAuth providers: authorization URLs, code exchange,
// refresh grants and lightweight capability probes.
package service

import (
	"context"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
)

// TokenExchanger drives the OAuth2 authorization-code grant against a provider.
type TokenExchanger interface {
	// AuthCodeURL builds the provider authorization URL with client_id, redirect_uri, scope,
	// state, access_type=offline and prompt=consent.
	AuthCodeURL(cfg *connectorDomain.ProviderConfig, state string) string

	// Exchange trades an authorization code for tokens. A single attempt is made: codes are
	// single-use, so failures are never retried. Errors wrap ErrTokenExchangeFailed.
	Exchange(ctx context.Context, cfg *connectorDomain.ProviderConfig, code string) (*connectorDomain.Tokens, error)

	// Refresh runs the refresh grant. Errors wrap ErrRefreshFailed. When the provider does
	// not rotate the refresh token the previous one is kept.
	Refresh(
		ctx context.Context,
		cfg *connectorDomain.ProviderConfig,
		refreshToken string,
	) (*connectorDomain.Tokens, error)
}

// Prober checks that an access token still grants access to the provider API.
type Prober interface {
	// Probe returns nil when the provider answered the capability request with 2xx.
	Probe(ctx context.Context, cfg *connectorDomain.ProviderConfig, accessToken string) error
}
