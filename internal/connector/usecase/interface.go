// Package usecase implements the credential lifecycle of tenant connectors: starting an
// authorization, completing the OAuth callback, keeping tokens fresh, testing and
// disconnecting.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
)

// CredentialRepository persists connector credentials.
type CredentialRepository interface {
	Create(ctx context.Context, credential *connectorDomain.Credential) error
	GetActive(
		ctx context.Context,
		tenantID string,
		provider connectorDomain.Provider,
	) (*connectorDomain.Credential, error)
	ListActiveByTenant(ctx context.Context, tenantID string) ([]*connectorDomain.Credential, error)
	ListActiveExpiring(
		ctx context.Context,
		before time.Time,
		after *connectorDomain.ExpiringCursor,
		limit int,
	) ([]*connectorDomain.Credential, error)
	DeactivateAll(
		ctx context.Context,
		tenantID string,
		provider connectorDomain.Provider,
		updatedAt time.Time,
	) (int64, error)
	Deactivate(ctx context.Context, id uuid.UUID, updatedAt time.Time) error
	UpdateTestResult(ctx context.Context, id uuid.UUID, testedAt time.Time, lastError *string) error
}

// AuditRecorder records lifecycle events. Implementations never fail the caller.
type AuditRecorder interface {
	Record(ctx context.Context, event *auditDomain.Event)
}

// LifecycleUseCase manages the connector credentials of a tenant.
type LifecycleUseCase interface {
	// Initiate registers a nonce, signs a state and returns the provider authorization URL.
	Initiate(
		ctx context.Context,
		tenantID string,
		provider connectorDomain.Provider,
	) (*connectorDomain.AuthorizationRequest, error)

	// CompleteCallback validates the state, consumes its nonce, exchanges the code and stores
	// the encrypted tokens as the only active credential. Every error is a
	// *connectorDomain.CallbackError.
	CompleteCallback(
		ctx context.Context,
		input connectorDomain.CallbackInput,
	) (*connectorDomain.CallbackResult, error)

	// EnsureValidTokens returns usable tokens, refreshing them when they are close to expiry.
	// ErrNotConnected means the connector must be re-authorized.
	EnsureValidTokens(
		ctx context.Context,
		tenantID string,
		provider connectorDomain.Provider,
	) (*connectorDomain.Tokens, error)

	// Disconnect deactivates every active credential of the tenant and provider. Idempotent.
	Disconnect(ctx context.Context, tenantID string, provider connectorDomain.Provider) error

	// TestConnection probes the provider with the current access token and records the result.
	TestConnection(
		ctx context.Context,
		tenantID string,
		provider connectorDomain.Provider,
	) (*connectorDomain.TestResult, error)

	// Status lists every configured provider with the tenant's connection state.
	Status(ctx context.Context, tenantID string) ([]*connectorDomain.ConnectorStatus, error)

	// RefreshExpiring refreshes active credentials that entered the refresh window and
	// returns how many were refreshed.
	RefreshExpiring(ctx context.Context) (int, error)
}
