// Package usecase defines business logic for tenant API clients and their bearer tokens.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/connectors/internal/auth/domain"
)

// ClientRepository defines persistence operations for tenant API clients.
// Implementations must support transaction-aware operations via context propagation.
type ClientRepository interface {
	Create(ctx context.Context, client *authDomain.Client) error

	// Get returns ErrClientNotFound if the client does not exist.
	Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error)

	UpdateLockState(ctx context.Context, clientID uuid.UUID, failedAttempts int, lockedUntil *time.Time) error
}

// TokenRepository defines persistence operations for bearer tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *authDomain.Token) error

	// GetByTokenHash returns ErrTokenNotFound if no token has the hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*authDomain.Token, error)

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ClientUseCase manages tenant API clients.
type ClientUseCase interface {
	// Create stores a client with a freshly generated secret. The plain secret is returned once.
	Create(ctx context.Context, input *authDomain.CreateClientInput) (*authDomain.CreateClientOutput, error)

	Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error)

	// Unlock clears a lockout.
	Unlock(ctx context.Context, clientID uuid.UUID) error
}

// TokenUseCase issues and authenticates bearer tokens.
type TokenUseCase interface {
	Issue(ctx context.Context, input *authDomain.IssueTokenInput) (*authDomain.IssueTokenOutput, error)

	// Authenticate resolves a token hash to its active client.
	Authenticate(ctx context.Context, tokenHash string) (*authDomain.Client, error)

	// PurgeExpired deletes tokens that are past their expiry.
	PurgeExpired(ctx context.Context) (int64, error)
}
