package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/connectors/internal/auth/domain"
	authService "github.com/allisson/connectors/internal/auth/service"
	"github.com/allisson/connectors/internal/config"
)

type tokenUseCase struct {
	config        *config.Config
	clientRepo    ClientRepository
	tokenRepo     TokenRepository
	secretService authService.SecretService
	tokenService  authService.TokenService
	now           func() time.Time
}

// Issue authenticates a client by id and secret and stores a new token.
//
// Unknown clients and wrong secrets both return ErrInvalidCredentials. Every wrong secret
// increments the client's failed attempt counter; reaching LockoutMaxAttempts locks the client
// for LockoutDuration and returns ErrClientLocked. A successful issue clears the counter.
func (t *tokenUseCase) Issue(
	ctx context.Context,
	input *authDomain.IssueTokenInput,
) (*authDomain.IssueTokenOutput, error) {
	client, err := t.clientRepo.Get(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, authDomain.ErrClientNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := t.now().UTC()
	if client.IsLocked(now) {
		return nil, authDomain.ErrClientLocked
	}
	if !client.IsActive {
		return nil, authDomain.ErrClientInactive
	}

	if !t.secretService.CompareSecret(input.ClientSecret, client.Secret) {
		return nil, t.recordFailedAttempt(ctx, client, now)
	}

	if client.FailedAttempts > 0 || client.LockedUntil != nil {
		if err := t.clientRepo.UpdateLockState(ctx, client.ID, 0, nil); err != nil {
			return nil, err
		}
	}

	plainToken, tokenHash, err := t.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	token := &authDomain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: tokenHash,
		ClientID:  client.ID,
		ExpiresAt: now.Add(t.config.AuthTokenExpiration),
		CreatedAt: now,
	}
	if err := t.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &authDomain.IssueTokenOutput{
		PlainToken: plainToken,
		ExpiresAt:  token.ExpiresAt,
	}, nil
}

func (t *tokenUseCase) recordFailedAttempt(ctx context.Context, client *authDomain.Client, now time.Time) error {
	attempts := client.FailedAttempts + 1
	var lockedUntil *time.Time
	if t.config.LockoutMaxAttempts > 0 && attempts >= t.config.LockoutMaxAttempts {
		until := now.Add(t.config.LockoutDuration)
		lockedUntil = &until
		attempts = 0
	}

	if err := t.clientRepo.UpdateLockState(ctx, client.ID, attempts, lockedUntil); err != nil {
		return err
	}
	if lockedUntil != nil {
		return authDomain.ErrClientLocked
	}
	return authDomain.ErrInvalidCredentials
}

// Authenticate returns ErrInvalidCredentials for unknown, expired or revoked tokens and
// ErrClientInactive when the owning client was disabled after issuance.
func (t *tokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*authDomain.Client, error) {
	token, err := t.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, authDomain.ErrTokenNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !token.IsUsable(t.now().UTC()) {
		return nil, authDomain.ErrInvalidCredentials
	}

	client, err := t.clientRepo.Get(ctx, token.ClientID)
	if err != nil {
		if errors.Is(err, authDomain.ErrClientNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !client.IsActive {
		return nil, authDomain.ErrClientInactive
	}
	return client, nil
}

func (t *tokenUseCase) PurgeExpired(ctx context.Context) (int64, error) {
	return t.tokenRepo.DeleteExpired(ctx, t.now().UTC())
}

// NewTokenUseCase creates a new TokenUseCase with the provided dependencies.
func NewTokenUseCase(
	config *config.Config,
	clientRepo ClientRepository,
	tokenRepo TokenRepository,
	secretService authService.SecretService,
	tokenService authService.TokenService,
) TokenUseCase {
	return &tokenUseCase{
		config:        config,
		clientRepo:    clientRepo,
		tokenRepo:     tokenRepo,
		secretService: secretService,
		tokenService:  tokenService,
		now:           time.Now,
	}
}
