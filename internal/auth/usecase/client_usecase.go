package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/connectors/internal/auth/domain"
	authService "github.com/allisson/connectors/internal/auth/service"
)

type clientUseCase struct {
	clientRepo    ClientRepository
	secretService authService.SecretService
}

// Create validates the tenant id, generates a secret and stores the client. Clients created
// without policies receive DefaultPolicies.
func (c *clientUseCase) Create(
	ctx context.Context,
	input *authDomain.CreateClientInput,
) (*authDomain.CreateClientOutput, error) {
	if err := authDomain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}

	plainSecret, hashedSecret, err := c.secretService.GenerateSecret()
	if err != nil {
		return nil, err
	}

	policies := input.Policies
	if len(policies) == 0 {
		policies = authDomain.DefaultPolicies()
	}

	client := &authDomain.Client{
		ID:        uuid.Must(uuid.NewV7()),
		TenantID:  input.TenantID,
		Secret:    hashedSecret,
		Name:      input.Name,
		IsActive:  input.IsActive,
		Policies:  policies,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	return &authDomain.CreateClientOutput{
		ID:          client.ID,
		TenantID:    client.TenantID,
		PlainSecret: plainSecret,
	}, nil
}

func (c *clientUseCase) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	return c.clientRepo.Get(ctx, clientID)
}

func (c *clientUseCase) Unlock(ctx context.Context, clientID uuid.UUID) error {
	if _, err := c.clientRepo.Get(ctx, clientID); err != nil {
		return err
	}
	return c.clientRepo.UpdateLockState(ctx, clientID, 0, nil)
}

// NewClientUseCase creates a new ClientUseCase with the provided dependencies.
func NewClientUseCase(clientRepo ClientRepository, secretService authService.SecretService) ClientUseCase {
	return &clientUseCase{
		clientRepo:    clientRepo,
		secretService: secretService,
	}
}
