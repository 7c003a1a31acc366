package app

import (
	"fmt"

	authHTTP "github.com/allisson/connectors/internal/auth/http"
	authRepository "github.com/allisson/connectors/internal/auth/repository"
	authService "github.com/allisson/connectors/internal/auth/service"
	authUseCase "github.com/allisson/connectors/internal/auth/usecase"
	"github.com/allisson/connectors/internal/database"
)

// SecretService returns the client secret hashing service.
func (c *Container) SecretService() (authService.SecretService, error) {
	return c.secretService.get(authService.NewSecretService)
}

// TokenService returns the bearer token service.
func (c *Container) TokenService() authService.TokenService {
	svc, _ := c.tokenService.get(func() (authService.TokenService, error) {
		return authService.NewTokenService(), nil
	})
	return svc
}

// ClientRepository returns the client repository based on database driver.
func (c *Container) ClientRepository() (authUseCase.ClientRepository, error) {
	return c.clientRepo.get(func() (authUseCase.ClientRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for client repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return authRepository.NewPostgreSQLClientRepository(db), nil
		case database.DriverMySQL:
			return authRepository.NewMySQLClientRepository(db), nil
		default:
			return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedDriver, c.config.DBDriver)
		}
	})
}

// TokenRepository returns the token repository based on database driver.
func (c *Container) TokenRepository() (authUseCase.TokenRepository, error) {
	return c.tokenRepo.get(func() (authUseCase.TokenRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for token repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return authRepository.NewPostgreSQLTokenRepository(db), nil
		case database.DriverMySQL:
			return authRepository.NewMySQLTokenRepository(db), nil
		default:
			return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedDriver, c.config.DBDriver)
		}
	})
}

// ClientUseCase returns the client use case.
func (c *Container) ClientUseCase() (authUseCase.ClientUseCase, error) {
	return c.clientUseCase.get(func() (authUseCase.ClientUseCase, error) {
		clientRepo, err := c.ClientRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get client repository for client use case: %w", err)
		}
		secretService, err := c.SecretService()
		if err != nil {
			return nil, fmt.Errorf("failed to get secret service for client use case: %w", err)
		}

		baseUseCase := authUseCase.NewClientUseCase(clientRepo, secretService)

		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return nil, fmt.Errorf("failed to get business metrics for client use case: %w", err)
			}
			return authUseCase.NewClientUseCaseWithMetrics(baseUseCase, businessMetrics), nil
		}
		return baseUseCase, nil
	})
}

// TokenUseCase returns the token use case.
func (c *Container) TokenUseCase() (authUseCase.TokenUseCase, error) {
	return c.tokenUseCase.get(func() (authUseCase.TokenUseCase, error) {
		clientRepo, err := c.ClientRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get client repository for token use case: %w", err)
		}
		tokenRepo, err := c.TokenRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
		}
		secretService, err := c.SecretService()
		if err != nil {
			return nil, fmt.Errorf("failed to get secret service for token use case: %w", err)
		}

		baseUseCase := authUseCase.NewTokenUseCase(
			c.config,
			clientRepo,
			tokenRepo,
			secretService,
			c.TokenService(),
		)

		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
			}
			return authUseCase.NewTokenUseCaseWithMetrics(baseUseCase, businessMetrics), nil
		}
		return baseUseCase, nil
	})
}

// TokenHandler returns the HTTP handler for token issuance.
func (c *Container) TokenHandler() (*authHTTP.TokenHandler, error) {
	return c.tokenHandler.get(func() (*authHTTP.TokenHandler, error) {
		tokenUseCase, err := c.TokenUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get token use case for token handler: %w", err)
		}
		return authHTTP.NewTokenHandler(tokenUseCase, c.Logger()), nil
	})
}
