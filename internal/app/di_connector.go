package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	connectorHTTP "github.com/allisson/connectors/internal/connector/http"
	connectorRepository "github.com/allisson/connectors/internal/connector/repository"
	connectorService "github.com/allisson/connectors/internal/connector/service"
	connectorUseCase "github.com/allisson/connectors/internal/connector/usecase"
	"github.com/allisson/connectors/internal/database"
	"github.com/allisson/connectors/internal/oauth/registry"
)

// Nonce registry drivers.
const (
	NonceRegistryMemory = "memory"
	NonceRegistryRedis  = "redis"
)

// ProviderRegistry returns the OAuth provider configurations merged with the deployment settings.
func (c *Container) ProviderRegistry() *connectorDomain.ProviderRegistry {
	providers, _ := c.providers.get(func() (*connectorDomain.ProviderRegistry, error) {
		overrides := make([]connectorDomain.ProviderConfig, 0, len(c.config.Providers))
		for name, settings := range c.config.Providers {
			overrides = append(overrides, connectorDomain.ProviderConfig{
				Provider:     connectorDomain.Provider(name),
				ClientID:     settings.ClientID,
				ClientSecret: settings.ClientSecret,
				AuthURL:      settings.AuthURL,
				TokenURL:     settings.TokenURL,
				ProbeURL:     settings.ProbeURL,
				Scopes:       settings.Scopes,
				RedirectURI:  settings.RedirectURI,
			})
		}
		return connectorDomain.NewProviderRegistry(overrides...), nil
	})
	return providers
}

// RedisClient returns the client of the shared nonce registry.
func (c *Container) RedisClient() (*redis.Client, error) {
	return c.redisClient.get(func() (*redis.Client, error) {
		client, err := registry.NewRedisClient(c.ctx, c.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return client, nil
	})
}

// NonceRegistry returns the single-use nonce registry selected by NonceRegistryDriver.
// Nonces share the validity window of the state signer.
func (c *Container) NonceRegistry() (registry.NonceRegistry, error) {
	return c.nonceRegistry.get(func() (registry.NonceRegistry, error) {
		signer, err := c.StateSigner()
		if err != nil {
			return nil, fmt.Errorf("failed to get state signer for nonce registry: %w", err)
		}

		switch c.config.NonceRegistryDriver {
		case NonceRegistryMemory, "":
			return registry.NewMemoryRegistry(signer.MaxAge()), nil
		case NonceRegistryRedis:
			client, err := c.RedisClient()
			if err != nil {
				return nil, err
			}
			return registry.NewRedisRegistry(client, signer.MaxAge()), nil
		default:
			return nil, fmt.Errorf("unsupported nonce registry driver: %s", c.config.NonceRegistryDriver)
		}
	})
}

// CredentialRepository returns the connector credential repository based on database driver.
func (c *Container) CredentialRepository() (connectorUseCase.CredentialRepository, error) {
	return c.credentialRepo.get(func() (connectorUseCase.CredentialRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for credential repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return connectorRepository.NewPostgreSQLCredentialRepository(db), nil
		case database.DriverMySQL:
			return connectorRepository.NewMySQLCredentialRepository(db), nil
		default:
			return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedDriver, c.config.DBDriver)
		}
	})
}

// LifecycleUseCase returns the connector credential lifecycle use case.
func (c *Container) LifecycleUseCase() (connectorUseCase.LifecycleUseCase, error) {
	return c.lifecycleUseCase.get(c.initLifecycleUseCase)
}

// ConnectorHandler returns the HTTP handler for the connector endpoints.
func (c *Container) ConnectorHandler() (*connectorHTTP.ConnectorHandler, error) {
	return c.connectorHandler.get(func() (*connectorHTTP.ConnectorHandler, error) {
		lifecycle, err := c.LifecycleUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get lifecycle use case for connector handler: %w", err)
		}
		return connectorHTTP.NewConnectorHandler(lifecycle, c.config.OAuthAppRedirectURL, c.Logger()), nil
	})
}

func (c *Container) initLifecycleUseCase() (connectorUseCase.LifecycleUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for lifecycle use case: %w", err)
	}
	credentialRepo, err := c.CredentialRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential repository for lifecycle use case: %w", err)
	}
	cipher, err := c.TenantCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant cipher for lifecycle use case: %w", err)
	}
	signer, err := c.StateSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get state signer for lifecycle use case: %w", err)
	}
	nonces, err := c.NonceRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce registry for lifecycle use case: %w", err)
	}
	eventUseCase, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event use case for lifecycle use case: %w", err)
	}

	baseUseCase := connectorUseCase.NewLifecycleUseCase(
		txManager,
		credentialRepo,
		c.ProviderRegistry(),
		cipher,
		signer,
		nonces,
		connectorService.NewTokenExchanger(c.config.OAuthHTTPTimeout),
		connectorService.NewProber(c.config.OAuthHTTPTimeout),
		eventUseCase,
		c.Logger(),
		connectorUseCase.WithRefreshWindow(c.config.OAuthRefreshWindow),
		connectorUseCase.WithRefreshTimeout(2*c.config.OAuthHTTPTimeout),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for lifecycle use case: %w", err)
		}
		return connectorUseCase.NewLifecycleUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}
	return baseUseCase, nil
}
