// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	auditHTTP "github.com/allisson/connectors/internal/audit/http"
	auditService "github.com/allisson/connectors/internal/audit/service"
	auditUseCase "github.com/allisson/connectors/internal/audit/usecase"
	authHTTP "github.com/allisson/connectors/internal/auth/http"
	authService "github.com/allisson/connectors/internal/auth/service"
	authUseCase "github.com/allisson/connectors/internal/auth/usecase"
	"github.com/allisson/connectors/internal/config"
	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	connectorHTTP "github.com/allisson/connectors/internal/connector/http"
	connectorUseCase "github.com/allisson/connectors/internal/connector/usecase"
	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
	cryptoService "github.com/allisson/connectors/internal/crypto/service"
	"github.com/allisson/connectors/internal/database"
	"github.com/allisson/connectors/internal/http"
	"github.com/allisson/connectors/internal/metrics"
	"github.com/allisson/connectors/internal/oauth/registry"
	oauthService "github.com/allisson/connectors/internal/oauth/service"
	"github.com/allisson/connectors/internal/scheduler"
)

// lazy holds a component built on first access. The build error is cached with the value.
type lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.val, l.err = build()
	})
	return l.val, l.err
}

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access and shared afterwards.
type Container struct {
	config *config.Config

	// ctx lives until Shutdown and bounds background goroutines started by components.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger      *slog.Logger
	loggerInit  sync.Once
	db          lazy[*sql.DB]
	txManager   lazy[database.TxManager]
	redisClient lazy[*redis.Client]

	// Metrics
	metricsProvider lazy[*metrics.Provider]
	businessMetrics lazy[metrics.BusinessMetrics]

	// Crypto
	kmsService   lazy[cryptoService.KMSService]
	masterSecret lazy[*cryptoDomain.MasterSecret]
	tenantCipher lazy[cryptoService.TenantCipher]
	stateSigner  lazy[oauthService.StateSigner]

	// Auth
	secretService lazy[authService.SecretService]
	tokenService  lazy[authService.TokenService]
	clientRepo    lazy[authUseCase.ClientRepository]
	tokenRepo     lazy[authUseCase.TokenRepository]
	clientUseCase lazy[authUseCase.ClientUseCase]
	tokenUseCase  lazy[authUseCase.TokenUseCase]
	tokenHandler  lazy[*authHTTP.TokenHandler]

	// Audit
	eventRepo    lazy[auditUseCase.EventRepository]
	eventSigner  lazy[auditService.EventSigner]
	eventUseCase lazy[auditUseCase.EventUseCase]
	auditHandler lazy[*auditHTTP.AuditEventHandler]

	// Connectors
	providers        lazy[*connectorDomain.ProviderRegistry]
	nonceRegistry    lazy[registry.NonceRegistry]
	credentialRepo   lazy[connectorUseCase.CredentialRepository]
	lifecycleUseCase lazy[connectorUseCase.LifecycleUseCase]
	connectorHandler lazy[*connectorHTTP.ConnectorHandler]

	// Servers and jobs
	httpServer    lazy[*http.Server]
	metricsServer lazy[*http.MetricsServer]
	scheduler     lazy[*scheduler.Scheduler]

	mu       sync.Mutex
	shutdown bool
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	return c.db.get(c.initDB)
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	return c.txManager.get(func() (database.TxManager, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
		}
		return database.NewTxManager(db), nil
	})
}

// MetricsProvider returns the OpenTelemetry metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return c.metricsProvider.get(func() (*metrics.Provider, error) {
		if !c.config.MetricsEnabled {
			return nil, nil
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics provider: %w", err)
		}
		return provider, nil
	})
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return c.businessMetrics.get(func() (metrics.BusinessMetrics, error) {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return metrics.NewNoOpBusinessMetrics(), nil
		}
		return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	})
}

// HTTPServer returns the API server with its router set up.
func (c *Container) HTTPServer() (*http.Server, error) {
	return c.httpServer.get(c.initHTTPServer)
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return c.metricsServer.get(func() (*http.MetricsServer, error) {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, nil
		}
		return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
	})
}

// Shutdown releases every initialized resource. Servers and the scheduler are stopped by
// their owner before calling it. Calling Shutdown more than once is a no-op.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return nil
	}
	c.shutdown = true
	c.cancel()

	var errs []error

	if provider, err := c.metricsProvider.get(noBuild[*metrics.Provider]); err == nil && provider != nil {
		if err := provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if client, err := c.redisClient.get(noBuild[*redis.Client]); err == nil && client != nil {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if db, err := c.db.get(noBuild[*sql.DB]); err == nil && db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	if ms, err := c.masterSecret.get(noBuild[*cryptoDomain.MasterSecret]); err == nil && ms != nil {
		ms.Close()
	}

	return errors.Join(errs...)
}

// noBuild marks a component as never initialized so Shutdown does not create it.
func noBuild[T any]() (T, error) {
	var zero T
	return zero, nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(c.ctx, database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initHTTPServer creates the API server and wires every route.
func (c *Container) initHTTPServer() (*http.Server, error) {
	connectorHandler, err := c.ConnectorHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get connector handler for http server: %w", err)
	}
	tokenHandler, err := c.TokenHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get token handler for http server: %w", err)
	}
	auditHandler, err := c.AuditEventHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event handler for http server: %w", err)
	}
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for http server: %w", err)
	}
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	server := http.NewServer(c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(
		c.ctx,
		c.config,
		http.Handlers{
			Connector: connectorHandler,
			Token:     tokenHandler,
			Audit:     auditHandler,
		},
		tokenUseCase,
		c.TokenService(),
		metricsProvider,
		db,
	)
	return server, nil
}
