// Package http wires the gin router, its middleware chain and the HTTP servers.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	auditHTTP "github.com/allisson/connectors/internal/audit/http"
	authDomain "github.com/allisson/connectors/internal/auth/domain"
	authHTTP "github.com/allisson/connectors/internal/auth/http"
	authService "github.com/allisson/connectors/internal/auth/service"
	authUseCase "github.com/allisson/connectors/internal/auth/usecase"
	"github.com/allisson/connectors/internal/config"
	connectorHTTP "github.com/allisson/connectors/internal/connector/http"
	"github.com/allisson/connectors/internal/metrics"
)

// Server is the public API server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a Server listening on host:port. Call SetupRouter before Start.
func NewServer(host string, port int, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handlers groups the route handlers mounted by SetupRouter.
type Handlers struct {
	Connector *connectorHTTP.ConnectorHandler
	Token     *authHTTP.TokenHandler
	Audit     *auditHTTP.AuditEventHandler
}

// SetupRouter builds the gin engine.
//
// Routes:
//
//	GET    /health, /ready
//	POST   /v1/token                              (IP rate limited)
//	GET    /v1/connectors/:provider/callback      (unauthenticated, tenant from signed state)
//	GET    /v1/connectors                         read
//	POST   /v1/connectors/:provider/authorize     write
//	POST   /v1/connectors/:provider/test          read
//	DELETE /v1/connectors/:provider               delete
//	GET    /v1/audit-events                       read
//
// ctx bounds the readiness probe and the rate limiter cleanup goroutines.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	handlers Handlers,
	tokenUseCase authUseCase.TokenUseCase,
	tokenService authService.TokenService,
	metricsProvider *metrics.Provider,
	pinger Pinger,
) {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(s.logger))
	router.Use(requestid.New())
	router.Use(RequestContextMiddleware())
	router.Use(LoggerMiddleware(s.logger))
	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if cfg.MetricsEnabled && metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", HealthHandler)
	router.GET("/ready", ReadinessHandler(ctx, pinger))

	v1 := router.Group("/v1")

	tokenRoute := []gin.HandlerFunc{}
	if cfg.RateLimitTokenEnabled {
		tokenRoute = append(tokenRoute, authHTTP.TokenRateLimitMiddleware(
			ctx, cfg.RateLimitTokenRequestsPerSec, cfg.RateLimitTokenBurst, s.logger))
	}
	tokenRoute = append(tokenRoute, handlers.Token.IssueTokenHandler)
	v1.POST("/token", tokenRoute...)

	v1.GET("/connectors/:provider/callback", handlers.Connector.CallbackHandler)

	authenticated := v1.Group("")
	authenticated.Use(authHTTP.AuthenticationMiddleware(tokenUseCase, tokenService, s.logger))
	if cfg.RateLimitEnabled {
		authenticated.Use(authHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	read := authHTTP.AuthorizationMiddleware(authDomain.ReadCapability, s.logger)
	write := authHTTP.AuthorizationMiddleware(authDomain.WriteCapability, s.logger)
	remove := authHTTP.AuthorizationMiddleware(authDomain.DeleteCapability, s.logger)

	authenticated.GET("/connectors", read, handlers.Connector.ListHandler)
	authenticated.POST("/connectors/:provider/authorize", write, handlers.Connector.AuthorizeHandler)
	authenticated.POST("/connectors/:provider/test", read, handlers.Connector.TestHandler)
	authenticated.DELETE("/connectors/:provider", remove, handlers.Connector.DisconnectHandler)
	authenticated.GET("/audit-events", read, handlers.Audit.ListHandler)

	s.server.Handler = router
}

// GetHandler returns the configured handler, mainly for tests.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.server.Handler == nil {
		return errors.New("router not configured")
	}

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
