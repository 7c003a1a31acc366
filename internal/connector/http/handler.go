// Package http provides HTTP handlers for the tenant connector endpoints.
package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/connectors/internal/auth/http"
	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	"github.com/allisson/connectors/internal/connector/http/dto"
	connectorUseCase "github.com/allisson/connectors/internal/connector/usecase"
	apperrors "github.com/allisson/connectors/internal/errors"
	"github.com/allisson/connectors/internal/httputil"
)

// ConnectorHandler serves the connector lifecycle endpoints. Every endpoint except the
// OAuth callback runs behind the authentication middleware, which supplies the tenant.
type ConnectorHandler struct {
	lifecycle      connectorUseCase.LifecycleUseCase
	appRedirectURL string
	logger         *slog.Logger
}

// NewConnectorHandler creates a connector handler. appRedirectURL is where browsers land
// after the OAuth callback.
func NewConnectorHandler(
	lifecycle connectorUseCase.LifecycleUseCase,
	appRedirectURL string,
	logger *slog.Logger,
) *ConnectorHandler {
	return &ConnectorHandler{
		lifecycle:      lifecycle,
		appRedirectURL: appRedirectURL,
		logger:         logger,
	}
}

// tenantAndProvider resolves the authenticated tenant and the :provider path segment.
// It writes the error response and returns false on failure.
func (h *ConnectorHandler) tenantAndProvider(c *gin.Context) (string, connectorDomain.Provider, bool) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return "", "", false
	}

	provider, err := connectorDomain.ParseProvider(c.Param("provider"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return "", "", false
	}
	return tenantID, provider, true
}

func (h *ConnectorHandler) tenant(c *gin.Context) (string, bool) {
	tenantID, ok := authHTTP.TenantID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return "", false
	}
	return tenantID, true
}

// ListHandler lists every configured provider with the tenant's connection state.
// GET /v1/connectors - Requires ReadCapability.
func (h *ConnectorHandler) ListHandler(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	statuses, err := h.lifecycle.Status(c.Request.Context(), tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatusesToListResponse(statuses))
}

// AuthorizeHandler starts an OAuth authorization flow.
// POST /v1/connectors/:provider/authorize - Requires WriteCapability.
// Returns 200 OK with the provider authorization URL.
func (h *ConnectorHandler) AuthorizeHandler(c *gin.Context) {
	tenantID, provider, ok := h.tenantAndProvider(c)
	if !ok {
		return
	}

	request, err := h.lifecycle.Initiate(c.Request.Context(), tenantID, provider)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuthorizationToResponse(request))
}

// CallbackHandler completes an OAuth authorization flow. The tenant comes from the signed
// state, so this endpoint is unauthenticated.
// GET /v1/connectors/:provider/callback - Always redirects to the application.
func (h *ConnectorHandler) CallbackHandler(c *gin.Context) {
	var req dto.CallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.redirectError(c, connectorDomain.ReasonOAuthCallbackFailed)
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.Warn("oauth callback parameters rejected", slog.Any("error", err))
		h.redirectError(c, connectorDomain.ReasonOAuthCallbackFailed)
		return
	}

	result, err := h.lifecycle.CompleteCallback(c.Request.Context(), connectorDomain.CallbackInput{
		Provider: c.Param("provider"),
		Code:     req.Code,
		State:    req.State,
		Error:    req.Error,
	})
	if err != nil {
		reason := connectorDomain.ReasonOAuthCallbackFailed
		var callbackErr *connectorDomain.CallbackError
		if apperrors.As(err, &callbackErr) {
			reason = callbackErr.Reason
		}
		h.redirectError(c, reason)
		return
	}

	httputil.RedirectWithQuery(c, h.appRedirectURL, url.Values{
		"success":  {"true"},
		"provider": {result.Provider.String()},
	})
}

func (h *ConnectorHandler) redirectError(c *gin.Context, reason connectorDomain.CallbackReason) {
	httputil.RedirectWithQuery(c, h.appRedirectURL, url.Values{"error": {string(reason)}})
}

// TestHandler probes the provider with the tenant's current credential.
// POST /v1/connectors/:provider/test - Requires ReadCapability.
func (h *ConnectorHandler) TestHandler(c *gin.Context) {
	tenantID, provider, ok := h.tenantAndProvider(c)
	if !ok {
		return
	}

	result, err := h.lifecycle.TestConnection(c.Request.Context(), tenantID, provider)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTestResultToResponse(result))
}

// DisconnectHandler deactivates the tenant's credentials for the provider. Idempotent.
// DELETE /v1/connectors/:provider - Requires DeleteCapability.
func (h *ConnectorHandler) DisconnectHandler(c *gin.Context) {
	tenantID, provider, ok := h.tenantAndProvider(c)
	if !ok {
		return
	}

	if err := h.lifecycle.Disconnect(c.Request.Context(), tenantID, provider); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DisconnectResponse{
		Success:  true,
		Provider: provider.String(),
		Message:  "connector disconnected",
	})
}
