// Package http exposes the tenant audit trail over HTTP.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/connectors/internal/audit/http/dto"
	auditUseCase "github.com/allisson/connectors/internal/audit/usecase"
	authHTTP "github.com/allisson/connectors/internal/auth/http"
	apperrors "github.com/allisson/connectors/internal/errors"
	"github.com/allisson/connectors/internal/httputil"
)

// AuditEventHandler lists the audit events of the caller's tenant.
type AuditEventHandler struct {
	eventUseCase auditUseCase.EventUseCase
	logger       *slog.Logger
}

// NewAuditEventHandler creates an AuditEventHandler.
func NewAuditEventHandler(eventUseCase auditUseCase.EventUseCase, logger *slog.Logger) *AuditEventHandler {
	return &AuditEventHandler{
		eventUseCase: eventUseCase,
		logger:       logger,
	}
}

// ListHandler handles GET /v1/audit-events - Requires ReadCapability.
// Each event carries whether its signature still verifies.
func (h *AuditEventHandler) ListHandler(c *gin.Context) {
	tenantID, ok := authHTTP.TenantID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	events, err := h.eventUseCase.List(c.Request.Context(), tenantID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.ListAuditEventsResponse{Data: make([]dto.AuditEventResponse, 0, len(events))}
	for _, event := range events {
		verified := h.eventUseCase.Verify(event) == nil
		if !verified {
			h.logger.Warn("audit event signature mismatch",
				slog.String("event_id", event.ID.String()),
				slog.String("tenant_id", tenantID))
		}
		response.Data = append(response.Data, dto.MapEventToResponse(event, verified))
	}

	c.JSON(http.StatusOK, response)
}
