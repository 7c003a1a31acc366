// Package httputil holds the JSON error envelope, pagination parsing and redirect helpers
// shared by the connectors API handlers.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	apperrors "github.com/allisson/connectors/internal/errors"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// errorRule maps an error to a response. exposeError copies err.Error() into the message;
// only input errors do that.
type errorRule struct {
	target      error
	status      int
	code        string
	message     string
	exposeError bool
}

// errorRules are matched in order: connector errors before the sentinels they wrap.
var errorRules = []errorRule{
	{
		target:  connectorDomain.ErrNotConnected,
		status:  http.StatusNotFound,
		code:    "not_connected",
		message: "The connector is not connected",
	},
	{
		target:  connectorDomain.ErrUnknownProvider,
		status:  http.StatusUnprocessableEntity,
		code:    "unknown_provider",
		message: "The provider is not supported",
	},
	{
		target:  connectorDomain.ErrProviderNotConfigured,
		status:  http.StatusUnprocessableEntity,
		code:    "provider_not_configured",
		message: "The provider is not configured for this deployment",
	},
	{
		target:  apperrors.ErrNotFound,
		status:  http.StatusNotFound,
		code:    "not_found",
		message: "The requested resource was not found",
	},
	{
		target:  apperrors.ErrConflict,
		status:  http.StatusConflict,
		code:    "conflict",
		message: "A conflict occurred with existing data",
	},
	{
		target:      apperrors.ErrInvalidInput,
		status:      http.StatusUnprocessableEntity,
		code:        "invalid_input",
		exposeError: true,
	},
	{
		target:  apperrors.ErrUnauthorized,
		status:  http.StatusUnauthorized,
		code:    "unauthorized",
		message: "Authentication is required",
	},
	{
		target:  apperrors.ErrLocked,
		status:  http.StatusLocked,
		code:    "client_locked",
		message: "Client is locked due to too many failed authentication attempts",
	},
	{
		target:  apperrors.ErrForbidden,
		status:  http.StatusForbidden,
		code:    "forbidden",
		message: "The client policy does not grant access to this resource",
	},
	{
		target:  apperrors.ErrUnavailable,
		status:  http.StatusServiceUnavailable,
		code:    "unavailable",
		message: "A provider or backing service is unavailable",
	},
}

var internalErrorRule = errorRule{
	status:  http.StatusInternalServerError,
	code:    "internal_error",
	message: "An internal error occurred",
}

func matchErrorRule(err error) errorRule {
	for _, rule := range errorRules {
		if apperrors.Is(err, rule.target) {
			return rule
		}
	}
	return internalErrorRule
}

// HandleErrorGin writes the JSON error for err. Details of unmatched errors stay in the log.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	rule := matchErrorRule(err)
	response := ErrorResponse{
		Error:     rule.code,
		Message:   rule.message,
		RequestID: requestid.Get(c),
	}
	if rule.exposeError {
		response.Message = err.Error()
	}

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", rule.status),
			slog.String("error_code", rule.code),
			slog.String("request_id", response.RequestID),
			slog.String("route", c.FullPath()),
			slog.Any("error", err),
		)
	}

	c.JSON(rule.status, response)
}

// HandleBadRequestGin writes a 400 for malformed bodies or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusBadRequest, "bad_request", err, logger)
}

// HandleValidationErrorGin writes a 422 for DTO validation failures.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusUnprocessableEntity, "validation_error", err, logger)
}

func writeClientError(c *gin.Context, status int, code string, err error, logger *slog.Logger) {
	response := ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		RequestID: requestid.Get(c),
	}
	if logger != nil {
		logger.Warn("rejected request",
			slog.String("error_code", code),
			slog.String("request_id", response.RequestID),
			slog.Any("error", err))
	}
	c.JSON(status, response)
}
