// Package dto provides response objects for the audit API.
package dto

import (
	"time"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
)

// AuditEventResponse is one entry of the tenant audit trail.
type AuditEventResponse struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id,omitempty"`
	Provider  string         `json:"provider"`
	Action    string         `json:"action"`
	Outcome   string         `json:"outcome"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Verified  bool           `json:"verified"`
	CreatedAt time.Time      `json:"created_at"`
}

// ListAuditEventsResponse wraps a page of audit events.
type ListAuditEventsResponse struct {
	Data []AuditEventResponse `json:"data"`
}

// MapEventToResponse maps an event and its signature check result.
func MapEventToResponse(event *auditDomain.Event, verified bool) AuditEventResponse {
	return AuditEventResponse{
		ID:        event.ID.String(),
		RequestID: event.RequestID,
		Provider:  event.Provider,
		Action:    string(event.Action),
		Outcome:   string(event.Outcome),
		Reason:    event.Reason,
		Metadata:  event.Metadata,
		Verified:  verified,
		CreatedAt: event.CreatedAt,
	}
}
