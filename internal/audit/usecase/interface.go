// Package usecase records and lists signed audit events.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
)

// EventRepository persists audit events.
type EventRepository interface {
	Create(ctx context.Context, event *auditDomain.Event) error
	ListByTenant(ctx context.Context, tenantID string, offset, limit int) ([]*auditDomain.Event, error)
}

// Recorder records lifecycle audit events. Record never fails the caller: storage or
// signing problems are logged and swallowed.
type Recorder interface {
	Record(ctx context.Context, event *auditDomain.Event)
}

// EventUseCase exposes the audit trail of a tenant.
type EventUseCase interface {
	Recorder
	List(ctx context.Context, tenantID string, offset, limit int) ([]*auditDomain.Event, error)
	Verify(event *auditDomain.Event) error
}
