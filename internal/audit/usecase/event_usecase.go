package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
	auditService "github.com/allisson/connectors/internal/audit/service"
	apperrors "github.com/allisson/connectors/internal/errors"
)

type eventUseCase struct {
	eventRepo EventRepository
	signer    auditService.EventSigner
	logger    *slog.Logger
}

// Record masks, signs and stores an event. ID, CreatedAt and RequestID are filled in
// when empty.
func (e *eventUseCase) Record(ctx context.Context, event *auditDomain.Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.Must(uuid.NewV7())
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	// Both databases store microseconds; the signature must survive the round trip.
	event.CreatedAt = event.CreatedAt.Truncate(time.Microsecond)
	if event.RequestID == "" {
		event.RequestID = auditDomain.RequestIDFromContext(ctx)
	}
	event.Metadata = auditDomain.MaskMetadata(event.Metadata)

	signature, err := e.signer.Sign(event)
	if err != nil {
		e.logger.Error("failed to sign audit event",
			slog.String("action", string(event.Action)),
			slog.String("tenant_id", event.TenantID),
			slog.Any("error", err))
		return
	}
	event.Signature = signature

	if err := e.eventRepo.Create(ctx, event); err != nil {
		e.logger.Error("failed to store audit event",
			slog.String("action", string(event.Action)),
			slog.String("tenant_id", event.TenantID),
			slog.Any("error", err))
	}
}

// List returns the tenant's events newest first.
func (e *eventUseCase) List(
	ctx context.Context,
	tenantID string,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	events, err := e.eventRepo.ListByTenant(ctx, tenantID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return events, nil
}

// Verify checks the event signature.
func (e *eventUseCase) Verify(event *auditDomain.Event) error {
	return e.signer.Verify(event)
}

// NewEventUseCase creates the audit EventUseCase.
func NewEventUseCase(
	eventRepo EventRepository,
	signer auditService.EventSigner,
	logger *slog.Logger,
) EventUseCase {
	return &eventUseCase{
		eventRepo: eventRepo,
		signer:    signer,
		logger:    logger,
	}
}
