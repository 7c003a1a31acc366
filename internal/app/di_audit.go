package app

import (
	"fmt"

	auditHTTP "github.com/allisson/connectors/internal/audit/http"
	auditRepository "github.com/allisson/connectors/internal/audit/repository"
	auditService "github.com/allisson/connectors/internal/audit/service"
	auditUseCase "github.com/allisson/connectors/internal/audit/usecase"
	"github.com/allisson/connectors/internal/database"
)

// EventRepository returns the audit event repository based on database driver.
func (c *Container) EventRepository() (auditUseCase.EventRepository, error) {
	return c.eventRepo.get(func() (auditUseCase.EventRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for audit event repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return auditRepository.NewPostgreSQLEventRepository(db), nil
		case database.DriverMySQL:
			return auditRepository.NewMySQLEventRepository(db), nil
		default:
			return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedDriver, c.config.DBDriver)
		}
	})
}

// EventSigner returns the audit event signer keyed from the master secret.
func (c *Container) EventSigner() (auditService.EventSigner, error) {
	return c.eventSigner.get(func() (auditService.EventSigner, error) {
		ms, err := c.MasterSecret()
		if err != nil {
			return nil, err
		}
		signer, err := auditService.NewEventSigner(ms)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit event signer: %w", err)
		}
		return signer, nil
	})
}

// EventUseCase returns the audit event use case.
func (c *Container) EventUseCase() (auditUseCase.EventUseCase, error) {
	return c.eventUseCase.get(func() (auditUseCase.EventUseCase, error) {
		eventRepo, err := c.EventRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit event repository for audit use case: %w", err)
		}
		signer, err := c.EventSigner()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit event signer for audit use case: %w", err)
		}
		return auditUseCase.NewEventUseCase(eventRepo, signer, c.Logger()), nil
	})
}

// AuditEventHandler returns the HTTP handler for audit event listing.
func (c *Container) AuditEventHandler() (*auditHTTP.AuditEventHandler, error) {
	return c.auditHandler.get(func() (*auditHTTP.AuditEventHandler, error) {
		eventUseCase, err := c.EventUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit event use case for audit handler: %w", err)
		}
		return auditHTTP.NewAuditEventHandler(eventUseCase, c.Logger()), nil
	})
}
