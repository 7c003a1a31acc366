package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
	"github.com/allisson/connectors/internal/database"
	apperrors "github.com/allisson/connectors/internal/errors"
)

// MySQLEventRepository implements audit Event persistence for MySQL using BINARY(16) ids.
type MySQLEventRepository struct {
	db *sql.DB
}

// Create inserts a signed audit event.
func (m *MySQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, m.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	metadataJSON, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_events (id, request_id, tenant_id, provider, action, outcome, reason,
			  metadata, signature, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		event.RequestID,
		event.TenantID,
		event.Provider,
		string(event.Action),
		string(event.Outcome),
		event.Reason,
		metadataJSON,
		event.Signature,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// ListByTenant returns the tenant's events newest first.
func (m *MySQLEventRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, request_id, tenant_id, provider, action, outcome, reason, metadata, signature,
			  created_at
			  FROM audit_events
			  WHERE tenant_id = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.Event, 0)
	for rows.Next() {
		var event auditDomain.Event
		var idBytes []byte
		var action, outcome string
		var metadataJSON []byte

		err := rows.Scan(
			&idBytes,
			&event.RequestID,
			&event.TenantID,
			&event.Provider,
			&action,
			&outcome,
			&event.Reason,
			&metadataJSON,
			&event.Signature,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit event row")
		}

		if err := event.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit event id")
		}
		event.Action = auditDomain.Action(action)
		event.Outcome = auditDomain.Outcome(outcome)
		if event.Metadata, err = unmarshalMetadata(metadataJSON); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating audit event rows")
	}
	return events, nil
}

// NewMySQLEventRepository creates a new MySQL audit Event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}
