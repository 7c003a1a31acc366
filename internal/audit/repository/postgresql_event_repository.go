// Package repository persists audit events for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
	"github.com/allisson/connectors/internal/database"
	apperrors "github.com/allisson/connectors/internal/errors"
)

// PostgreSQLEventRepository implements audit Event persistence for PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// Create inserts a signed audit event. Metadata is stored as JSONB, NULL when empty.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_events (id, request_id, tenant_id, provider, action, outcome, reason,
			  metadata, signature, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = querier.ExecContext(
		ctx,
		query,
		event.ID,
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
func (p *PostgreSQLEventRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, request_id, tenant_id, provider, action, outcome, reason, metadata, signature,
			  created_at
			  FROM audit_events
			  WHERE tenant_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`

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
		var action, outcome string
		var metadataJSON []byte

		err := rows.Scan(
			&event.ID,
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

// marshalMetadata returns an untyped nil for empty metadata so the column is stored as NULL.
func marshalMetadata(metadata map[string]any) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit metadata")
	}
	return metadataJSON, nil
}

func unmarshalMetadata(metadataJSON []byte) (map[string]any, error) {
	if metadataJSON == nil {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit metadata")
	}
	return metadata, nil
}

// NewPostgreSQLEventRepository creates a new PostgreSQL audit Event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}
