// Package repository implements connector credential persistence.
//
// Provides PostgreSQL and MySQL implementations with transaction support via database.GetTx().
// PostgreSQL uses native UUID and JSONB types, MySQL uses BINARY(16) and JSON types.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	"github.com/allisson/connectors/internal/database"
	apperrors "github.com/allisson/connectors/internal/errors"
)

const postgresCredentialColumns = `id, tenant_id, connector_type, is_active, config, last_tested_at,
			  last_error, created_at, updated_at`

// PostgreSQLCredentialRepository implements Credential persistence for PostgreSQL.
type PostgreSQLCredentialRepository struct {
	db *sql.DB
}

// Create inserts a new Credential. The expires_at column mirrors Config.ExpiresAt so the
// proactive refresh job can select expiring rows without decoding JSON.
func (p *PostgreSQLCredentialRepository) Create(
	ctx context.Context,
	credential *connectorDomain.Credential,
) error {
	querier := database.GetTx(ctx, p.db)

	configJSON, err := json.Marshal(credential.Config)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential config")
	}

	query := `INSERT INTO connector_credentials (id, tenant_id, connector_type, is_active, config,
			  expires_at, last_tested_at, last_error, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = querier.ExecContext(
		ctx,
		query,
		credential.ID,
		credential.TenantID,
		string(credential.Provider),
		credential.IsActive,
		configJSON,
		credential.Config.ExpiresAt,
		credential.LastTestedAt,
		credential.LastError,
		credential.CreatedAt,
		credential.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create credential")
	}
	return nil
}

// GetActive returns the newest active credential of the tenant and provider.
// Returns ErrCredentialNotFound when there is none.
func (p *PostgreSQLCredentialRepository) GetActive(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.Credential, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresCredentialColumns + `
			  FROM connector_credentials
			  WHERE tenant_id = $1 AND connector_type = $2 AND is_active = true
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`

	credential, err := scanPostgreSQLCredential(querier.QueryRowContext(ctx, query, tenantID, string(provider)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, connectorDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get active credential")
	}
	return credential, nil
}

// ListActiveByTenant returns every active credential of the tenant, newest first.
func (p *PostgreSQLCredentialRepository) ListActiveByTenant(
	ctx context.Context,
	tenantID string,
) ([]*connectorDomain.Credential, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresCredentialColumns + `
			  FROM connector_credentials
			  WHERE tenant_id = $1 AND is_active = true
			  ORDER BY created_at DESC, id DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	return collectPostgreSQLCredentials(rows)
}

// ListActiveExpiring returns active credentials that carry a refresh token and whose access
// token expires before the given time, ordered by (expires_at, id). A non-nil after resumes
// the listing past that keyset position.
func (p *PostgreSQLCredentialRepository) ListActiveExpiring(
	ctx context.Context,
	before time.Time,
	after *connectorDomain.ExpiringCursor,
	limit int,
) ([]*connectorDomain.Credential, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresCredentialColumns + `
			  FROM connector_credentials
			  WHERE is_active = true AND expires_at IS NOT NULL AND expires_at <= $1
			  AND COALESCE(config->>'encrypted_refresh_token', '') <> ''`
	args := []any{before}
	if after != nil {
		query += ` AND (expires_at, id) > ($2, $3)`
		args = append(args, after.ExpiresAt, after.ID)
	}
	query += fmt.Sprintf(` ORDER BY expires_at ASC, id ASC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expiring credentials")
	}
	return collectPostgreSQLCredentials(rows)
}

// DeactivateAll marks every active credential of the tenant and provider inactive and
// returns the number of rows changed.
func (p *PostgreSQLCredentialRepository) DeactivateAll(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
	updatedAt time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE connector_credentials SET is_active = false, updated_at = $1
			  WHERE tenant_id = $2 AND connector_type = $3 AND is_active = true`

	result, err := querier.ExecContext(ctx, query, updatedAt, tenantID, string(provider))
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to deactivate credentials")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

// Deactivate marks a single credential inactive.
func (p *PostgreSQLCredentialRepository) Deactivate(
	ctx context.Context,
	id uuid.UUID,
	updatedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE connector_credentials SET is_active = false, updated_at = $1 WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, updatedAt, id); err != nil {
		return apperrors.Wrap(err, "failed to deactivate credential")
	}
	return nil
}

// UpdateTestResult records the outcome of the latest connection test.
func (p *PostgreSQLCredentialRepository) UpdateTestResult(
	ctx context.Context,
	id uuid.UUID,
	testedAt time.Time,
	lastError *string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE connector_credentials SET last_tested_at = $1, last_error = $2, updated_at = $3
			  WHERE id = $4`

	if _, err := querier.ExecContext(ctx, query, testedAt, lastError, testedAt, id); err != nil {
		return apperrors.Wrap(err, "failed to update credential test result")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgreSQLCredential(row rowScanner) (*connectorDomain.Credential, error) {
	var credential connectorDomain.Credential
	var provider string
	var configJSON []byte

	err := row.Scan(
		&credential.ID,
		&credential.TenantID,
		&provider,
		&credential.IsActive,
		&configJSON,
		&credential.LastTestedAt,
		&credential.LastError,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	credential.Provider = connectorDomain.Provider(provider)
	if err := json.Unmarshal(configJSON, &credential.Config); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal credential config")
	}
	return &credential, nil
}

func collectPostgreSQLCredentials(rows *sql.Rows) ([]*connectorDomain.Credential, error) {
	defer func() {
		_ = rows.Close()
	}()

	credentials := make([]*connectorDomain.Credential, 0)
	for rows.Next() {
		credential, err := scanPostgreSQLCredential(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential row")
		}
		credentials = append(credentials, credential)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating credential rows")
	}
	return credentials, nil
}

// NewPostgreSQLCredentialRepository creates a new PostgreSQL Credential repository.
func NewPostgreSQLCredentialRepository(db *sql.DB) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{db: db}
}
