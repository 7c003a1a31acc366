package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	"github.com/allisson/connectors/internal/database"
	apperrors "github.com/allisson/connectors/internal/errors"
)

const mysqlCredentialColumns = `id, tenant_id, connector_type, is_active, config, last_tested_at,
			  last_error, created_at, updated_at`

// MySQLCredentialRepository implements Credential persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLCredentialRepository struct {
	db *sql.DB
}

// Create inserts a new Credential using BINARY(16) for the id.
func (m *MySQLCredentialRepository) Create(
	ctx context.Context,
	credential *connectorDomain.Credential,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := credential.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential id")
	}

	configJSON, err := json.Marshal(credential.Config)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential config")
	}

	query := `INSERT INTO connector_credentials (id, tenant_id, connector_type, is_active, config,
			  expires_at, last_tested_at, last_error, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLCredentialRepository) GetActive(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.Credential, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlCredentialColumns + `
			  FROM connector_credentials
			  WHERE tenant_id = ? AND connector_type = ? AND is_active = true
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`

	credential, err := scanMySQLCredential(querier.QueryRowContext(ctx, query, tenantID, string(provider)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, connectorDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get active credential")
	}
	return credential, nil
}

// ListActiveByTenant returns every active credential of the tenant, newest first.
func (m *MySQLCredentialRepository) ListActiveByTenant(
	ctx context.Context,
	tenantID string,
) ([]*connectorDomain.Credential, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlCredentialColumns + `
			  FROM connector_credentials
			  WHERE tenant_id = ? AND is_active = true
			  ORDER BY created_at DESC, id DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	return collectMySQLCredentials(rows)
}

// ListActiveExpiring returns active credentials that carry a refresh token and expire before
// the given time, ordered by (expires_at, id) and resuming past after when it is set.
func (m *MySQLCredentialRepository) ListActiveExpiring(
	ctx context.Context,
	before time.Time,
	after *connectorDomain.ExpiringCursor,
	limit int,
) ([]*connectorDomain.Credential, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlCredentialColumns + `
			  FROM connector_credentials
			  WHERE is_active = true AND expires_at IS NOT NULL AND expires_at <= ?
			  AND COALESCE(JSON_UNQUOTE(JSON_EXTRACT(config, '$.encrypted_refresh_token')), '') <> ''`
	args := []any{before}
	if after != nil {
		afterID, err := after.ID.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal cursor id")
		}
		query += ` AND (expires_at, id) > (?, ?)`
		args = append(args, after.ExpiresAt, afterID)
	}
	query += ` ORDER BY expires_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expiring credentials")
	}
	return collectMySQLCredentials(rows)
}

// DeactivateAll marks every active credential of the tenant and provider inactive.
func (m *MySQLCredentialRepository) DeactivateAll(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
	updatedAt time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE connector_credentials SET is_active = false, updated_at = ?
			  WHERE tenant_id = ? AND connector_type = ? AND is_active = true`

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
func (m *MySQLCredentialRepository) Deactivate(
	ctx context.Context,
	id uuid.UUID,
	updatedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential id")
	}

	query := `UPDATE connector_credentials SET is_active = false, updated_at = ? WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, updatedAt, idBytes); err != nil {
		return apperrors.Wrap(err, "failed to deactivate credential")
	}
	return nil
}

// UpdateTestResult records the outcome of the latest connection test.
func (m *MySQLCredentialRepository) UpdateTestResult(
	ctx context.Context,
	id uuid.UUID,
	testedAt time.Time,
	lastError *string,
) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential id")
	}

	query := `UPDATE connector_credentials SET last_tested_at = ?, last_error = ?, updated_at = ?
			  WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, testedAt, lastError, testedAt, idBytes); err != nil {
		return apperrors.Wrap(err, "failed to update credential test result")
	}
	return nil
}

func scanMySQLCredential(row rowScanner) (*connectorDomain.Credential, error) {
	var credential connectorDomain.Credential
	var idBytes []byte
	var provider string
	var configJSON []byte

	err := row.Scan(
		&idBytes,
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

	if err := credential.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal credential id")
	}

	credential.Provider = connectorDomain.Provider(provider)
	if err := json.Unmarshal(configJSON, &credential.Config); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal credential config")
	}
	return &credential, nil
}

func collectMySQLCredentials(rows *sql.Rows) ([]*connectorDomain.Credential, error) {
	defer func() {
		_ = rows.Close()
	}()

	credentials := make([]*connectorDomain.Credential, 0)
	for rows.Next() {
		credential, err := scanMySQLCredential(rows)
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

// NewMySQLCredentialRepository creates a new MySQL Credential repository.
func NewMySQLCredentialRepository(db *sql.DB) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{db: db}
}
