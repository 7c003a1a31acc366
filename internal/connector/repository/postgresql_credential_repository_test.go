package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	"github.com/allisson/connectors/internal/database"
)

var credentialColumns = []string{
	"id", "tenant_id", "connector_type", "is_active", "config",
	"last_tested_at", "last_error", "created_at", "updated_at",
}

func newTestCredential(t *testing.T) *connectorDomain.Credential {
	t.Helper()
	expiresAt := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	now := time.Now().UTC().Truncate(time.Second)
	return &connectorDomain.Credential{
		ID:       uuid.Must(uuid.NewV7()),
		TenantID: "tenant-1",
		Provider: connectorDomain.ProviderGoogleCalendar,
		IsActive: true,
		Config: connectorDomain.CredentialConfig{
			EncryptedAccessToken:  "enc-access",
			EncryptedRefreshToken: "enc-refresh",
			ExpiresAt:             &expiresAt,
			Scope:                 "calendar",
			TokenType:             "Bearer",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func credentialRow(t *testing.T, c *connectorDomain.Credential, id driver.Value) []driver.Value {
	t.Helper()
	configJSON, err := json.Marshal(c.Config)
	require.NoError(t, err)
	return []driver.Value{
		id, c.TenantID, string(c.Provider), c.IsActive, configJSON,
		nil, nil, c.CreatedAt, c.UpdatedAt,
	}
}

func TestPostgreSQLCredentialRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLCredentialRepository(db)
	credential := newTestCredential(t)

	mock.ExpectExec("INSERT INTO connector_credentials").
		WithArgs(
			sqlmock.AnyArg(),
			"tenant-1",
			"google_calendar",
			true,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), credential))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_Create_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	mock.ExpectExec("INSERT INTO connector_credentials").WillReturnError(errors.New("boom"))

	err = NewPostgreSQLCredentialRepository(db).Create(context.Background(), newTestCredential(t))
	assert.ErrorContains(t, err, "failed to create credential")
}

func TestPostgreSQLCredentialRepository_GetActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLCredentialRepository(db)
	credential := newTestCredential(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM connector_credentials").
			WithArgs("tenant-1", "google_calendar").
			WillReturnRows(sqlmock.NewRows(credentialColumns).
				AddRow(credentialRow(t, credential, credential.ID.String())...))

		got, err := repo.GetActive(context.Background(), "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)
		assert.Equal(t, credential.ID, got.ID)
		assert.Equal(t, connectorDomain.ProviderGoogleCalendar, got.Provider)
		assert.Equal(t, "enc-access", got.Config.EncryptedAccessToken)
		assert.Equal(t, "enc-refresh", got.Config.EncryptedRefreshToken)
		require.NotNil(t, got.Config.ExpiresAt)
		assert.True(t, credential.Config.ExpiresAt.Equal(*got.Config.ExpiresAt))
		assert.Nil(t, got.LastTestedAt)
		assert.Nil(t, got.LastError)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM connector_credentials").
			WithArgs("tenant-2", "hubspot").
			WillReturnRows(sqlmock.NewRows(credentialColumns))

		got, err := repo.GetActive(context.Background(), "tenant-2", connectorDomain.ProviderHubSpot)
		assert.ErrorIs(t, err, connectorDomain.ErrCredentialNotFound)
		assert.Nil(t, got)
	})

	t.Run("invalid config json", func(t *testing.T) {
		row := credentialRow(t, credential, credential.ID.String())
		row[4] = []byte("{not json")
		mock.ExpectQuery("SELECT (.+) FROM connector_credentials").
			WillReturnRows(sqlmock.NewRows(credentialColumns).AddRow(row...))

		_, err := repo.GetActive(context.Background(), "tenant-1", connectorDomain.ProviderGoogleCalendar)
		assert.ErrorContains(t, err, "failed to unmarshal credential config")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_ListActiveByTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	first := newTestCredential(t)
	second := newTestCredential(t)
	second.Provider = connectorDomain.ProviderHubSpot

	mock.ExpectQuery("SELECT (.+) FROM connector_credentials").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows(credentialColumns).
			AddRow(credentialRow(t, first, first.ID.String())...).
			AddRow(credentialRow(t, second, second.ID.String())...))

	got, err := NewPostgreSQLCredentialRepository(db).ListActiveByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, connectorDomain.ProviderHubSpot, got[1].Provider)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_ListActiveExpiring(t *testing.T) {
	credential := newTestCredential(t)
	before := time.Now().Add(5 * time.Minute)

	t.Run("first page", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() {
			_ = db.Close()
		}()

		mock.ExpectQuery(`SELECT (.+) FROM connector_credentials WHERE is_active = true AND expires_at `+
			`IS NOT NULL AND expires_at <= \$1 AND COALESCE\(config->>'encrypted_refresh_token', ''\) <> '' `+
			`ORDER BY expires_at ASC, id ASC LIMIT \$2`).
			WithArgs(before, 50).
			WillReturnRows(sqlmock.NewRows(credentialColumns).
				AddRow(credentialRow(t, credential, credential.ID.String())...))

		got, err := NewPostgreSQLCredentialRepository(db).ListActiveExpiring(context.Background(), before, nil, 50)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, credential.ID, got[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("resumes after cursor", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() {
			_ = db.Close()
		}()

		cursor := connectorDomain.NextExpiringCursor(credential)
		mock.ExpectQuery(`SELECT (.+) FROM connector_credentials (.+) `+
			`AND \(expires_at, id\) > \(\$2, \$3\) ORDER BY expires_at ASC, id ASC LIMIT \$4`).
			WithArgs(before, cursor.ExpiresAt, cursor.ID, 50).
			WillReturnRows(sqlmock.NewRows(credentialColumns))

		got, err := NewPostgreSQLCredentialRepository(db).ListActiveExpiring(context.Background(), before, cursor, 50)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLCredentialRepository_DeactivateAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	now := time.Now()
	mock.ExpectExec("UPDATE connector_credentials SET is_active = false").
		WithArgs(now, "tenant-1", "salesforce").
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := NewPostgreSQLCredentialRepository(db).
		DeactivateAll(context.Background(), "tenant-1", connectorDomain.ProviderSalesforce, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_UpdateTestResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	id := uuid.Must(uuid.NewV7())
	now := time.Now()
	lastError := "probe returned 401"

	mock.ExpectExec("UPDATE connector_credentials SET last_tested_at").
		WithArgs(now, &lastError, now, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewPostgreSQLCredentialRepository(db).UpdateTestResult(context.Background(), id, now, &lastError)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLCredentialRepository_UsesTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLCredentialRepository(db)
	txManager := database.NewTxManager(db)
	credential := newTestCredential(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE connector_credentials SET is_active = false").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO connector_credentials").
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err = txManager.WithTx(context.Background(), func(ctx context.Context) error {
		if _, err := repo.DeactivateAll(ctx, credential.TenantID, credential.Provider, now); err != nil {
			return err
		}
		return repo.Create(ctx, credential)
	})
	assert.ErrorContains(t, err, "insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
