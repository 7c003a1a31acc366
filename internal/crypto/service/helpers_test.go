package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
)

// fastScryptParams keeps key derivation cheap in tests.
var fastScryptParams = ScryptParams{N: 1024, R: 8, P: 1}

func newTestMasterSecret(t *testing.T, fill byte) *cryptoDomain.MasterSecret {
	t.Helper()
	ms, err := cryptoDomain.NewMasterSecret(bytes.Repeat([]byte{fill}, cryptoDomain.MinMasterSecretSize))
	require.NoError(t, err)
	return ms
}

func newTestCipher(t *testing.T) TenantCipher {
	t.Helper()
	return NewTenantCipher(NewTenantKeyDeriver(newTestMasterSecret(t, 'm'), fastScryptParams, 2))
}
