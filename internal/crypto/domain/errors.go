package domain

import (
	"github.com/allisson/connectors/internal/errors"
)

// Cryptographic error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so the HTTP
// layer can map them without knowing about cryptography.
var (
	// ErrMasterSecretNotSet indicates MASTER_SECRET is missing outside development.
	//
	// This is a startup configuration error: the process must refuse to start rather
	// than fail on the first request that needs a tenant key.
	ErrMasterSecretNotSet = errors.New("master secret is not set")

	// ErrMasterSecretTooShort indicates MASTER_SECRET is shorter than MinMasterSecretSize.
	ErrMasterSecretTooShort = errors.New("master secret is too short")

	// ErrInvalidMasterSecretBase64 indicates a KMS-wrapped MASTER_SECRET is not valid base64.
	ErrInvalidMasterSecretBase64 = errors.New("invalid master secret base64")

	// ErrInvalidKeySize indicates a key or salt of the wrong length was supplied.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidTenantID indicates an empty tenant id was supplied.
	ErrInvalidTenantID = errors.Wrap(errors.ErrInvalidInput, "invalid tenant id")

	// ErrDecryptionFailed indicates a blob could not be decrypted.
	//
	// This single error covers a malformed or truncated blob, a tenant tag that does
	// not belong to the claimed tenant and an authentication failure of the ciphertext.
	// Callers never learn which check failed, so the error cannot be used as an oracle.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
