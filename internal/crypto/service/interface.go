// Package service provides the tenant-scoped cryptographic services.
// Implements tenant key derivation (HMAC-SHA256 then scrypt), the AES-256-GCM tenant
// cipher and master secret unwrapping through a KMS.
package service

import (
	"context"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// TenantKeyDeriver derives per-tenant key material from the master secret.
type TenantKeyDeriver interface {
	// DeriveTenantKey returns the 32-byte key for tenantID and salt. The same inputs
	// always produce the same key. The caller owns the returned slice and should zero it.
	DeriveTenantKey(ctx context.Context, tenantID string, salt []byte) ([]byte, error)

	// TenantTag returns the 8-byte tenant identity tag. It does not depend on any salt,
	// so it can be checked before running the expensive key derivation.
	TenantTag(tenantID string) []byte
}

// TenantCipher encrypts and decrypts strings scoped to a single tenant.
type TenantCipher interface {
	// Encrypt returns a base64 blob carrying a fresh salt, a fresh nonce, the tenant tag
	// and the authenticated ciphertext.
	Encrypt(ctx context.Context, plaintext, tenantID string) (string, error)

	// Decrypt reverses Encrypt. Any malformed blob, tenant mismatch or authentication
	// failure returns cryptoDomain.ErrDecryptionFailed.
	Decrypt(ctx context.Context, blob, tenantID string) (string, error)
}
