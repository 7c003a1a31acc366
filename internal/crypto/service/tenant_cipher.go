package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
)

// tenantCipher implements TenantCipher with AES-256-GCM under a per-call derived key.
// The AAD binds every ciphertext to "tenant:" + tenantID.
type tenantCipher struct {
	deriver TenantKeyDeriver
}

// NewTenantCipher creates a TenantCipher backed by deriver.
func NewTenantCipher(deriver TenantKeyDeriver) TenantCipher {
	return &tenantCipher{deriver: deriver}
}

func tenantAAD(tenantID string) []byte {
	return []byte(cryptoDomain.TenantLabelPrefix + tenantID)
}

// Encrypt draws a fresh random salt, so every call derives a different key and the
// output differs even for identical plaintexts.
func (c *tenantCipher) Encrypt(ctx context.Context, plaintext, tenantID string) (string, error) {
	if tenantID == "" {
		return "", cryptoDomain.ErrInvalidTenantID
	}

	salt := make([]byte, cryptoDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := c.deriver.DeriveTenantKey(ctx, tenantID, salt)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Wipe(key)

	aead, err := NewAESGCM(key)
	if err != nil {
		return "", err
	}

	ciphertext, nonce, err := aead.Encrypt([]byte(plaintext), tenantAAD(tenantID))
	if err != nil {
		return "", err
	}

	blob := &cryptoDomain.EncryptedBlob{
		Salt:       salt,
		Nonce:      nonce,
		TenantTag:  c.deriver.TenantTag(tenantID),
		Ciphertext: ciphertext,
	}
	return blob.Encode(), nil
}

// Decrypt checks the tenant tag in constant time before any key derivation. Every failure
// except context cancellation collapses into ErrDecryptionFailed.
func (c *tenantCipher) Decrypt(ctx context.Context, encoded, tenantID string) (string, error) {
	if tenantID == "" {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	blob, err := cryptoDomain.ParseEncryptedBlob(encoded)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	if subtle.ConstantTimeCompare(blob.TenantTag, c.deriver.TenantTag(tenantID)) != 1 {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	key, err := c.deriver.DeriveTenantKey(ctx, tenantID, blob.Salt)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", cryptoDomain.ErrDecryptionFailed
	}
	defer cryptoDomain.Wipe(key)

	aead, err := NewAESGCM(key)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	plaintext, err := aead.Decrypt(blob.Ciphertext, blob.Nonce, tenantAAD(tenantID))
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}
	return string(plaintext), nil
}
