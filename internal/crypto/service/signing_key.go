package service

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
)

// HKDF info labels for the keys derived from the master secret. Versioned so an algorithm
// change can move to a new label without colliding with existing signatures.
const (
	OAuthStateSigningInfo = "oauth-state-signing-v1"
	AuditEventSigningInfo = "audit-event-signing-v1"
)

// DeriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key from the master secret.
// Each info label yields an independent key, separated from the tenant encryption material.
func DeriveSigningKey(masterSecret *cryptoDomain.MasterSecret, info string) ([]byte, error) {
	secret := masterSecret.Bytes()
	defer cryptoDomain.Wipe(secret)

	reader := hkdf.New(sha256.New, secret, nil, []byte(info))
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	return key, nil
}
