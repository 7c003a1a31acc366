// Package domain defines the cryptographic domain models for tenant-scoped encryption.
//
// A single process-wide MasterSecret is the root of every derived key: tenant encryption
// keys (HMAC-SHA256 then scrypt), tenant identity tags, and the HKDF-derived signing keys
// for OAuth state and audit events. Nothing derived from it is ever persisted.
package domain

import (
	"fmt"
)

// insecureDevMasterSecret is only ever used when APP_ENV=development and MASTER_SECRET is empty.
const insecureDevMasterSecret = "insecure-development-master-secret-do-not-use"

// MasterSecret holds the process-wide root secret.
//
// It is immutable after construction: Bytes returns a copy so callers cannot mutate the
// shared value, and Close zeroes the backing array on shutdown.
type MasterSecret struct {
	key      []byte
	insecure bool
}

// NewMasterSecret validates and wraps raw secret material.
// Returns ErrMasterSecretNotSet for empty input and ErrMasterSecretTooShort when the
// material is shorter than MinMasterSecretSize. The input slice is copied.
func NewMasterSecret(raw []byte) (*MasterSecret, error) {
	if len(raw) == 0 {
		return nil, ErrMasterSecretNotSet
	}
	if len(raw) < MinMasterSecretSize {
		return nil, fmt.Errorf(
			"%w: must be at least %d bytes, got %d",
			ErrMasterSecretTooShort,
			MinMasterSecretSize,
			len(raw),
		)
	}

	key := make([]byte, len(raw))
	copy(key, raw)
	return &MasterSecret{key: key}, nil
}

// NewInsecureDevMasterSecret returns the fixed development fallback secret.
// Insecure reports true for it so startup logging can flag it loudly.
func NewInsecureDevMasterSecret() *MasterSecret {
	return &MasterSecret{key: []byte(insecureDevMasterSecret), insecure: true}
}

// Bytes returns a copy of the secret material.
func (m *MasterSecret) Bytes() []byte {
	out := make([]byte, len(m.key))
	copy(out, m.key)
	return out
}

// Insecure reports whether this is the development fallback secret.
func (m *MasterSecret) Insecure() bool {
	return m.insecure
}

// Close zeroes the secret material.
func (m *MasterSecret) Close() {
	Wipe(m.key)
}

// String never renders the secret.
func (m *MasterSecret) String() string {
	return "MasterSecret(***)"
}
