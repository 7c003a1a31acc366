package domain

// Layout of an encrypted blob before base64 encoding:
//
//	salt (16) || nonce (12) || tenant tag (8) || ciphertext || GCM tag (16)
//
// The salt feeds the per-call tenant key derivation, the nonce is the AES-GCM nonce and
// the tenant tag identifies the owning tenant without deriving any key.
const (
	// SaltSize is the size in bytes of the random per-encryption scrypt salt.
	SaltSize = 16

	// NonceSize is the size in bytes of the random AES-256-GCM nonce.
	NonceSize = 12

	// TenantTagSize is the size in bytes of the tenant identity tag.
	TenantTagSize = 8

	// AuthTagSize is the size in bytes of the GCM authentication tag appended to the ciphertext.
	AuthTagSize = 16

	// KeySize is the size in bytes of every derived tenant key.
	KeySize = 32

	// MinMasterSecretSize is the shortest master secret accepted outside development.
	MinMasterSecretSize = 32

	// HeaderSize is the number of bytes preceding the ciphertext in a blob.
	HeaderSize = SaltSize + NonceSize + TenantTagSize

	// MinBlobSize is the smallest decoded blob that can hold an empty plaintext.
	MinBlobSize = HeaderSize + AuthTagSize
)

// TenantLabelPrefix is prepended to the tenant id in every tenant-scoped HMAC input.
const TenantLabelPrefix = "tenant:"
