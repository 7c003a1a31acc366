// Package service provides secret hashing and bearer token generation for tenant API clients.
package service

// SecretService generates and verifies client secrets.
type SecretService interface {
	// GenerateSecret returns a random plain secret and its Argon2id hash.
	GenerateSecret() (plainSecret string, hashedSecret string, err error)

	// HashSecret hashes a plain secret in PHC format.
	HashSecret(plainSecret string) (hashedSecret string, err error)

	// CompareSecret reports whether plainSecret matches hashedSecret.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenService generates bearer tokens and the hashes stored for them.
type TokenService interface {
	// GenerateToken returns a random plain token and its SHA-256 hex hash.
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken returns the SHA-256 hex hash of plainToken.
	HashToken(plainToken string) string
}
