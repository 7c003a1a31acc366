// Package service implements the OAuth state signer and validator.
package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
	cryptoService "github.com/allisson/connectors/internal/crypto/service"
	oauthDomain "github.com/allisson/connectors/internal/oauth/domain"
)

// StateSigner builds and verifies signed, time-boxed OAuth states.
type StateSigner interface {
	// GenerateNonce returns 32 random bytes encoded as unpadded base64url.
	GenerateNonce() (string, error)

	// Sign returns provider:tenantID:nonce:timestampMillis:signature.
	// Fields must be non-empty and must not contain the separator.
	Sign(tenantID, provider, nonce string) (string, error)

	// Validate never fails: any parse error, bad signature or expiry yields Valid=false.
	Validate(state string) oauthDomain.StateToken

	// MaxAge returns the validity window shared with the nonce registry.
	MaxAge() time.Duration
}

// Option configures a StateSigner.
type Option func(*stateSigner)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *stateSigner) {
		s.now = now
	}
}

// WithMaxAge overrides the validity window.
func WithMaxAge(maxAge time.Duration) Option {
	return func(s *stateSigner) {
		if maxAge > 0 {
			s.maxAge = maxAge
		}
	}
}

type stateSigner struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewStateSigner derives the state signing key from the master secret with HKDF, so it is
// never the same as any tenant encryption key material.
func NewStateSigner(masterSecret *cryptoDomain.MasterSecret, opts ...Option) (StateSigner, error) {
	key, err := cryptoService.DeriveSigningKey(masterSecret, cryptoService.OAuthStateSigningInfo)
	if err != nil {
		return nil, err
	}

	s := &stateSigner{
		key:    key,
		maxAge: oauthDomain.DefaultStateMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *stateSigner) GenerateNonce() (string, error) {
	buf := make([]byte, oauthDomain.NonceSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *stateSigner) Sign(tenantID, provider, nonce string) (string, error) {
	for _, field := range []string{provider, tenantID, nonce} {
		if field == "" || strings.Contains(field, oauthDomain.StateSeparator) {
			return "", oauthDomain.ErrInvalidStateField
		}
	}

	timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	payload := strings.Join([]string{provider, tenantID, nonce, timestamp}, oauthDomain.StateSeparator)
	return payload + oauthDomain.StateSeparator + s.signature(payload), nil
}

func (s *stateSigner) Validate(state string) oauthDomain.StateToken {
	fields := strings.Split(state, oauthDomain.StateSeparator)
	if len(fields) != oauthDomain.StateFieldCount {
		return oauthDomain.StateToken{}
	}
	for _, field := range fields {
		if field == "" {
			return oauthDomain.StateToken{}
		}
	}

	millis, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return oauthDomain.StateToken{}
	}

	token := oauthDomain.StateToken{
		Provider:  fields[0],
		TenantID:  fields[1],
		Nonce:     fields[2],
		Timestamp: time.UnixMilli(millis),
	}

	// The signature covers the received bytes, not a re-encoding of the parsed values.
	payload := strings.Join(fields[:4], oauthDomain.StateSeparator)
	expected := s.signature(payload)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(fields[4])) != 1 {
		return token
	}

	age := s.now().Sub(token.Timestamp)
	if age >= s.maxAge || age < -oauthDomain.MaxClockSkew {
		return token
	}

	token.Valid = true
	return token
}

func (s *stateSigner) MaxAge() time.Duration {
	return s.maxAge
}

func (s *stateSigner) signature(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
