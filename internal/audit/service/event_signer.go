// Package service signs and verifies audit events.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
	cryptoService "github.com/allisson/connectors/internal/crypto/service"
)

// EventSigner produces and checks HMAC-SHA256 signatures over audit events.
type EventSigner interface {
	// Sign returns the 32-byte signature of the event's canonical form.
	Sign(event *auditDomain.Event) ([]byte, error)

	// Verify returns auditDomain.ErrSignatureInvalid if the event changed after signing.
	Verify(event *auditDomain.Event) error
}

type eventSigner struct {
	signingKey []byte
}

// NewEventSigner derives the audit signing key from the master secret with HKDF-SHA256
// under the "audit-event-signing-v1" label.
func NewEventSigner(masterSecret *cryptoDomain.MasterSecret) (EventSigner, error) {
	key, err := cryptoService.DeriveSigningKey(masterSecret, cryptoService.AuditEventSigningInfo)
	if err != nil {
		return nil, err
	}
	return &eventSigner{signingKey: key}, nil
}

// canonicalize converts an event to the byte representation that gets signed.
// Format: id || request_id || tenant_id || provider || action || outcome || reason ||
// metadata || created_at, with variable-length fields length-prefixed.
func canonicalize(event *auditDomain.Event) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, event.ID[:]...)
	buf = appendLengthPrefixed(buf, []byte(event.RequestID))
	buf = appendLengthPrefixed(buf, []byte(event.TenantID))
	buf = appendLengthPrefixed(buf, []byte(event.Provider))
	buf = appendLengthPrefixed(buf, []byte(event.Action))
	buf = appendLengthPrefixed(buf, []byte(event.Outcome))
	buf = appendLengthPrefixed(buf, []byte(event.Reason))

	if event.Metadata != nil {
		// encoding/json sorts map keys, so the serialization is deterministic.
		metadataBytes, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		buf = appendLengthPrefixed(buf, metadataBytes)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(event.CreatedAt.UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

func (s *eventSigner) Sign(event *auditDomain.Event) ([]byte, error) {
	canonical, err := canonicalize(event)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize event: %w", err)
	}

	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

func (s *eventSigner) Verify(event *auditDomain.Event) error {
	expected, err := s.Sign(event)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(event.Signature, expected) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}
