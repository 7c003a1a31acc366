package domain

import (
	"github.com/allisson/connectors/internal/errors"
)

var (
	// ErrSignatureInvalid indicates an audit event was modified after signing.
	ErrSignatureInvalid = errors.Wrap(errors.ErrInvalidInput, "audit event signature is invalid")

	// ErrEventNotFound indicates the audit event does not exist.
	ErrEventNotFound = errors.Wrap(errors.ErrNotFound, "audit event not found")
)
