package domain

import (
	"github.com/allisson/connectors/internal/errors"
)

// OAuth state and nonce errors.
var (
	// ErrInvalidState indicates a malformed, forged or expired state.
	ErrInvalidState = errors.Wrap(errors.ErrInvalidInput, "invalid or expired oauth state")

	// ErrInvalidStateField indicates a state field that is empty or contains the separator.
	ErrInvalidStateField = errors.Wrap(errors.ErrInvalidInput, "invalid oauth state field")

	// ErrNonceExists indicates a nonce was registered twice.
	ErrNonceExists = errors.Wrap(errors.ErrConflict, "nonce already registered")

	// ErrNonceNotFound indicates the nonce is unknown, expired or already consumed.
	ErrNonceNotFound = errors.Wrap(errors.ErrNotFound, "nonce not found")

	// ErrNonceMismatch indicates the nonce belongs to another tenant or provider.
	ErrNonceMismatch = errors.Wrap(errors.ErrForbidden, "nonce does not match state")
)
