package domain

import (
	"github.com/allisson/connectors/internal/errors"
)

var (
	// ErrClientNotFound indicates the client does not exist.
	ErrClientNotFound = errors.Wrap(errors.ErrNotFound, "client not found")

	// ErrTokenNotFound indicates the token does not exist.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrInvalidCredentials covers unknown clients, wrong secrets and unusable tokens alike.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrClientInactive indicates the client exists but is disabled.
	ErrClientInactive = errors.Wrap(errors.ErrForbidden, "client is inactive")

	// ErrClientLocked indicates too many failed attempts.
	ErrClientLocked = errors.Wrap(errors.ErrLocked, "client is locked")

	// ErrInvalidCapability indicates an unknown capability name.
	ErrInvalidCapability = errors.Wrap(errors.ErrInvalidInput, "invalid capability")

	// ErrInvalidTenantID indicates an empty or malformed tenant id on a client.
	ErrInvalidTenantID = errors.Wrap(errors.ErrInvalidInput, "invalid tenant id")
)
