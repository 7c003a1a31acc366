// Package registry provides the one-time nonce registry backing OAuth state validation.
//
// Two implementations share one contract: MemoryRegistry for single-instance deployments
// and RedisRegistry for deployments running several instances behind a load balancer.
package registry

import (
	"context"

	oauthDomain "github.com/allisson/connectors/internal/oauth/domain"
)

// NonceRegistry stores short-lived nonces that can be taken exactly once.
type NonceRegistry interface {
	// Register stores a nonce for tenantID and provider.
	// Returns oauthDomain.ErrNonceExists if the nonce is already live.
	Register(ctx context.Context, nonce, tenantID, provider string) error

	// Consume atomically removes and returns the nonce. When several callers race for the
	// same nonce exactly one receives it; the others get oauthDomain.ErrNonceNotFound.
	// Expired entries are reported as not found.
	Consume(ctx context.Context, nonce string) (*oauthDomain.Nonce, error)

	// Sweep removes expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}
