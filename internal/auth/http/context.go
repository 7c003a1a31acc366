package http

import (
	"context"

	authDomain "github.com/allisson/connectors/internal/auth/domain"
)

type clientKey struct{}

// WithClient stores the authenticated client in ctx.
func WithClient(ctx context.Context, client *authDomain.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// GetClient returns the authenticated client stored by AuthenticationMiddleware.
func GetClient(ctx context.Context) (*authDomain.Client, bool) {
	client, ok := ctx.Value(clientKey{}).(*authDomain.Client)
	return client, ok && client != nil
}

// TenantID returns the tenant of the authenticated client.
func TenantID(ctx context.Context) (string, bool) {
	client, ok := GetClient(ctx)
	if !ok || client.TenantID == "" {
		return "", false
	}
	return client.TenantID, true
}
