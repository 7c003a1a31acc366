// Package domain defines tenant API clients, their policies and bearer tokens.
//
// A client belongs to exactly one tenant. Every authenticated request runs on behalf of that
// tenant, so connector operations never take a tenant id from the request itself.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PolicyDocument grants capabilities on a path pattern.
//
// Patterns: "*" matches everything, "prefix/*" matches any path below prefix, and a "*"
// segment matches exactly one path segment.
type PolicyDocument struct {
	Path         string       `json:"path"`
	Capabilities []Capability `json:"capabilities"`
}

// Client is a tenant API client.
type Client struct {
	ID             uuid.UUID
	TenantID       string
	Secret         string //nolint:gosec // hashed client secret
	Name           string
	IsActive       bool
	Policies       []PolicyDocument
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
}

func matchPath(policyPath, requestPath string) bool {
	if policyPath == "*" {
		return true
	}

	if !strings.Contains(policyPath, "*") {
		return policyPath == requestPath
	}

	if strings.HasSuffix(policyPath, "/*") {
		prefix := strings.TrimSuffix(policyPath, "/*")
		return strings.HasPrefix(requestPath, prefix+"/")
	}

	policyParts := strings.Split(policyPath, "/")
	requestParts := strings.Split(requestPath, "/")
	if len(policyParts) != len(requestParts) {
		return false
	}
	for i := range policyParts {
		if policyParts[i] != "*" && policyParts[i] != requestParts[i] {
			return false
		}
	}
	return true
}

// IsAllowed reports whether any policy grants capability on path.
func (c *Client) IsAllowed(path string, capability Capability) bool {
	if path == "" || capability == "" {
		return false
	}
	for _, policy := range c.Policies {
		if matchPath(policy.Path, path) && slices.Contains(policy.Capabilities, capability) {
			return true
		}
	}
	return false
}

// IsLocked reports whether the client is inside a lockout window at now.
func (c *Client) IsLocked(now time.Time) bool {
	return c.LockedUntil != nil && c.LockedUntil.After(now)
}

// DefaultPolicies grants full access to the connector API.
func DefaultPolicies() []PolicyDocument {
	return []PolicyDocument{
		{
			Path:         "/v1/connectors/*",
			Capabilities: []Capability{ReadCapability, WriteCapability, DeleteCapability},
		},
		{
			Path:         "/v1/connectors",
			Capabilities: []Capability{ReadCapability},
		},
		{
			Path:         "/v1/audit-events",
			Capabilities: []Capability{ReadCapability},
		},
	}
}

// CreateClientInput holds the fields of a new client.
type CreateClientInput struct {
	TenantID string
	Name     string
	IsActive bool
	Policies []PolicyDocument
}

// CreateClientOutput carries the new client id and its plain secret, shown once.
type CreateClientOutput struct {
	ID          uuid.UUID
	TenantID    string
	PlainSecret string //nolint:gosec // returned once to the operator
}

// MaxTenantIDLength bounds tenant ids stored on clients.
const MaxTenantIDLength = 128

// ValidateTenantID rejects tenant ids that cannot travel inside an OAuth state.
func ValidateTenantID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" || len(tenantID) > MaxTenantIDLength ||
		strings.Contains(tenantID, ":") {
		return ErrInvalidTenantID
	}
	return nil
}
