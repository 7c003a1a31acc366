package registry

import (
	"context"
	"sync"
	"time"

	oauthDomain "github.com/allisson/connectors/internal/oauth/domain"
)

// MemoryRegistry keeps nonces in a process-local map.
//
// Register, Consume and Sweep all hold the same mutex, so a sweep can never remove an
// entry while another goroutine is consuming it. Entries do not survive restarts.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]oauthDomain.Nonce
	maxAge  time.Duration
	now     func() time.Time
}

// NewMemoryRegistry creates an in-memory registry whose entries live for maxAge.
func NewMemoryRegistry(maxAge time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]oauthDomain.Nonce),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Register stores the nonce. An expired entry with the same value is replaced.
func (r *MemoryRegistry) Register(ctx context.Context, nonce, tenantID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.entries[nonce]; ok && !existing.Expired(now, r.maxAge) {
		return oauthDomain.ErrNonceExists
	}

	r.entries[nonce] = oauthDomain.Nonce{
		Value:     nonce,
		TenantID:  tenantID,
		Provider:  provider,
		CreatedAt: now,
	}
	return nil
}

// Consume takes the nonce out of the map.
func (r *MemoryRegistry) Consume(ctx context.Context, nonce string) (*oauthDomain.Nonce, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[nonce]
	if !ok {
		return nil, oauthDomain.ErrNonceNotFound
	}
	delete(r.entries, nonce)

	if entry.Expired(r.now(), r.maxAge) {
		return nil, oauthDomain.ErrNonceNotFound
	}
	return &entry, nil
}

// Sweep drops every entry at least maxAge old.
func (r *MemoryRegistry) Sweep(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for value, entry := range r.entries {
		if entry.Expired(now, r.maxAge) {
			delete(r.entries, value)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
