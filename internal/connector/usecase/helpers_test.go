package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	connectorService "github.com/allisson/connectors/internal/connector/service"
	cryptoDomain "github.com/allisson/connectors/internal/crypto/domain"
	cryptoService "github.com/allisson/connectors/internal/crypto/service"
	"github.com/allisson/connectors/internal/oauth/registry"
	oauthService "github.com/allisson/connectors/internal/oauth/service"
)

type txMarker struct{}

// fakeStore is an in-memory credential store. Writes inside fakeTxManager.WithTx are
// invisible to readers outside the transaction until it finishes.
type fakeStore struct {
	txMu          sync.RWMutex
	mu            sync.Mutex
	credentials   []*connectorDomain.Credential
	expiringPages int
}

func (s *fakeStore) readLock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	s.txMu.RLock()
	return s.txMu.RUnlock
}

func (s *fakeStore) Create(ctx context.Context, credential *connectorDomain.Credential) error {
	defer s.readLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *credential
	s.credentials = append(s.credentials, &c)
	return nil
}

func (s *fakeStore) GetActive(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.Credential, error) {
	defer s.readLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.credentials) - 1; i >= 0; i-- {
		c := s.credentials[i]
		if c.IsActive && c.TenantID == tenantID && c.Provider == provider {
			out := *c
			return &out, nil
		}
	}
	return nil, connectorDomain.ErrCredentialNotFound
}

func (s *fakeStore) ListActiveByTenant(
	ctx context.Context,
	tenantID string,
) ([]*connectorDomain.Credential, error) {
	defer s.readLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*connectorDomain.Credential, 0)
	for i := len(s.credentials) - 1; i >= 0; i-- {
		c := s.credentials[i]
		if c.IsActive && c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListActiveExpiring(
	ctx context.Context,
	before time.Time,
	after *connectorDomain.ExpiringCursor,
	limit int,
) ([]*connectorDomain.Credential, error) {
	defer s.readLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*connectorDomain.Credential, 0)
	for _, c := range s.credentials {
		if !c.Refreshable() || c.Config.ExpiresAt == nil || c.Config.ExpiresAt.After(before) {
			continue
		}
		if after != nil && !expiringAfter(c, after) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return expiringAfter(out[j], connectorDomain.NextExpiringCursor(out[i]))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	s.expiringPages++
	return out, nil
}

// expiringAfter reports whether c sorts after the cursor by (expires_at, id).
func expiringAfter(c *connectorDomain.Credential, cursor *connectorDomain.ExpiringCursor) bool {
	if !c.Config.ExpiresAt.Equal(cursor.ExpiresAt) {
		return c.Config.ExpiresAt.After(cursor.ExpiresAt)
	}
	return bytes.Compare(c.ID[:], cursor.ID[:]) > 0
}

func (s *fakeStore) DeactivateAll(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
	updatedAt time.Time,
) (int64, error) {
	defer s.readLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.credentials {
		if c.IsActive && c.TenantID == tenantID && c.Provider == provider {
			c.IsActive = false
			c.UpdatedAt = updatedAt
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) Deactivate(ctx context.Context, id uuid.UUID, updatedAt time.Time) error {
	defer s.readLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.ID == id {
			c.IsActive = false
			c.UpdatedAt = updatedAt
		}
	}
	return nil
}

func (s *fakeStore) UpdateTestResult(
	ctx context.Context,
	id uuid.UUID,
	testedAt time.Time,
	lastError *string,
) error {
	defer s.readLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.ID == id {
			t := testedAt
			c.LastTestedAt = &t
			c.LastError = lastError
		}
	}
	return nil
}

func (s *fakeStore) countActive(tenantID string, provider connectorDomain.Provider) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.credentials {
		if c.IsActive && c.TenantID == tenantID && c.Provider == provider {
			n++
		}
	}
	return n
}

func (s *fakeStore) pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiringPages
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.credentials)
}

type fakeTxManager struct {
	store *fakeStore
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.store.txMu.Lock()
	defer f.store.txMu.Unlock()
	return fn(context.WithValue(ctx, txMarker{}, true))
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []*auditDomain.Event
}

func (f *fakeRecorder) Record(_ context.Context, event *auditDomain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeRecorder) last() *auditDomain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[len(f.events)-1]
}

// fakeProvider serves token and probe endpoints. Code "valid-code" and refresh token "def"
// succeed; access tokens starting with "abc" pass the probe.
type fakeProvider struct {
	server        *httptest.Server
	refreshCalls  atomic.Int32
	exchangeCalls atomic.Int32
	refreshDelay  time.Duration
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			p.exchangeCalls.Add(1)
			if r.PostForm.Get("code") != "valid-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"bad code"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "abc",
				"refresh_token": "def",
				"expires_in":    3600,
				"token_type":    "Bearer",
				"scope":         "calendar.readonly",
			})
		case "refresh_token":
			p.refreshCalls.Add(1)
			if p.refreshDelay > 0 {
				time.Sleep(p.refreshDelay)
			}
			if r.PostForm.Get("refresh_token") != "def" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "abc-refreshed",
				"expires_in":   3600,
				"token_type":   "Bearer",
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/probe", func(w http.ResponseWriter, r *http.Request) {
		if len(r.Header.Get("Authorization")) < len("Bearer abc") ||
			r.Header.Get("Authorization")[:len("Bearer abc")] != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

type harness struct {
	useCase   LifecycleUseCase
	store     *fakeStore
	recorder  *fakeRecorder
	registry  *registry.MemoryRegistry
	signer    oauthService.StateSigner
	cipher    cryptoService.TenantCipher
	provider  *fakeProvider
	providers *connectorDomain.ProviderRegistry
	logs      *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ms, err := cryptoDomain.NewMasterSecret(bytes.Repeat([]byte{'k'}, cryptoDomain.MinMasterSecretSize))
	require.NoError(t, err)

	signer, err := oauthService.NewStateSigner(ms)
	require.NoError(t, err)

	fake := newFakeProvider(t)
	providerOverride := func(p connectorDomain.Provider) connectorDomain.ProviderConfig {
		return connectorDomain.ProviderConfig{
			Provider:     p,
			ClientID:     "client-" + p.String(),
			ClientSecret: "secret-" + p.String(),
			AuthURL:      fake.server.URL + "/authorize",
			TokenURL:     fake.server.URL + "/token",
			ProbeURL:     fake.server.URL + "/probe",
			RedirectURI:  "https://app.example.com/v1/connectors/" + p.String() + "/callback",
		}
	}
	providers := connectorDomain.NewProviderRegistry(
		providerOverride(connectorDomain.ProviderGoogleCalendar),
		providerOverride(connectorDomain.ProviderHubSpot),
	)

	cipher := cryptoService.NewTenantCipher(
		cryptoService.NewTenantKeyDeriver(ms, cryptoService.ScryptParams{N: 1024, R: 8, P: 1}, 4),
	)
	store := &fakeStore{}
	recorder := &fakeRecorder{}
	nonces := registry.NewMemoryRegistry(signer.MaxAge())
	logs := &bytes.Buffer{}

	useCase := NewLifecycleUseCase(
		&fakeTxManager{store: store},
		store,
		providers,
		cipher,
		signer,
		nonces,
		connectorService.NewTokenExchanger(5*time.Second),
		connectorService.NewProber(5*time.Second),
		recorder,
		slog.New(slog.NewJSONHandler(&lockedWriter{w: logs}, &slog.HandlerOptions{Level: slog.LevelDebug})),
	)

	return &harness{
		useCase:   useCase,
		store:     store,
		recorder:  recorder,
		registry:  nonces,
		signer:    signer,
		cipher:    cipher,
		provider:  fake,
		providers: providers,
		logs:      logs,
	}
}

// seedCredential stores an active credential with the given tokens.
func (h *harness) seedCredential(
	t *testing.T,
	tenantID string,
	provider connectorDomain.Provider,
	accessToken, refreshToken string,
	expiresAt *time.Time,
) *connectorDomain.Credential {
	t.Helper()
	ctx := context.Background()

	encryptedAccess, err := h.cipher.Encrypt(ctx, accessToken, tenantID)
	require.NoError(t, err)

	var encryptedRefresh string
	if refreshToken != "" {
		encryptedRefresh, err = h.cipher.Encrypt(ctx, refreshToken, tenantID)
		require.NoError(t, err)
	}

	now := time.Now().UTC()
	credential := &connectorDomain.Credential{
		ID:       uuid.Must(uuid.NewV7()),
		TenantID: tenantID,
		Provider: provider,
		IsActive: true,
		Config: connectorDomain.CredentialConfig{
			EncryptedAccessToken:  encryptedAccess,
			EncryptedRefreshToken: encryptedRefresh,
			ExpiresAt:             expiresAt,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, h.store.Create(ctx, credential))
	return credential
}

// seedRaw stores an active credential with placeholder blobs that are never decrypted.
func (h *harness) seedRaw(
	t *testing.T,
	tenantID string,
	provider connectorDomain.Provider,
	refreshBlob string,
	expiresAt time.Time,
) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, h.store.Create(context.Background(), &connectorDomain.Credential{
		ID:       uuid.Must(uuid.NewV7()),
		TenantID: tenantID,
		Provider: provider,
		IsActive: true,
		Config: connectorDomain.CredentialConfig{
			EncryptedAccessToken:  "unused",
			EncryptedRefreshToken: refreshBlob,
			ExpiresAt:             &expiresAt,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
