package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	connectorService "github.com/allisson/connectors/internal/connector/service"
	cryptoService "github.com/allisson/connectors/internal/crypto/service"
	"github.com/allisson/connectors/internal/database"
	apperrors "github.com/allisson/connectors/internal/errors"
	oauthDomain "github.com/allisson/connectors/internal/oauth/domain"
	"github.com/allisson/connectors/internal/oauth/registry"
	oauthService "github.com/allisson/connectors/internal/oauth/service"
)

const (
	// DefaultRefreshWindow is how close to expiry an access token gets refreshed.
	DefaultRefreshWindow = 5 * time.Minute

	// DefaultRefreshTimeout bounds a shared refresh grant, independent of its callers.
	DefaultRefreshTimeout = 30 * time.Second

	// refreshBatchSize is the page size RefreshExpiring lists expiring credentials with.
	refreshBatchSize = 100

	// refreshConcurrency bounds the refresh grants RefreshExpiring runs in parallel.
	refreshConcurrency = 4

	// User facing test failure messages. Provider details stay in the logs.
	testErrorNotConnected = "connector is not connected"
	testErrorProbeFailed  = "provider rejected the connection test"
)

// Option configures a lifecycle use case.
type Option func(*lifecycleUseCase)

// WithRefreshWindow overrides DefaultRefreshWindow.
func WithRefreshWindow(window time.Duration) Option {
	return func(l *lifecycleUseCase) {
		if window > 0 {
			l.refreshWindow = window
		}
	}
}

// WithRefreshTimeout overrides DefaultRefreshTimeout.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(l *lifecycleUseCase) {
		if timeout > 0 {
			l.refreshTimeout = timeout
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *lifecycleUseCase) {
		l.now = now
	}
}

type lifecycleUseCase struct {
	txManager      database.TxManager
	credentialRepo CredentialRepository
	providers      *connectorDomain.ProviderRegistry
	cipher         cryptoService.TenantCipher
	stateSigner    oauthService.StateSigner
	nonceRegistry  registry.NonceRegistry
	exchanger      connectorService.TokenExchanger
	prober         connectorService.Prober
	audit          AuditRecorder
	logger         *slog.Logger
	refreshWindow  time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	refreshGroup   singleflight.Group
}

func (l *lifecycleUseCase) Initiate(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.AuthorizationRequest, error) {
	cfg, err := l.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	nonce, err := l.stateSigner.GenerateNonce()
	if err != nil {
		return nil, err
	}

	state, err := l.stateSigner.Sign(tenantID, provider.String(), nonce)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to sign oauth state")
	}

	if err := l.nonceRegistry.Register(ctx, nonce, tenantID, provider.String()); err != nil {
		return nil, apperrors.Wrap(err, "failed to register nonce")
	}

	l.logger.Info("oauth authorization initiated",
		slog.String("tenant_id", tenantID),
		slog.String("provider", provider.String()),
		slog.String("nonce", auditDomain.TruncateNonce(nonce)))
	l.audit.Record(ctx, &auditDomain.Event{
		TenantID: tenantID,
		Provider: provider.String(),
		Action:   auditDomain.ActionInitiate,
		Outcome:  auditDomain.OutcomeSuccess,
		Metadata: map[string]any{"nonce": auditDomain.TruncateNonce(nonce)},
	})

	return &connectorDomain.AuthorizationRequest{
		AuthURL:  l.exchanger.AuthCodeURL(cfg, state),
		Provider: provider,
		Nonce:    nonce,
		State:    state,
	}, nil
}

func (l *lifecycleUseCase) CompleteCallback(
	ctx context.Context,
	input connectorDomain.CallbackInput,
) (*connectorDomain.CallbackResult, error) {
	if input.Error != "" {
		reason := connectorDomain.SanitizeProviderError(input.Error)
		return nil, l.callbackFailure(ctx, input.Provider, oauthDomain.StateToken{}, reason,
			fmt.Errorf("provider returned error %q", input.Error))
	}

	if input.Code == "" {
		return nil, l.callbackFailure(ctx, input.Provider, oauthDomain.StateToken{},
			connectorDomain.ReasonMissingAuthorizationCode, errors.New("authorization code is missing"))
	}

	token := l.stateSigner.Validate(input.State)
	if !token.Valid {
		return nil, l.callbackFailure(ctx, input.Provider, oauthDomain.StateToken{},
			connectorDomain.ReasonInvalidOrExpiredState, oauthDomain.ErrInvalidState)
	}

	// Checked before consuming so a mismatched callback cannot burn a legitimate nonce.
	if token.Provider != input.Provider {
		return nil, l.callbackFailure(ctx, input.Provider, token,
			connectorDomain.ReasonProviderMismatch,
			fmt.Errorf("state was issued for provider %q", token.Provider))
	}

	provider, err := connectorDomain.ParseProvider(token.Provider)
	if err != nil {
		return nil, l.callbackFailure(ctx, input.Provider, token,
			connectorDomain.ReasonProviderMismatch, err)
	}

	nonce, err := l.nonceRegistry.Consume(ctx, token.Nonce)
	if err != nil {
		if apperrors.Is(err, oauthDomain.ErrNonceNotFound) {
			return nil, l.callbackFailure(ctx, input.Provider, token,
				connectorDomain.ReasonNonceValidationFailed, err)
		}
		return nil, l.callbackFailure(ctx, input.Provider, token,
			connectorDomain.ReasonOAuthCallbackFailed, err)
	}
	if !nonce.Matches(token.TenantID, token.Provider) {
		return nil, l.callbackFailure(ctx, input.Provider, token,
			connectorDomain.ReasonNonceValidationFailed, oauthDomain.ErrNonceMismatch)
	}

	cfg, err := l.providers.Get(provider)
	if err != nil {
		return nil, l.callbackFailure(ctx, input.Provider, token,
			connectorDomain.ReasonOAuthCallbackFailed, err)
	}

	tokens, err := l.exchanger.Exchange(ctx, cfg, input.Code)
	if err != nil {
		return nil, l.callbackFailure(ctx, input.Provider, token,
			connectorDomain.ReasonOAuthCallbackFailed, err)
	}

	credential, err := l.store(ctx, token.TenantID, provider, tokens)
	if err != nil {
		return nil, l.callbackFailure(ctx, input.Provider, token,
			connectorDomain.ReasonOAuthCallbackFailed, err)
	}

	l.logger.Info("oauth callback completed",
		slog.String("tenant_id", token.TenantID),
		slog.String("provider", provider.String()),
		slog.String("credential_id", credential.ID.String()))
	l.audit.Record(ctx, &auditDomain.Event{
		TenantID: token.TenantID,
		Provider: provider.String(),
		Action:   auditDomain.ActionCallback,
		Outcome:  auditDomain.OutcomeSuccess,
		Metadata: map[string]any{
			"credential_id": credential.ID.String(),
			"scope":         tokens.Scope,
			"nonce":         auditDomain.TruncateNonce(token.Nonce),
		},
	})

	return &connectorDomain.CallbackResult{
		TenantID:     token.TenantID,
		Provider:     provider,
		CredentialID: credential.ID,
	}, nil
}

// callbackFailure logs and audits a failed callback and returns its CallbackError.
// Nonce failures are possible replay attempts and log at warning level.
func (l *lifecycleUseCase) callbackFailure(
	ctx context.Context,
	provider string,
	token oauthDomain.StateToken,
	reason connectorDomain.CallbackReason,
	cause error,
) error {
	level := slog.LevelError
	if reason == connectorDomain.ReasonNonceValidationFailed {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(ctx, level, "oauth callback failed",
		slog.String("tenant_id", token.TenantID),
		slog.String("provider", provider),
		slog.String("nonce", auditDomain.TruncateNonce(token.Nonce)),
		slog.String("reason", string(reason)),
		slog.Any("error", cause))

	// Without a parsed state there is no tenant to attribute the event to.
	if token.TenantID != "" {
		l.audit.Record(ctx, &auditDomain.Event{
			TenantID: token.TenantID,
			Provider: provider,
			Action:   auditDomain.ActionCallback,
			Outcome:  auditDomain.OutcomeFailure,
			Reason:   string(reason),
		})
	}
	return connectorDomain.NewCallbackError(reason, cause)
}

// store encrypts tokens and saves them as the only active credential of the pair.
func (l *lifecycleUseCase) store(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
	tokens *connectorDomain.Tokens,
) (*connectorDomain.Credential, error) {
	encryptedAccessToken, err := l.cipher.Encrypt(ctx, tokens.AccessToken, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encrypt access token")
	}

	var encryptedRefreshToken string
	if tokens.HasRefreshToken() {
		encryptedRefreshToken, err = l.cipher.Encrypt(ctx, tokens.RefreshToken, tenantID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to encrypt refresh token")
		}
	}

	expiresAt := tokens.ExpiresAt
	if expiresAt != nil {
		// The expires_at column keeps microseconds and must match the JSON copy.
		truncated := expiresAt.UTC().Truncate(time.Microsecond)
		expiresAt = &truncated
	}

	now := l.now().UTC()
	credential := &connectorDomain.Credential{
		ID:       uuid.Must(uuid.NewV7()),
		TenantID: tenantID,
		Provider: provider,
		IsActive: true,
		Config: connectorDomain.CredentialConfig{
			EncryptedAccessToken:  encryptedAccessToken,
			EncryptedRefreshToken: encryptedRefreshToken,
			ExpiresAt:             expiresAt,
			Scope:                 tokens.Scope,
			TokenType:             tokens.TokenType,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = l.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, err := l.credentialRepo.DeactivateAll(ctx, tenantID, provider, now); err != nil {
			return err
		}
		return l.credentialRepo.Create(ctx, credential)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to store credential")
	}
	return credential, nil
}

// decrypt opens the token blobs of a stored credential.
func (l *lifecycleUseCase) decrypt(
	ctx context.Context,
	credential *connectorDomain.Credential,
) (*connectorDomain.Tokens, error) {
	accessToken, err := l.cipher.Decrypt(ctx, credential.Config.EncryptedAccessToken, credential.TenantID)
	if err != nil {
		return nil, err
	}

	tokens := &connectorDomain.Tokens{
		AccessToken: accessToken,
		ExpiresAt:   credential.Config.ExpiresAt,
		Scope:       credential.Config.Scope,
		TokenType:   credential.Config.TokenType,
	}
	if credential.Config.EncryptedRefreshToken != "" {
		tokens.RefreshToken, err = l.cipher.Decrypt(
			ctx,
			credential.Config.EncryptedRefreshToken,
			credential.TenantID,
		)
		if err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

func (l *lifecycleUseCase) EnsureValidTokens(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.Tokens, error) {
	credential, tokens, err := l.loadActive(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}

	now := l.now()
	if !tokens.NeedsRefresh(now, l.refreshWindow) {
		return tokens, nil
	}
	if !tokens.HasRefreshToken() {
		if tokens.Expired(now) {
			return nil, connectorDomain.ErrNotConnected
		}
		return tokens, nil
	}

	// Callers of the same pair share one refresh. It runs detached from the caller that
	// started it, so one cancelled request does not fail the others.
	key := tenantID + "\x00" + provider.String()
	ch := l.refreshGroup.DoChan(key, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.refreshTimeout)
		defer cancel()
		return l.refresh(refreshCtx, credential.TenantID, credential.Provider)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		refreshed := *result.Val.(*connectorDomain.Tokens)
		return &refreshed, nil
	}
}

// loadActive returns the active credential and its decrypted tokens.
func (l *lifecycleUseCase) loadActive(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.Credential, *connectorDomain.Tokens, error) {
	credential, err := l.credentialRepo.GetActive(ctx, tenantID, provider)
	if err != nil {
		if apperrors.Is(err, connectorDomain.ErrCredentialNotFound) {
			return nil, nil, connectorDomain.ErrNotConnected
		}
		return nil, nil, err
	}

	tokens, err := l.decrypt(ctx, credential)
	if err != nil {
		l.logger.Error("failed to decrypt credential",
			slog.String("tenant_id", tenantID),
			slog.String("provider", provider.String()),
			slog.String("credential_id", credential.ID.String()),
			slog.Any("error", err))
		return nil, nil, err
	}
	return credential, tokens, nil
}

// refresh runs the refresh grant for the active credential of the pair. A rejected grant
// deactivates the credential and reports ErrNotConnected.
func (l *lifecycleUseCase) refresh(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.Tokens, error) {
	// Reloaded because another instance may already have replaced the credential.
	credential, tokens, err := l.loadActive(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	if !tokens.NeedsRefresh(l.now(), l.refreshWindow) {
		return tokens, nil
	}
	if !tokens.HasRefreshToken() {
		return nil, connectorDomain.ErrNotConnected
	}

	cfg, err := l.providers.Get(credential.Provider)
	if err != nil {
		return nil, err
	}

	refreshed, err := l.exchanger.Refresh(ctx, cfg, tokens.RefreshToken)
	if err != nil {
		l.logger.Warn("token refresh rejected, deactivating credential",
			slog.String("tenant_id", credential.TenantID),
			slog.String("provider", credential.Provider.String()),
			slog.String("credential_id", credential.ID.String()),
			slog.Any("error", err))

		if deactivateErr := l.credentialRepo.Deactivate(ctx, credential.ID, l.now().UTC()); deactivateErr != nil {
			return nil, apperrors.Wrap(deactivateErr, "failed to deactivate credential after refresh failure")
		}
		l.audit.Record(ctx, &auditDomain.Event{
			TenantID: credential.TenantID,
			Provider: credential.Provider.String(),
			Action:   auditDomain.ActionRefresh,
			Outcome:  auditDomain.OutcomeFailure,
			Reason:   "refresh_rejected",
			Metadata: map[string]any{"credential_id": credential.ID.String()},
		})
		return nil, connectorDomain.ErrNotConnected
	}

	stored, err := l.store(ctx, credential.TenantID, credential.Provider, refreshed)
	if err != nil {
		return nil, err
	}

	l.logger.Info("credential refreshed",
		slog.String("tenant_id", credential.TenantID),
		slog.String("provider", credential.Provider.String()),
		slog.String("credential_id", stored.ID.String()))
	l.audit.Record(ctx, &auditDomain.Event{
		TenantID: credential.TenantID,
		Provider: credential.Provider.String(),
		Action:   auditDomain.ActionRefresh,
		Outcome:  auditDomain.OutcomeSuccess,
		Metadata: map[string]any{
			"previous_credential_id": credential.ID.String(),
			"credential_id":          stored.ID.String(),
		},
	})
	return refreshed, nil
}

func (l *lifecycleUseCase) Disconnect(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) error {
	deactivated, err := l.credentialRepo.DeactivateAll(ctx, tenantID, provider, l.now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to disconnect connector")
	}

	l.logger.Info("connector disconnected",
		slog.String("tenant_id", tenantID),
		slog.String("provider", provider.String()),
		slog.Int64("deactivated", deactivated))
	l.audit.Record(ctx, &auditDomain.Event{
		TenantID: tenantID,
		Provider: provider.String(),
		Action:   auditDomain.ActionDisconnect,
		Outcome:  auditDomain.OutcomeSuccess,
		Metadata: map[string]any{"deactivated": deactivated},
	})
	return nil
}

func (l *lifecycleUseCase) TestConnection(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.TestResult, error) {
	cfg, err := l.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	result := &connectorDomain.TestResult{Provider: provider}

	tokens, err := l.EnsureValidTokens(ctx, tenantID, provider)
	if err != nil {
		if !apperrors.Is(err, connectorDomain.ErrNotConnected) {
			return nil, err
		}
		result.Error = testErrorNotConnected
		result.Timestamp = l.now().UTC()
		l.recordTest(ctx, tenantID, provider, result)
		return result, nil
	}

	probeErr := l.prober.Probe(ctx, cfg, tokens.AccessToken)
	result.Timestamp = l.now().UTC()
	result.Success = probeErr == nil

	var lastError *string
	if probeErr != nil {
		l.logger.Warn("connection test failed",
			slog.String("tenant_id", tenantID),
			slog.String("provider", provider.String()),
			slog.Any("error", probeErr))
		result.Error = testErrorProbeFailed
		lastError = &result.Error
	}

	// EnsureValidTokens may have replaced the credential with a refreshed one.
	credential, err := l.credentialRepo.GetActive(ctx, tenantID, provider)
	if err == nil {
		err = l.credentialRepo.UpdateTestResult(ctx, credential.ID, result.Timestamp, lastError)
	}
	if err != nil {
		l.logger.Error("failed to record connection test result",
			slog.String("tenant_id", tenantID),
			slog.String("provider", provider.String()),
			slog.Any("error", err))
	}

	l.recordTest(ctx, tenantID, provider, result)
	return result, nil
}

func (l *lifecycleUseCase) recordTest(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
	result *connectorDomain.TestResult,
) {
	outcome := auditDomain.OutcomeSuccess
	if !result.Success {
		outcome = auditDomain.OutcomeFailure
	}
	l.audit.Record(ctx, &auditDomain.Event{
		TenantID: tenantID,
		Provider: provider.String(),
		Action:   auditDomain.ActionTest,
		Outcome:  outcome,
		Reason:   result.Error,
	})
}

func (l *lifecycleUseCase) Status(
	ctx context.Context,
	tenantID string,
) ([]*connectorDomain.ConnectorStatus, error) {
	credentials, err := l.credentialRepo.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}

	// Rows come newest first, so the first one seen per provider wins.
	active := make(map[connectorDomain.Provider]*connectorDomain.Credential, len(credentials))
	for _, credential := range credentials {
		if _, ok := active[credential.Provider]; !ok {
			active[credential.Provider] = credential
		}
	}

	now := l.now()
	configured := l.providers.Configured()
	statuses := make([]*connectorDomain.ConnectorStatus, 0, len(configured))
	for _, cfg := range configured {
		status := &connectorDomain.ConnectorStatus{
			Provider: cfg.Provider,
			Name:     cfg.Name,
			Type:     cfg.Type,
		}
		if credential, ok := active[cfg.Provider]; ok {
			status.Connected = credential.Connected(now)
			status.LastTested = credential.LastTestedAt
			status.Error = credential.LastError
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (l *lifecycleUseCase) RefreshExpiring(ctx context.Context) (int, error) {
	before := l.now().Add(l.refreshWindow).UTC()

	var refreshed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)

	// Pages are walked with a keyset cursor so skipped rows never starve the ones behind them.
	var cursor *connectorDomain.ExpiringCursor
	for ctx.Err() == nil {
		page, err := l.credentialRepo.ListActiveExpiring(ctx, before, cursor, refreshBatchSize)
		if err != nil {
			_ = g.Wait()
			return int(refreshed.Load()), apperrors.Wrap(err, "failed to list expiring credentials")
		}

		for _, credential := range page {
			if !credential.Refreshable() {
				continue
			}
			if _, err := l.providers.Get(credential.Provider); err != nil {
				l.logger.Debug("skipping credential of unconfigured provider",
					slog.String("tenant_id", credential.TenantID),
					slog.String("provider", credential.Provider.String()),
					slog.String("credential_id", credential.ID.String()))
				continue
			}
			g.Go(func() error {
				_, err := l.EnsureValidTokens(gctx, credential.TenantID, credential.Provider)
				switch {
				case err == nil:
					refreshed.Add(1)
				case apperrors.Is(err, connectorDomain.ErrNotConnected):
				default:
					l.logger.Error("proactive refresh failed",
						slog.String("tenant_id", credential.TenantID),
						slog.String("provider", credential.Provider.String()),
						slog.Any("error", err))
				}
				// One failing tenant must not cancel the others.
				return nil
			})
		}

		if len(page) < refreshBatchSize {
			break
		}
		if cursor = connectorDomain.NextExpiringCursor(page[len(page)-1]); cursor == nil {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return int(refreshed.Load()), err
	}
	return int(refreshed.Load()), ctx.Err()
}

// NewLifecycleUseCase creates the credential lifecycle use case.
func NewLifecycleUseCase(
	txManager database.TxManager,
	credentialRepo CredentialRepository,
	providers *connectorDomain.ProviderRegistry,
	cipher cryptoService.TenantCipher,
	stateSigner oauthService.StateSigner,
	nonceRegistry registry.NonceRegistry,
	exchanger connectorService.TokenExchanger,
	prober connectorService.Prober,
	audit AuditRecorder,
	logger *slog.Logger,
	opts ...Option,
) LifecycleUseCase {
	l := &lifecycleUseCase{
		txManager:      txManager,
		credentialRepo: credentialRepo,
		providers:      providers,
		cipher:         cipher,
		stateSigner:    stateSigner,
		nonceRegistry:  nonceRegistry,
		exchanger:      exchanger,
		prober:         prober,
		audit:          audit,
		logger:         logger,
		refreshWindow:  DefaultRefreshWindow,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}
