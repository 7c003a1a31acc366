package usecase

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	apperrors "github.com/allisson/connectors/internal/errors"
)

func callbackReason(t *testing.T, err error) connectorDomain.CallbackReason {
	t.Helper()
	var callbackErr *connectorDomain.CallbackError
	require.True(t, apperrors.As(err, &callbackErr), "expected *CallbackError, got %v", err)
	return callbackErr.Reason
}

func stateFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	return parsed.Query().Get("state")
}

func TestLifecycleUseCase_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_AuthURLCarriesSignedState", func(t *testing.T) {
		h := newHarness(t)

		request, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)

		parsed, err := url.Parse(request.AuthURL)
		require.NoError(t, err)
		query := parsed.Query()
		assert.Equal(t, "client-google_calendar", query.Get("client_id"))
		assert.NotEmpty(t, query.Get("scope"))
		assert.Equal(t, "offline", query.Get("access_type"))
		assert.Equal(t, "consent", query.Get("prompt"))
		assert.Equal(t, request.State, query.Get("state"))

		token := h.signer.Validate(query.Get("state"))
		assert.True(t, token.Valid)
		assert.Equal(t, "google_calendar", token.Provider)
		assert.Equal(t, "tenant-1", token.TenantID)
		assert.Equal(t, request.Nonce, token.Nonce)

		assert.Equal(t, 1, h.registry.Len())
		require.NotNil(t, h.recorder.last())
		assert.Equal(t, auditDomain.ActionInitiate, h.recorder.last().Action)
		assert.NotContains(t, h.logs.String(), request.Nonce)
	})

	t.Run("Error_ProviderNotConfigured", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderSalesforce)
		assert.ErrorIs(t, err, connectorDomain.ErrProviderNotConfigured)
		assert.Equal(t, 0, h.registry.Len())
	})

	t.Run("Error_TenantWithSeparator", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.useCase.Initiate(ctx, "tenant:1", connectorDomain.ProviderHubSpot)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestLifecycleUseCase_CompleteCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_StoresSingleActiveCredential", func(t *testing.T) {
		h := newHarness(t)

		request, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)

		result, err := h.useCase.CompleteCallback(ctx, connectorDomain.CallbackInput{
			Provider: "google_calendar",
			Code:     "valid-code",
			State:    stateFromAuthURL(t, request.AuthURL),
		})
		require.NoError(t, err)
		assert.Equal(t, "tenant-1", result.TenantID)
		assert.Equal(t, connectorDomain.ProviderGoogleCalendar, result.Provider)

		assert.Equal(t, 1, h.store.countActive("tenant-1", connectorDomain.ProviderGoogleCalendar))
		credential, err := h.store.GetActive(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)
		assert.Equal(t, result.CredentialID, credential.ID)

		accessToken, err := h.cipher.Decrypt(ctx, credential.Config.EncryptedAccessToken, "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, "abc", accessToken)
		refreshToken, err := h.cipher.Decrypt(ctx, credential.Config.EncryptedRefreshToken, "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, "def", refreshToken)
		require.NotNil(t, credential.Config.ExpiresAt)
		assert.True(t, credential.Config.ExpiresAt.After(time.Now().Add(50*time.Minute)))
		assert.Equal(t, "calendar.readonly", credential.Config.Scope)

		assert.Equal(t, 0, h.registry.Len())
		assert.Equal(t, auditDomain.OutcomeSuccess, h.recorder.last().Outcome)
		assert.NotContains(t, h.logs.String(), `"abc"`)
	})

	t.Run("Success_ReauthorizationReplacesActiveCredential", func(t *testing.T) {
		h := newHarness(t)

		for range 2 {
			request, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
			require.NoError(t, err)
			_, err = h.useCase.CompleteCallback(ctx, connectorDomain.CallbackInput{
				Provider: "hubspot",
				Code:     "valid-code",
				State:    request.State,
			})
			require.NoError(t, err)
		}

		assert.Equal(t, 2, h.store.count())
		assert.Equal(t, 1, h.store.countActive("tenant-1", connectorDomain.ProviderHubSpot))
	})

	t.Run("Error_ReplayedState", func(t *testing.T) {
		h := newHarness(t)

		request, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)
		input := connectorDomain.CallbackInput{
			Provider: "google_calendar",
			Code:     "valid-code",
			State:    request.State,
		}

		_, err = h.useCase.CompleteCallback(ctx, input)
		require.NoError(t, err)

		_, err = h.useCase.CompleteCallback(ctx, input)
		assert.Equal(t, connectorDomain.ReasonNonceValidationFailed, callbackReason(t, err))
		assert.Contains(t, h.logs.String(), `"level":"WARN"`)
		assert.Equal(t, int32(1), h.provider.exchangeCalls.Load())
		assert.Equal(t, 1, h.store.count())
	})

	t.Run("Error_ConcurrentCallbacksExactlyOneWins", func(t *testing.T) {
		h := newHarness(t)

		request, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)
		input := connectorDomain.CallbackInput{
			Provider: "google_calendar",
			Code:     "valid-code",
			State:    request.State,
		}

		const callers = 8
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = h.useCase.CompleteCallback(ctx, input)
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.Equal(t, connectorDomain.ReasonNonceValidationFailed, callbackReason(t, err))
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, h.store.countActive("tenant-1", connectorDomain.ProviderGoogleCalendar))
	})

	t.Run("Error_ProviderMismatchKeepsNonce", func(t *testing.T) {
		h := newHarness(t)

		request, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)

		_, err = h.useCase.CompleteCallback(ctx, connectorDomain.CallbackInput{
			Provider: "hubspot",
			Code:     "valid-code",
			State:    request.State,
		})
		assert.Equal(t, connectorDomain.ReasonProviderMismatch, callbackReason(t, err))
		assert.Equal(t, 1, h.registry.Len())
		assert.Equal(t, int32(0), h.provider.exchangeCalls.Load())
	})

	t.Run("Error_NonceIssuedForAnotherTenant", func(t *testing.T) {
		h := newHarness(t)

		nonce, err := h.signer.GenerateNonce()
		require.NoError(t, err)
		require.NoError(t, h.registry.Register(ctx, nonce, "tenant-2", "google_calendar"))
		state, err := h.signer.Sign("tenant-1", "google_calendar", nonce)
		require.NoError(t, err)

		_, err = h.useCase.CompleteCallback(ctx, connectorDomain.CallbackInput{
			Provider: "google_calendar",
			Code:     "valid-code",
			State:    state,
		})
		assert.Equal(t, connectorDomain.ReasonNonceValidationFailed, callbackReason(t, err))
		assert.Equal(t, 0, h.store.count())
	})

	t.Run("Error_ExchangeRejected", func(t *testing.T) {
		h := newHarness(t)

		request, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)

		_, err = h.useCase.CompleteCallback(ctx, connectorDomain.CallbackInput{
			Provider: "google_calendar",
			Code:     "bad-code",
			State:    request.State,
		})
		assert.Equal(t, connectorDomain.ReasonOAuthCallbackFailed, callbackReason(t, err))
		assert.ErrorIs(t, err, connectorDomain.ErrTokenExchangeFailed)
		assert.Equal(t, 0, h.store.count())
		assert.Equal(t, auditDomain.OutcomeFailure, h.recorder.last().Outcome)
		assert.Equal(t, string(connectorDomain.ReasonOAuthCallbackFailed), h.recorder.last().Reason)
	})

	tests := []struct {
		name   string
		input  connectorDomain.CallbackInput
		reason connectorDomain.CallbackReason
	}{
		{
			name:   "ProviderError",
			input:  connectorDomain.CallbackInput{Provider: "hubspot", Error: "access_denied", State: "x"},
			reason: "access_denied",
		},
		{
			name:   "ProviderErrorSanitized",
			input:  connectorDomain.CallbackInput{Provider: "hubspot", Error: "<script>"},
			reason: "script",
		},
		{
			name:   "MissingCode",
			input:  connectorDomain.CallbackInput{Provider: "hubspot", State: "x"},
			reason: connectorDomain.ReasonMissingAuthorizationCode,
		},
		{
			name:   "MalformedState",
			input:  connectorDomain.CallbackInput{Provider: "hubspot", Code: "valid-code", State: "garbage"},
			reason: connectorDomain.ReasonInvalidOrExpiredState,
		},
		{
			name:   "MissingState",
			input:  connectorDomain.CallbackInput{Provider: "hubspot", Code: "valid-code"},
			reason: connectorDomain.ReasonInvalidOrExpiredState,
		},
	}
	for _, tt := range tests {
		t.Run("Error_"+tt.name, func(t *testing.T) {
			h := newHarness(t)

			result, err := h.useCase.CompleteCallback(ctx, tt.input)
			assert.Nil(t, result)
			assert.Equal(t, tt.reason, callbackReason(t, err))
			assert.Equal(t, int32(0), h.provider.exchangeCalls.Load())
		})
	}

	t.Run("Error_TamperedState", func(t *testing.T) {
		h := newHarness(t)

		request, err := h.useCase.Initiate(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		require.NoError(t, err)

		tampered := []byte(request.State)
		tampered[len("hubspot:")] = 'X'
		_, err = h.useCase.CompleteCallback(ctx, connectorDomain.CallbackInput{
			Provider: "hubspot",
			Code:     "valid-code",
			State:    string(tampered),
		})
		assert.Equal(t, connectorDomain.ReasonInvalidOrExpiredState, callbackReason(t, err))
		assert.Equal(t, 1, h.registry.Len())
	})
}

func TestLifecycleUseCase_EnsureValidTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FreshTokensReturnedWithoutRefresh", func(t *testing.T) {
		h := newHarness(t)
		expiresAt := time.Now().Add(time.Hour).UTC()
		h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "def", &expiresAt)

		tokens, err := h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		require.NoError(t, err)
		assert.Equal(t, "abc", tokens.AccessToken)
		assert.Equal(t, "def", tokens.RefreshToken)
		assert.Equal(t, int32(0), h.provider.refreshCalls.Load())
	})

	t.Run("Success_NearExpiryTriggersRefresh", func(t *testing.T) {
		h := newHarness(t)
		expiresAt := time.Now().Add(time.Minute).UTC()
		old := h.seedCredential(t, "tenant-1", connectorDomain.ProviderGoogleCalendar, "abc", "def", &expiresAt)

		tokens, err := h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)
		assert.Equal(t, "abc-refreshed", tokens.AccessToken)
		assert.Equal(t, "def", tokens.RefreshToken)
		require.NotNil(t, tokens.ExpiresAt)
		assert.True(t, tokens.ExpiresAt.After(expiresAt))
		assert.Equal(t, int32(1), h.provider.refreshCalls.Load())

		current, err := h.store.GetActive(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
		require.NoError(t, err)
		assert.NotEqual(t, old.ID, current.ID)
		assert.Equal(t, 1, h.store.countActive("tenant-1", connectorDomain.ProviderGoogleCalendar))
		assert.Equal(t, auditDomain.ActionRefresh, h.recorder.last().Action)
	})

	t.Run("Success_ConcurrentRefreshesCoalesce", func(t *testing.T) {
		h := newHarness(t)
		h.provider.refreshDelay = 100 * time.Millisecond
		expiresAt := time.Now().Add(time.Minute).UTC()
		h.seedCredential(t, "tenant-1", connectorDomain.ProviderGoogleCalendar, "abc", "def", &expiresAt)

		const callers = 6
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
			}()
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, int32(1), h.provider.refreshCalls.Load())
		assert.Equal(t, 1, h.store.countActive("tenant-1", connectorDomain.ProviderGoogleCalendar))
	})

	t.Run("Success_CancelledCallerDoesNotFailSharedRefresh", func(t *testing.T) {
		h := newHarness(t)
		h.provider.refreshDelay = 300 * time.Millisecond
		expiresAt := time.Now().Add(time.Minute).UTC()
		h.seedCredential(t, "tenant-1", connectorDomain.ProviderGoogleCalendar, "abc", "def", &expiresAt)

		cancelCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		firstErr := make(chan error, 1)
		go func() {
			_, err := h.useCase.EnsureValidTokens(cancelCtx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
			firstErr <- err
		}()
		require.Eventually(t, func() bool {
			return h.provider.refreshCalls.Load() == 1
		}, 2*time.Second, 5*time.Millisecond)

		type outcome struct {
			tokens *connectorDomain.Tokens
			err    error
		}
		second := make(chan outcome, 1)
		go func() {
			tokens, err := h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderGoogleCalendar)
			second <- outcome{tokens: tokens, err: err}
		}()
		time.Sleep(20 * time.Millisecond)
		cancel()

		assert.ErrorIs(t, <-firstErr, context.Canceled)

		got := <-second
		require.NoError(t, got.err)
		assert.Equal(t, "abc-refreshed", got.tokens.AccessToken)
		assert.Equal(t, int32(1), h.provider.refreshCalls.Load())
		assert.Equal(t, 1, h.store.countActive("tenant-1", connectorDomain.ProviderGoogleCalendar))
	})

	t.Run("Error_RefreshRejectedDeactivates", func(t *testing.T) {
		h := newHarness(t)
		expiresAt := time.Now().Add(time.Minute).UTC()
		h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "revoked", &expiresAt)

		tokens, err := h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		assert.Nil(t, tokens)
		assert.ErrorIs(t, err, connectorDomain.ErrNotConnected)
		assert.Equal(t, 0, h.store.countActive("tenant-1", connectorDomain.ProviderHubSpot))
		assert.Equal(t, auditDomain.OutcomeFailure, h.recorder.last().Outcome)
	})

	t.Run("Error_ExpiredWithoutRefreshToken", func(t *testing.T) {
		h := newHarness(t)
		expiresAt := time.Now().Add(-time.Minute).UTC()
		h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "", &expiresAt)

		_, err := h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		assert.ErrorIs(t, err, connectorDomain.ErrNotConnected)
		assert.Equal(t, int32(0), h.provider.refreshCalls.Load())
	})

	t.Run("Success_NearExpiryWithoutRefreshTokenStillUsable", func(t *testing.T) {
		h := newHarness(t)
		expiresAt := time.Now().Add(time.Minute).UTC()
		h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "", &expiresAt)

		tokens, err := h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		require.NoError(t, err)
		assert.Equal(t, "abc", tokens.AccessToken)
	})

	t.Run("Error_NeverConnected", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		assert.ErrorIs(t, err, connectorDomain.ErrNotConnected)
	})
}

func TestLifecycleUseCase_Disconnect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "def", nil)
	h.seedCredential(t, "tenant-2", connectorDomain.ProviderHubSpot, "abc", "def", nil)

	require.NoError(t, h.useCase.Disconnect(ctx, "tenant-1", connectorDomain.ProviderHubSpot))
	require.NoError(t, h.useCase.Disconnect(ctx, "tenant-1", connectorDomain.ProviderHubSpot))

	assert.Equal(t, 0, h.store.countActive("tenant-1", connectorDomain.ProviderHubSpot))
	assert.Equal(t, 1, h.store.countActive("tenant-2", connectorDomain.ProviderHubSpot))
	assert.Equal(t, 2, h.store.count())
	assert.Equal(t, auditDomain.ActionDisconnect, h.recorder.last().Action)
	assert.Equal(t, int64(0), h.recorder.last().Metadata["deactivated"])
}

func TestLifecycleUseCase_TestConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)
		h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "def", nil)

		result, err := h.useCase.TestConnection(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Empty(t, result.Error)
		assert.False(t, result.Timestamp.IsZero())

		credential, err := h.store.GetActive(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		require.NoError(t, err)
		require.NotNil(t, credential.LastTestedAt)
		assert.Nil(t, credential.LastError)
	})

	t.Run("Failure_ProbeRejected", func(t *testing.T) {
		h := newHarness(t)
		h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "stale", "def", nil)

		result, err := h.useCase.TestConnection(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, testErrorProbeFailed, result.Error)

		credential, err := h.store.GetActive(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		require.NoError(t, err)
		require.NotNil(t, credential.LastError)
		assert.Equal(t, testErrorProbeFailed, *credential.LastError)
	})

	t.Run("Failure_NotConnected", func(t *testing.T) {
		h := newHarness(t)

		result, err := h.useCase.TestConnection(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, testErrorNotConnected, result.Error)
	})

	t.Run("Error_ProviderNotConfigured", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.useCase.TestConnection(ctx, "tenant-1", connectorDomain.ProviderPipedrive)
		assert.ErrorIs(t, err, connectorDomain.ErrProviderNotConfigured)
	})
}

func TestLifecycleUseCase_Status(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "def", nil)
	_, err := h.useCase.TestConnection(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
	require.NoError(t, err)

	statuses, err := h.useCase.Status(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, connectorDomain.ProviderGoogleCalendar, statuses[0].Provider)
	assert.Equal(t, connectorDomain.ProviderTypeCalendar, statuses[0].Type)
	assert.False(t, statuses[0].Connected)

	assert.Equal(t, connectorDomain.ProviderHubSpot, statuses[1].Provider)
	assert.Equal(t, connectorDomain.ProviderTypeCRM, statuses[1].Type)
	assert.True(t, statuses[1].Connected)
	assert.NotNil(t, statuses[1].LastTested)
	assert.Nil(t, statuses[1].Error)
}

func TestLifecycleUseCase_Status_ExpiredWithoutRefreshToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	expired := time.Now().Add(-time.Hour).UTC()
	h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "", &expired)
	h.seedCredential(t, "tenant-1", connectorDomain.ProviderGoogleCalendar, "abc", "def", &expired)

	statuses, err := h.useCase.Status(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, connectorDomain.ProviderGoogleCalendar, statuses[0].Provider)
	assert.True(t, statuses[0].Connected)
	assert.Equal(t, connectorDomain.ProviderHubSpot, statuses[1].Provider)
	assert.False(t, statuses[1].Connected)

	_, err = h.useCase.EnsureValidTokens(ctx, "tenant-1", connectorDomain.ProviderHubSpot)
	assert.ErrorIs(t, err, connectorDomain.ErrNotConnected)
}

func TestLifecycleUseCase_RefreshExpiring(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	soon := time.Now().Add(2 * time.Minute).UTC()
	later := time.Now().Add(2 * time.Hour).UTC()
	h.seedCredential(t, "tenant-1", connectorDomain.ProviderHubSpot, "abc", "def", &soon)
	h.seedCredential(t, "tenant-2", connectorDomain.ProviderHubSpot, "abc", "def", &soon)
	h.seedCredential(t, "tenant-3", connectorDomain.ProviderHubSpot, "abc", "", &soon)
	h.seedCredential(t, "tenant-4", connectorDomain.ProviderHubSpot, "abc", "def", &later)
	h.seedCredential(t, "tenant-5", connectorDomain.ProviderGoogleCalendar, "abc", "revoked", &soon)

	refreshed, err := h.useCase.RefreshExpiring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed)
	assert.Equal(t, int32(3), h.provider.refreshCalls.Load())
	assert.Equal(t, 0, h.store.countActive("tenant-5", connectorDomain.ProviderGoogleCalendar))
	assert.Equal(t, 1, h.store.countActive("tenant-3", connectorDomain.ProviderHubSpot))
}

func TestLifecycleUseCase_RefreshExpiring_SkippedRowsDoNotStarveBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// A full page of rows the job can never refresh, all sorting ahead of the refreshable one.
	expired := time.Now().Add(-time.Hour).UTC()
	for i := range refreshBatchSize {
		h.seedRaw(t, fmt.Sprintf("stale-%d", i), connectorDomain.ProviderHubSpot, "", expired)
		h.seedRaw(t, fmt.Sprintf("unconfigured-%d", i), connectorDomain.ProviderSalesforce, "unused", expired)
	}
	soon := time.Now().Add(2 * time.Minute).UTC()
	h.seedCredential(t, "tenant-live", connectorDomain.ProviderHubSpot, "abc", "def", &soon)

	refreshed, err := h.useCase.RefreshExpiring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, int32(1), h.provider.refreshCalls.Load())
	assert.Equal(t, 2, h.store.pages())

	tokens, err := h.useCase.EnsureValidTokens(ctx, "tenant-live", connectorDomain.ProviderHubSpot)
	require.NoError(t, err)
	assert.Equal(t, "abc-refreshed", tokens.AccessToken)

	for range 2 {
		refreshed, err := h.useCase.RefreshExpiring(ctx)
		require.NoError(t, err)
		assert.Zero(t, refreshed)
	}
	assert.Equal(t, int32(1), h.provider.refreshCalls.Load())
	assert.Equal(t, 1, h.store.countActive("stale-0", connectorDomain.ProviderHubSpot))
}
