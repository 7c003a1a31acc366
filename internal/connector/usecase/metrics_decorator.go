package usecase

import (
	"context"
	"time"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
	"github.com/allisson/connectors/internal/metrics"
)

// lifecycleUseCaseWithMetrics decorates LifecycleUseCase with metrics instrumentation.
type lifecycleUseCaseWithMetrics struct {
	next    LifecycleUseCase
	metrics metrics.BusinessMetrics
}

// NewLifecycleUseCaseWithMetrics wraps a LifecycleUseCase with metrics recording.
func NewLifecycleUseCaseWithMetrics(useCase LifecycleUseCase, m metrics.BusinessMetrics) LifecycleUseCase {
	return &lifecycleUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (l *lifecycleUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusFromError(err)
	l.metrics.RecordOperation(ctx, metrics.DomainConnector, operation, status)
	l.metrics.RecordDuration(ctx, metrics.DomainConnector, operation, time.Since(start), status)
}

// Initiate records metrics for authorization initiation.
func (l *lifecycleUseCaseWithMetrics) Initiate(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.AuthorizationRequest, error) {
	start := time.Now()
	request, err := l.next.Initiate(ctx, tenantID, provider)
	l.record(ctx, "connector_initiate", start, err)
	return request, err
}

// CompleteCallback records metrics for OAuth callbacks.
func (l *lifecycleUseCaseWithMetrics) CompleteCallback(
	ctx context.Context,
	input connectorDomain.CallbackInput,
) (*connectorDomain.CallbackResult, error) {
	start := time.Now()
	result, err := l.next.CompleteCallback(ctx, input)
	l.record(ctx, "connector_callback", start, err)
	return result, err
}

// EnsureValidTokens records metrics for token retrieval and refresh.
func (l *lifecycleUseCaseWithMetrics) EnsureValidTokens(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.Tokens, error) {
	start := time.Now()
	tokens, err := l.next.EnsureValidTokens(ctx, tenantID, provider)
	l.record(ctx, "connector_ensure_tokens", start, err)
	return tokens, err
}

// Disconnect records metrics for disconnections.
func (l *lifecycleUseCaseWithMetrics) Disconnect(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) error {
	start := time.Now()
	err := l.next.Disconnect(ctx, tenantID, provider)
	l.record(ctx, "connector_disconnect", start, err)
	return err
}

// TestConnection records metrics for connection tests. A failed probe counts as an error.
func (l *lifecycleUseCaseWithMetrics) TestConnection(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.TestResult, error) {
	start := time.Now()
	result, err := l.next.TestConnection(ctx, tenantID, provider)

	status := metrics.StatusFromError(err)
	if result != nil && !result.Success {
		status = metrics.StatusError
	}
	l.metrics.RecordOperation(ctx, metrics.DomainConnector, "connector_test", status)
	l.metrics.RecordDuration(ctx, metrics.DomainConnector, "connector_test", time.Since(start), status)

	return result, err
}

// Status records metrics for status listings.
func (l *lifecycleUseCaseWithMetrics) Status(
	ctx context.Context,
	tenantID string,
) ([]*connectorDomain.ConnectorStatus, error) {
	start := time.Now()
	statuses, err := l.next.Status(ctx, tenantID)
	l.record(ctx, "connector_status", start, err)
	return statuses, err
}

// RefreshExpiring records metrics for proactive refresh runs.
func (l *lifecycleUseCaseWithMetrics) RefreshExpiring(ctx context.Context) (int, error) {
	start := time.Now()
	refreshed, err := l.next.RefreshExpiring(ctx)
	l.record(ctx, "connector_refresh_expiring", start, err)
	return refreshed, err
}
