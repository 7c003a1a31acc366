// Package mocks provides mock implementations of the connector use cases for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
)

// MockLifecycleUseCase is a mock implementation of LifecycleUseCase for testing.
type MockLifecycleUseCase struct {
	mock.Mock
}

// Initiate mocks the Initiate method of LifecycleUseCase.
func (m *MockLifecycleUseCase) Initiate(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.AuthorizationRequest, error) {
	args := m.Called(ctx, tenantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connectorDomain.AuthorizationRequest), args.Error(1)
}

// CompleteCallback mocks the CompleteCallback method of LifecycleUseCase.
func (m *MockLifecycleUseCase) CompleteCallback(
	ctx context.Context,
	input connectorDomain.CallbackInput,
) (*connectorDomain.CallbackResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connectorDomain.CallbackResult), args.Error(1)
}

// EnsureValidTokens mocks the EnsureValidTokens method of LifecycleUseCase.
func (m *MockLifecycleUseCase) EnsureValidTokens(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.Tokens, error) {
	args := m.Called(ctx, tenantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connectorDomain.Tokens), args.Error(1)
}

// Disconnect mocks the Disconnect method of LifecycleUseCase.
func (m *MockLifecycleUseCase) Disconnect(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) error {
	args := m.Called(ctx, tenantID, provider)
	return args.Error(0)
}

// TestConnection mocks the TestConnection method of LifecycleUseCase.
func (m *MockLifecycleUseCase) TestConnection(
	ctx context.Context,
	tenantID string,
	provider connectorDomain.Provider,
) (*connectorDomain.TestResult, error) {
	args := m.Called(ctx, tenantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connectorDomain.TestResult), args.Error(1)
}

// Status mocks the Status method of LifecycleUseCase.
func (m *MockLifecycleUseCase) Status(
	ctx context.Context,
	tenantID string,
) ([]*connectorDomain.ConnectorStatus, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*connectorDomain.ConnectorStatus), args.Error(1)
}

// RefreshExpiring mocks the RefreshExpiring method of LifecycleUseCase.
func (m *MockLifecycleUseCase) RefreshExpiring(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
