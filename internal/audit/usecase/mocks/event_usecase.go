// Package mocks provides testify mocks of the audit use cases.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/connectors/internal/audit/domain"
)

// MockEventUseCase is a mock implementation of EventUseCase for testing.
type MockEventUseCase struct {
	mock.Mock
}

// Record mocks the Record method of EventUseCase.
func (m *MockEventUseCase) Record(ctx context.Context, event *auditDomain.Event) {
	m.Called(ctx, event)
}

// List mocks the List method of EventUseCase.
func (m *MockEventUseCase) List(
	ctx context.Context,
	tenantID string,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	args := m.Called(ctx, tenantID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Event), args.Error(1)
}

// Verify mocks the Verify method of EventUseCase.
func (m *MockEventUseCase) Verify(event *auditDomain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
