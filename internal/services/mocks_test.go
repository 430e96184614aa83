package services

import (
	"github.com/stretchr/testify/mock"

	"github.com/brickvest/backend/internal/audit"
)

type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) LogTransaction(ctx audit.Context, action, reference, walletID string, amount, before, after int64) {
	m.Called(ctx, action, reference, walletID, amount, before, after)
}

func (m *MockAuditSink) LogProjectFunded(projectID string, sharesSold, totalShares int64) {
	m.Called(projectID, sharesSold, totalShares)
}

func (m *MockAuditSink) LogError(ctx audit.Context, reference string, err error) {
	m.Called(ctx, reference, err)
}
