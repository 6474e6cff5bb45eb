package services

import (
	"context"
	"time"

	"github.com/ruralpay/ledger-audit/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockSnapshotSource struct {
	mock.Mock
}

func (m *MockSnapshotSource) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

type MockEventLogger struct {
	mock.Mock
}

func (m *MockEventLogger) LogRunStarted(runID string, settlement models.SettlementState) {
	m.Called(runID, settlement)
}

func (m *MockEventLogger) LogViolation(runID string, violation models.Violation) {
	m.Called(runID, violation)
}

func (m *MockEventLogger) LogRunFinished(runID string, violations int, took time.Duration) {
	m.Called(runID, violations, took)
}

func (m *MockEventLogger) LogError(runID string, err error) {
	m.Called(runID, err)
}
