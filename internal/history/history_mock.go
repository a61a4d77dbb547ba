package history

import (
	"context"
	"time"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"github.com/stretchr/testify/mock"
)

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(ctx context.Context, run schema.RunRecord) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// RecordScores implements the HistoryStore interface.
func (m *MockHistoryStore) RecordScores(ctx context.Context, rows []schema.ScoreRow) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(ctx context.Context, runID string, endTime time.Time, totalScores int) error {
	args := m.Called(ctx, runID, endTime, totalScores)
	return args.Error(0)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus(ctx context.Context) (schema.HistoryStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
