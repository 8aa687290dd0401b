package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jonmartinstorm/repodash/internal/models"
)

// MockAnalyticsSource mocks runner.AnalyticsSource.
type MockAnalyticsSource struct {
	mock.Mock
}

func (m *MockAnalyticsSource) ComposeAnalytics(ctx context.Context) (models.AnalyticsResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.AnalyticsResult), args.Error(1)
}

// MockSnapshotWriter mocks runner.SnapshotWriter.
type MockSnapshotWriter struct {
	mock.Mock
}

func (m *MockSnapshotWriter) WriteSnapshot(ctx context.Context, result models.AnalyticsResult, at time.Time) (string, error) {
	args := m.Called(ctx, result, at)
	return args.String(0), args.Error(1)
}
