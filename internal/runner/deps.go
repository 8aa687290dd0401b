package runner

import (
	"context"
	"time"

	"github.com/jonmartinstorm/repodash/internal/models"
)

// AnalyticsSource composes the dashboard payload for one principal.
type AnalyticsSource interface {
	ComposeAnalytics(ctx context.Context) (models.AnalyticsResult, error)
}

// SnapshotWriter persists a composed payload and reports where it went.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, result models.AnalyticsResult, at time.Time) (string, error)
}
