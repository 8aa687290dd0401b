package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"k8s.io/utils/clock"

	"github.com/jonmartinstorm/repodash/internal/models"
)

// App takes one analytics snapshot and hands it to a writer.
type App struct {
	source AnalyticsSource
	writer SnapshotWriter
	clock  clock.PassiveClock
}

func NewApp(source AnalyticsSource, writer SnapshotWriter) *App {
	return &App{source: source, writer: writer, clock: clock.RealClock{}}
}

// WithClock replaces the clock that stamps the snapshot.
func (a *App) WithClock(c clock.PassiveClock) *App {
	a.clock = c
	return a
}

// Run composes once and writes the result. It returns the composed payload and
// the location it was written to.
func (a *App) Run(ctx context.Context) (models.AnalyticsResult, string, error) {
	slog.InfoContext(ctx, "Composing analytics snapshot")

	result, err := a.source.ComposeAnalytics(ctx)
	if err != nil {
		return models.AnalyticsResult{}, "", fmt.Errorf("compose analytics: %w", err)
	}

	location, err := a.writer.WriteSnapshot(ctx, result, a.clock.Now())
	if err != nil {
		return result, "", fmt.Errorf("write snapshot: %w", err)
	}
	return result, location, nil
}

// RunAppSafe runs app and logs duration and memory use on success.
func RunAppSafe(ctx context.Context, app *App) (models.AnalyticsResult, string, error) {
	start := time.Now()

	result, location, err := app.Run(ctx)
	if err != nil {
		slog.Debug("Snapshot run failed", "error", err)
		return result, location, err
	}

	LogMemoryStats()
	slog.Info("Done!", "duration", time.Since(start).String(), "user", result.User.Username, "file", location)
	return result, location, nil
}

func LogMemoryStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	slog.Debug("Memory usage",
		"alloc", ByteSize(m.Alloc),
		"totalAlloc", ByteSize(m.TotalAlloc),
		"sys", ByteSize(m.Sys),
		"numGC", m.NumGC)
}

func ByteSize(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := unit, 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
