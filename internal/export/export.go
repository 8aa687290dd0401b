// Package export renders composed analytics for download and sharing.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonmartinstorm/repodash/internal/models"
)

// FileName is the download name of a snapshot taken on the given date.
func FileName(username string, at time.Time) string {
	return fmt.Sprintf("github-stats-%s-%s.json", username, at.UTC().Format(time.DateOnly))
}

// Encode renders the result as indented JSON.
func Encode(result models.AnalyticsResult) ([]byte, error) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode analytics for %s: %w", result.User.Username, err)
	}
	return out, nil
}

// JSONFileWriter stores snapshots as files under Dir.
type JSONFileWriter struct {
	Dir string
}

// WriteSnapshot writes result to Dir/FileName(...) and returns the path. An
// existing snapshot for the same user and day is overwritten.
func (w JSONFileWriter) WriteSnapshot(ctx context.Context, result models.AnalyticsResult, at time.Time) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir %s: %w", w.Dir, err)
	}

	out, err := Encode(result)
	if err != nil {
		return "", err
	}

	file := filepath.Join(w.Dir, FileName(result.User.Username, at))
	if err := os.WriteFile(file, out, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", file, err)
	}

	slog.InfoContext(ctx, "Stored analytics snapshot", "user", result.User.Username, "repos", result.Stats.TotalRepos, "file", file)
	return file, nil
}

// ShareText is the short plain-text summary offered for sharing.
func ShareText(result models.AnalyticsResult, year int) string {
	top := "none"
	if len(result.Stats.Languages) > 0 {
		top = result.Stats.Languages[0].Language
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Check out my GitHub stats for %d! 🚀\n\n", year)
	fmt.Fprintf(&b, "📁 %d repositories\n", result.Stats.TotalRepos)
	fmt.Fprintf(&b, "⭐ %d stars\n", result.Stats.TotalStars)
	fmt.Fprintf(&b, "💻 %d commits\n\n", result.Stats.TotalCommitsThisYear)
	fmt.Fprintf(&b, "Top language: %s\n\n", top)
	b.WriteString("#GitHubWrapped #Coding")
	return b.String()
}
