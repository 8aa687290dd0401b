package fetcher

import (
	"context"

	"github.com/jonmartinstorm/repodash/internal/models"
)

// LanguageFetcher returns one repository's language breakdown, empty on failure.
type LanguageFetcher interface {
	GetRepoLanguages(ctx context.Context, owner, name string) models.LanguageStats
}

var _ LanguageFetcher = (*Client)(nil)
