package fetcher

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/jonmartinstorm/repodash/internal/models"
)

// LanguageAggregator sums language breakdowns over many repositories. Lookups run
// in fixed-size batches: every lookup of a batch finishes before the next batch
// starts, so at most batchSize requests are in flight.
type LanguageAggregator struct {
	fetcher   LanguageFetcher
	batchSize int
}

func NewLanguageAggregator(f LanguageFetcher, batchSize int) *LanguageAggregator {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &LanguageAggregator{fetcher: f, batchSize: batchSize}
}

// Aggregate returns the entrywise sum of the breakdowns of repos. Repositories
// whose lookup fails, or whose full name is malformed, contribute nothing. Once
// ctx is done the remaining batches are skipped and the partial sum returned.
func (a *LanguageAggregator) Aggregate(ctx context.Context, repos []models.Repository) models.LanguageStats {
	total := models.LanguageStats{}
	done := 0

	for batch := range slices.Chunk(repos, a.batchSize) {
		if err := ctx.Err(); err != nil {
			slog.WarnContext(ctx, "Stopping language aggregation early",
				"processed", done, "total", len(repos), "error", err)
			break
		}

		results := make([]models.LanguageStats, len(batch))
		var g errgroup.Group
		g.SetLimit(a.batchSize)
		for i, repo := range batch {
			g.Go(func() error {
				owner, name, ok := repo.OwnerAndName()
				if !ok {
					slog.WarnContext(ctx, "Skipping repository with malformed full name", "repo", repo.FullName)
					return nil
				}
				results[i] = a.fetcher.GetRepoLanguages(ctx, owner, name)
				return nil
			})
		}
		// Lookups never return errors; failures already degraded to empty maps.
		_ = g.Wait()

		for _, langs := range results {
			total.Add(langs)
		}
		done += len(batch)
	}

	slog.DebugContext(ctx, "Aggregated languages", "repos", done, "languages", len(total))
	return total
}
