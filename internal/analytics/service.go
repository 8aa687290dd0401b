package analytics

import (
	"context"

	"github.com/jonmartinstorm/repodash/internal/fetcher"
	"github.com/jonmartinstorm/repodash/internal/models"
)

// Service exposes the raw upstream reads of one principal next to the composed analytics.
type Service struct {
	*fetcher.Client
	composer *Composer
}

func NewService(client *fetcher.Client, opts ...Option) *Service {
	return &Service{
		Client:   client,
		composer: NewComposer(client, opts...),
	}
}

func (s *Service) ComposeAnalytics(ctx context.Context) (models.AnalyticsResult, error) {
	return s.composer.ComposeAnalytics(ctx)
}
