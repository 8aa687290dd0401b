package server

import (
	"context"
	"iter"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonmartinstorm/repodash/internal/analytics"
	"github.com/jonmartinstorm/repodash/internal/cache"
	"github.com/jonmartinstorm/repodash/internal/fetcher"
	"github.com/jonmartinstorm/repodash/internal/models"
)

// Backend is what the handlers need from GitHub on behalf of one principal.
type Backend interface {
	GetUserInfo(ctx context.Context) (models.UserStats, error)
	Repositories(ctx context.Context) iter.Seq2[models.Repository, error]
	ListRepositories(ctx context.Context) ([]models.Repository, error)
	GetAllLanguageStats(ctx context.Context, repos []models.Repository) models.LanguageStats
	GetRateLimit(ctx context.Context) (models.RateLimit, error)
	ComposeAnalytics(ctx context.Context) (models.AnalyticsResult, error)
}

// BackendFactory builds a Backend for a bearer token taken from the request.
type BackendFactory func(token string) (Backend, error)

var _ Backend = (*analytics.Service)(nil)

// Pacing is optional client-side pacing, applied per token since GitHub counts
// the quota per token. A zero RequestsPerHour turns it off.
type Pacing struct {
	RequestsPerHour float64
	Burst           int
}

// limiterTTL matches the window of GitHub's hourly quota.
const limiterTTL = time.Hour

// NewGitHubBackendFactory returns a factory creating one GitHub client per token.
// With pacing on, requests made with the same token share one limiter.
func NewGitHubBackendFactory(pacing Pacing, clientOpts []fetcher.ClientOption, analyticsOpts ...analytics.Option) BackendFactory {
	var (
		mu       sync.Mutex
		limiters = cache.New[*rate.Limiter](cache.WithTTL[*rate.Limiter](limiterTTL))
	)
	limiterFor := func(token string) *rate.Limiter {
		key := cacheKey("limiter", token)
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters.Get(key); ok {
			return l
		}
		l := fetcher.NewGitHubLimiter(pacing.RequestsPerHour, pacing.Burst)
		limiters.Set(key, l)
		return l
	}

	return func(token string) (Backend, error) {
		opts := clientOpts
		if pacing.RequestsPerHour > 0 && token != "" {
			opts = append(opts[:len(opts):len(opts)], fetcher.WithLimiter(limiterFor(token)))
		}
		client, err := fetcher.NewClient(token, opts...)
		if err != nil {
			return nil, err
		}
		return analytics.NewService(client, analyticsOpts...), nil
	}
}
