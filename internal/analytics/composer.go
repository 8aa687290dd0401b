// Package analytics composes the dashboard payload from raw GitHub reads.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/jonmartinstorm/repodash/internal/fetcher"
	"github.com/jonmartinstorm/repodash/internal/models"
)

var tracer = otel.Tracer("repodash/analytics")

// GitHubAPI is the set of upstream reads the composer builds on.
type GitHubAPI interface {
	GetUserInfo(ctx context.Context) (models.UserStats, error)
	ListRepositories(ctx context.Context) ([]models.Repository, error)
	GetAllLanguageStats(ctx context.Context, repos []models.Repository) models.LanguageStats
	GetCommitCountThisYear(ctx context.Context, username string) int
	FetchContributionCalendar(ctx context.Context, from, to time.Time) fetcher.Result[map[string]int]
}

type Composer struct {
	api     GitHubAPI
	clock   clock.PassiveClock
	timeout time.Duration
}

type Option func(*Composer)

func WithClock(c clock.PassiveClock) Option {
	return func(cp *Composer) { cp.clock = c }
}

// WithTimeout sets the deadline for one whole composition. Zero means no deadline
// beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(cp *Composer) { cp.timeout = d }
}

func NewComposer(api GitHubAPI, opts ...Option) *Composer {
	c := &Composer{api: api, clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComposeAnalytics builds the full dashboard payload. It fails only when the user
// profile or the repository listing cannot be read; languages, commit count and
// the contribution calendar degrade to empty or zero values instead. A result
// cut short by ctx or the composition deadline is returned with Partial set.
func (c *Composer) ComposeAnalytics(ctx context.Context) (models.AnalyticsResult, error) {
	ctx, span := tracer.Start(ctx, "Composer.ComposeAnalytics")
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		user  models.UserStats
		repos []models.Repository
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.api.GetUserInfo(gctx)
		if err != nil {
			return fmt.Errorf("fetch user info: %w", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		r, err := c.api.ListRepositories(gctx)
		if err != nil {
			return fmt.Errorf("list repositories: %w", err)
		}
		repos = r
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream read failed")
		return models.AnalyticsResult{}, err
	}
	span.SetAttributes(attribute.String("github.user", user.Username), attribute.Int("github.repos", len(repos)))

	langs := c.api.GetAllLanguageStats(ctx, repos)
	commits := c.api.GetCommitCountThisYear(ctx, user.Username)

	now := c.clock.Now()
	contributions, source := c.contributions(ctx, now)
	stars, forks, issues := Totals(repos)

	partial := ctx.Err() != nil
	if partial {
		slog.WarnContext(ctx, "Analytics cut short, figures may be incomplete", "user", user.Username, "error", ctx.Err())
		span.SetAttributes(attribute.Bool("analytics.partial", true))
	}

	slog.InfoContext(ctx, "Composed analytics",
		"user", user.Username, "repos", len(repos), "languages", len(langs), "commits", commits)

	return models.AnalyticsResult{
		User: user,
		Stats: models.Summary{
			TotalRepos:           len(repos),
			TotalStars:           stars,
			TotalForks:           forks,
			TotalIssues:          issues,
			TotalCommitsThisYear: commits,
			AccountAgeYears:      AccountAgeYears(user.CreatedAt, now),
			Languages:            LanguagePercentages(langs),
			MonthlyStats:         MonthlyStats(repos, commits, now),
			Contributions:        contributions,
			ContributionsSource:  source,
		},
		Repos:   MostActive(repos, MostActiveLimit),
		Partial: partial,
	}, nil
}

func (c *Composer) contributions(ctx context.Context, now time.Time) ([]models.ContributionDay, string) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := today.AddDate(0, 0, -(ContributionDays - 1))

	res := c.api.FetchContributionCalendar(ctx, from, now)
	if res.Err != nil {
		slog.WarnContext(ctx, "Contribution calendar unavailable, reporting zeros", "error", res.Err)
		return ContributionSeries(nil, now), models.ContributionsUnavailable
	}
	return ContributionSeries(res.Value, now), models.ContributionsCalendar
}
