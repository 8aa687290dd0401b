package fetcher

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v75/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"
	"k8s.io/utils/ptr"

	"github.com/jonmartinstorm/repodash/internal/models"
)

const (
	// ReposPerPage is the page size for the repository listing; a shorter page ends it.
	ReposPerPage = 100

	DefaultBatchSize      = 5
	DefaultRequestTimeout = 10 * time.Second
)

// NewGitHubLimiter returns a token bucket spreading requestsPerHour evenly over the hour.
// A non-positive rate disables pacing. Clients built without a limiter do not pace;
// they only hold back once GitHub reports the quota as spent.
func NewGitHubLimiter(requestsPerHour float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	if requestsPerHour <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	slog.Debug("Created GitHub rate limiter", "requests_per_hour", requestsPerHour, "burst", burst)
	return rate.NewLimiter(rate.Limit(requestsPerHour/3600.0), burst)
}

// Client reads the authenticated user's data from the GitHub REST and GraphQL APIs.
type Client struct {
	gh         *github.Client
	graphqlURL string
	limiter    *rate.Limiter
	clock      clock.PassiveClock
	batchSize  int

	mu   sync.Mutex
	core github.Rate
}

// ClientOptions configures a Client.
type ClientOptions struct {
	baseURL    string
	graphqlURL string
	limiter   *rate.Limiter
	clock     clock.PassiveClock
	batchSize int
	timeout   time.Duration
	transport http.RoundTripper
}

// ClientOption applies a configuration to ClientOptions.
type ClientOption func(*ClientOptions)

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise or a test server.
func WithBaseURL(u string) ClientOption {
	return func(o *ClientOptions) { o.baseURL = u }
}

// WithGraphQLURL overrides the GraphQL endpoint derived from the base URL.
func WithGraphQLURL(u string) ClientOption {
	return func(o *ClientOptions) { o.graphqlURL = u }
}

// WithLimiter sets the rate limiter consulted before every upstream call.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(o *ClientOptions) { o.limiter = l }
}

func WithClock(c clock.PassiveClock) ClientOption {
	return func(o *ClientOptions) { o.clock = c }
}

// WithBatchSize sets how many language lookups run at once.
func WithBatchSize(n int) ClientOption {
	return func(o *ClientOptions) { o.batchSize = n }
}

// WithRequestTimeout bounds every single upstream HTTP call.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(o *ClientOptions) { o.timeout = d }
}

// WithTransport replaces the base transport underneath auth and tracing.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(o *ClientOptions) { o.transport = rt }
}

// NewClient builds a Client authenticated with the user's OAuth access token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	o := ClientOptions{
		clock:     clock.RealClock{},
		batchSize: DefaultBatchSize,
		timeout:   DefaultRequestTimeout,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limiter == nil {
		o.limiter = NewGitHubLimiter(0, 1)
	}

	httpClient := &http.Client{
		Timeout: o.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   otelhttp.NewTransport(o.transport),
		},
	}
	gh := github.NewClient(httpClient)
	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", o.baseURL, err)
		}
		gh.BaseURL = u
	}
	graphqlURL := o.graphqlURL
	if graphqlURL == "" {
		graphqlURL = GraphQLURL(gh.BaseURL)
	}

	return &Client{
		gh:         gh,
		graphqlURL: graphqlURL,
		limiter:    o.limiter,
		clock:      o.clock,
		batchSize:  o.batchSize,
	}, nil
}

// GraphQLURL returns the GraphQL endpoint belonging to a REST base URL. GitHub
// Enterprise serves REST under /api/v3/ and GraphQL at /api/graphql.
func GraphQLURL(base *url.URL) string {
	u := *base
	if strings.HasSuffix(u.Path, "/api/v3/") {
		u.Path = strings.TrimSuffix(u.Path, "v3/")
	}
	return u.ResolveReference(&url.URL{Path: "graphql"}).String()
}

// wait blocks until the next call may go out: until the core quota resets when
// GitHub reported it spent, then on the client-side limiter.
func (c *Client) wait(ctx context.Context) error {
	if d := c.untilReset(); d > 0 {
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < d {
			return fmt.Errorf("rate limit spent for another %s, past the request deadline", d.Truncate(time.Second))
		}
		slog.WarnContext(ctx, "GitHub rate limit reached, waiting for reset", "wait", d.Truncate(time.Second))
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for rate limit reset: %w", ctx.Err())
		case <-t.C:
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// observe records the core quota reported with a REST response.
func (c *Client) observe(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	c.mu.Lock()
	c.core = resp.Rate
	c.mu.Unlock()
}

func (c *Client) untilReset() time.Duration {
	c.mu.Lock()
	core := c.core
	c.mu.Unlock()
	if core.Limit == 0 || core.Remaining > 0 {
		return 0
	}
	return core.Reset.Sub(c.clock.Now())
}

// GetUserInfo returns the profile of the token's owner.
func (c *Client) GetUserInfo(ctx context.Context) (models.UserStats, error) {
	if err := c.wait(ctx); err != nil {
		return models.UserStats{}, upstreamError("get user", nil, err)
	}
	u, resp, err := c.gh.Users.Get(ctx, "")
	c.observe(resp)
	if err != nil {
		return models.UserStats{}, upstreamError("get user", resp, err)
	}
	return ConvertUser(u, c.clock.Now()), nil
}

// GetReposPage returns one page of the authenticated user's repositories,
// most recently updated first.
func (c *Client) GetReposPage(ctx context.Context, page int) ([]models.Repository, error) {
	repos, _, err := c.reposPage(ctx, page)
	return repos, err
}

// reposPage also returns the size of the page as sent by GitHub, before nil
// entries are dropped.
func (c *Client) reposPage(ctx context.Context, page int) ([]models.Repository, int, error) {
	slog.InfoContext(ctx, "Fetching repositories", "page", page)

	if err := c.wait(ctx); err != nil {
		return nil, 0, upstreamError("list repositories", nil, err)
	}
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: ReposPerPage, Page: page},
	}
	repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
	c.observe(resp)
	if err != nil {
		return nil, 0, upstreamError("list repositories", resp, err)
	}

	now := c.clock.Now()
	out := make([]models.Repository, 0, len(repos))
	for _, r := range repos {
		if r == nil {
			continue
		}
		out = append(out, ConvertRepository(r, now))
	}
	return out, len(repos), nil
}

// Repositories walks the repository listing lazily, one page at a time. It stops
// after a short or empty page, on the first error (yielded once), or as soon as
// the consumer stops ranging.
func (c *Client) Repositories(ctx context.Context) iter.Seq2[models.Repository, error] {
	return func(yield func(models.Repository, error) bool) {
		for page := 1; ; page++ {
			repos, size, err := c.reposPage(ctx, page)
			if err != nil {
				yield(models.Repository{}, err)
				return
			}
			for _, r := range repos {
				if !yield(r, nil) {
					return
				}
			}
			if size < ReposPerPage {
				return
			}
		}
	}
}

// ListRepositories returns every repository of the authenticated user.
func (c *Client) ListRepositories(ctx context.Context) ([]models.Repository, error) {
	var all []models.Repository
	for r, err := range c.Repositories(ctx) {
		if err != nil {
			return nil, err
		}
		all = append(all, r)
	}
	slog.InfoContext(ctx, "Fetched repositories", "count", len(all))
	return all, nil
}

// FetchRepoLanguages returns the language breakdown of one repository.
func (c *Client) FetchRepoLanguages(ctx context.Context, owner, name string) Result[models.LanguageStats] {
	if err := c.wait(ctx); err != nil {
		return Fail[models.LanguageStats](upstreamError("list languages", nil, err))
	}
	langs, resp, err := c.gh.Repositories.ListLanguages(ctx, owner, name)
	c.observe(resp)
	if err != nil {
		return Fail[models.LanguageStats](upstreamError("list languages", resp, err))
	}
	return Ok(models.LanguageStats(langs))
}

// GetRepoLanguages is FetchRepoLanguages with failures logged and replaced by
// an empty breakdown, so one broken repository never sinks an aggregate.
func (c *Client) GetRepoLanguages(ctx context.Context, owner, name string) models.LanguageStats {
	res := c.FetchRepoLanguages(ctx, owner, name)
	if res.Err != nil {
		slog.WarnContext(ctx, "Failed to fetch languages", "repo", owner+"/"+name, "error", res.Err)
	}
	return res.Or(models.LanguageStats{})
}

// GetAllLanguageStats sums the language breakdowns of repos. It never fails.
func (c *Client) GetAllLanguageStats(ctx context.Context, repos []models.Repository) models.LanguageStats {
	return NewLanguageAggregator(c, c.batchSize).Aggregate(ctx, repos)
}

// CommitSearchQuery builds the search query for commits authored by username since
// January 1st of year.
func CommitSearchQuery(username string, year int) string {
	return fmt.Sprintf("author:%s author-date:>=%04d-01-01", username, year)
}

// FetchCommitCount reads the total match count of the commit search; the commits
// themselves are not listed.
func (c *Client) FetchCommitCount(ctx context.Context, username string, year int) Result[int] {
	if err := c.wait(ctx); err != nil {
		return Fail[int](upstreamError("search commits", nil, err))
	}
	res, resp, err := c.gh.Search.Commits(ctx, CommitSearchQuery(username, year), &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return Fail[int](upstreamError("search commits", resp, err))
	}
	return Ok(res.GetTotal())
}

// GetCommitCountThisYear estimates the user's commits in the current calendar year.
// Failures, including a rate-limited search endpoint, count as zero.
func (c *Client) GetCommitCountThisYear(ctx context.Context, username string) int {
	res := c.FetchCommitCount(ctx, username, c.clock.Now().Year())
	if res.Err != nil {
		slog.WarnContext(ctx, "Failed to fetch commit count", "user", username, "error", res.Err)
	}
	return res.Or(0)
}

// GetRateLimit reports the core API quota. It bypasses the client-side limiter
// and does not wait for a spent quota to reset.
func (c *Client) GetRateLimit(ctx context.Context) (models.RateLimit, error) {
	limits, resp, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return models.RateLimit{}, upstreamError("get rate limit", resp, err)
	}
	core := limits.GetCore()
	if core == nil {
		return models.RateLimit{}, upstreamError("get rate limit", resp, fmt.Errorf("response has no core quota"))
	}
	return models.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// ConvertRepository maps an API repository. Missing timestamps fall back to now,
// and a missing push time to the update time.
func ConvertRepository(r *github.Repository, now time.Time) models.Repository {
	nowTS := github.Timestamp{Time: now}
	updated := ptr.Deref(r.UpdatedAt, nowTS)

	return models.Repository{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.Description,
		Language:    r.Language,
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		CreatedAt:   ptr.Deref(r.CreatedAt, nowTS).Time,
		UpdatedAt:   updated.Time,
		PushedAt:    ptr.Deref(r.PushedAt, updated).Time,
		Size:        r.GetSize(),
		HTMLURL:     r.GetHTMLURL(),
		Private:     r.GetPrivate(),
	}
}

func ConvertUser(u *github.User, now time.Time) models.UserStats {
	return models.UserStats{
		Username:    u.GetLogin(),
		Name:        u.Name,
		AvatarURL:   u.GetAvatarURL(),
		Bio:         u.Bio,
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		CreatedAt:   ptr.Deref(u.CreatedAt, github.Timestamp{Time: now}).Time,
	}
}
