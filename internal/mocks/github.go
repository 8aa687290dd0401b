// Package mocks holds testify mocks for the interfaces between packages.
package mocks

import (
	"context"
	"iter"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jonmartinstorm/repodash/internal/fetcher"
	"github.com/jonmartinstorm/repodash/internal/models"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockGitHubAPI mocks the upstream reads used by the analytics composer.
type MockGitHubAPI struct {
	mock.Mock
}

func NewMockGitHubAPI(t testingT) *MockGitHubAPI {
	m := &MockGitHubAPI{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockGitHubAPI) GetUserInfo(ctx context.Context) (models.UserStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.UserStats), args.Error(1)
}

func (m *MockGitHubAPI) ListRepositories(ctx context.Context) ([]models.Repository, error) {
	args := m.Called(ctx)
	repos, _ := args.Get(0).([]models.Repository)
	return repos, args.Error(1)
}

func (m *MockGitHubAPI) GetAllLanguageStats(ctx context.Context, repos []models.Repository) models.LanguageStats {
	args := m.Called(ctx, repos)
	stats, _ := args.Get(0).(models.LanguageStats)
	return stats
}

func (m *MockGitHubAPI) GetCommitCountThisYear(ctx context.Context, username string) int {
	args := m.Called(ctx, username)
	return args.Int(0)
}

func (m *MockGitHubAPI) FetchContributionCalendar(ctx context.Context, from, to time.Time) fetcher.Result[map[string]int] {
	args := m.Called(ctx, from, to)
	return args.Get(0).(fetcher.Result[map[string]int])
}

// MockLanguageFetcher mocks fetcher.LanguageFetcher.
type MockLanguageFetcher struct {
	mock.Mock
}

func NewMockLanguageFetcher(t testingT) *MockLanguageFetcher {
	m := &MockLanguageFetcher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockLanguageFetcher) GetRepoLanguages(ctx context.Context, owner, name string) models.LanguageStats {
	args := m.Called(ctx, owner, name)
	stats, _ := args.Get(0).(models.LanguageStats)
	return stats
}

// MockBackend mocks server.Backend.
type MockBackend struct {
	mock.Mock
}

func NewMockBackend(t testingT) *MockBackend {
	m := &MockBackend{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBackend) GetUserInfo(ctx context.Context) (models.UserStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.UserStats), args.Error(1)
}

func (m *MockBackend) Repositories(ctx context.Context) iter.Seq2[models.Repository, error] {
	args := m.Called(ctx)
	return args.Get(0).(iter.Seq2[models.Repository, error])
}

func (m *MockBackend) ListRepositories(ctx context.Context) ([]models.Repository, error) {
	args := m.Called(ctx)
	repos, _ := args.Get(0).([]models.Repository)
	return repos, args.Error(1)
}

func (m *MockBackend) GetAllLanguageStats(ctx context.Context, repos []models.Repository) models.LanguageStats {
	args := m.Called(ctx, repos)
	stats, _ := args.Get(0).(models.LanguageStats)
	return stats
}

func (m *MockBackend) GetRateLimit(ctx context.Context) (models.RateLimit, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.RateLimit), args.Error(1)
}

func (m *MockBackend) ComposeAnalytics(ctx context.Context) (models.AnalyticsResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.AnalyticsResult), args.Error(1)
}
