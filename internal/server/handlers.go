package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jonmartinstorm/repodash/internal/export"
	"github.com/jonmartinstorm/repodash/internal/models"
)

const (
	msgUser      = "Failed to fetch user data"
	msgRepos     = "Failed to fetch repositories"
	msgLanguages = "Failed to fetch language statistics"
	msgRateLimit = "Failed to fetch rate limit"
	msgAnalytics = "Failed to fetch analytics"
	msgTestToken = "Failed to fetch from GitHub"
	msgLimit     = "Invalid limit"
)

type reposQuery struct {
	Limit *int `validate:"omitempty,min=1,max=10000"`
}

type testTokenResponse struct {
	Success     bool   `json:"success"`
	Username    string `json:"username"`
	PublicRepos int    `json:"publicRepos"`
	Followers   int    `json:"followers"`
}

type shareResponse struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// cacheKey never contains the token itself.
func cacheKey(endpoint, token string) string {
	sum := sha256.Sum256([]byte(token))
	return endpoint + ":" + hex.EncodeToString(sum[:])
}

// backend resolves the Backend for the request's token. On failure it has already
// written the response.
func (s *Server) backend(w http.ResponseWriter, r *http.Request, message string) (Backend, string, bool) {
	token, ok := TokenFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return nil, "", false
	}
	b, err := s.backends(token)
	if err != nil {
		respondUpstreamError(w, r, err, message)
		return nil, "", false
	}
	return b, token, true
}

// partialResult is implemented by values that may be incomplete. Those are
// served but not cached.
type partialResult interface {
	IsPartial() bool
}

// cached returns the encoded body stored for endpoint and token, or calls load,
// encodes its value and stores it. Failed loads and partial values are not cached.
func (s *Server) cached(ctx context.Context, endpoint, token string, load func() (any, error)) ([]byte, error) {
	key := cacheKey(endpoint, token)
	if body, ok := s.cache.Get(key); ok {
		slog.DebugContext(ctx, "Serving cached response", "endpoint", endpoint)
		return body, nil
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s response: %w", endpoint, err)
	}
	if p, ok := v.(partialResult); ok && p.IsPartial() {
		slog.WarnContext(ctx, "Not caching partial response", "endpoint", endpoint)
		return body, nil
	}
	s.cache.Set(key, body)
	return body, nil
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	b, token, ok := s.backend(w, r, msgUser)
	if !ok {
		return
	}
	body, err := s.cached(r.Context(), "user", token, func() (any, error) {
		return b.GetUserInfo(r.Context())
	})
	if err != nil {
		respondUpstreamError(w, r, err, msgUser)
		return
	}
	respondRaw(w, http.StatusOK, body)
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	var q reposQuery
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, msgLimit)
			return
		}
		q.Limit = &n
	}
	if err := s.validate.Struct(&q); err != nil {
		respondError(w, http.StatusBadRequest, msgLimit)
		return
	}

	b, token, ok := s.backend(w, r, msgRepos)
	if !ok {
		return
	}

	endpoint := "repos"
	if q.Limit != nil {
		endpoint = "repos?limit=" + strconv.Itoa(*q.Limit)
	}
	body, err := s.cached(r.Context(), endpoint, token, func() (any, error) {
		if q.Limit == nil {
			repos, err := b.ListRepositories(r.Context())
			if repos == nil {
				repos = []models.Repository{}
			}
			return repos, err
		}
		return firstRepositories(r.Context(), b, *q.Limit)
	})
	if err != nil {
		respondUpstreamError(w, r, err, msgRepos)
		return
	}
	respondRaw(w, http.StatusOK, body)
}

// firstRepositories stops paging as soon as limit repositories have been read.
func firstRepositories(ctx context.Context, b Backend, limit int) ([]models.Repository, error) {
	repos := make([]models.Repository, 0, min(limit, 100))
	for repo, err := range b.Repositories(ctx) {
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
		if len(repos) >= limit {
			break
		}
	}
	return repos, nil
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	b, token, ok := s.backend(w, r, msgLanguages)
	if !ok {
		return
	}
	body, err := s.cached(r.Context(), "languages", token, func() (any, error) {
		repos, err := b.ListRepositories(r.Context())
		if err != nil {
			return nil, err
		}
		return b.GetAllLanguageStats(r.Context(), repos), nil
	})
	if err != nil {
		respondUpstreamError(w, r, err, msgLanguages)
		return
	}
	respondRaw(w, http.StatusOK, body)
}

// handleRateLimit is never cached; the quota changes with every call.
func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	b, _, ok := s.backend(w, r, msgRateLimit)
	if !ok {
		return
	}
	limit, err := b.GetRateLimit(r.Context())
	if err != nil {
		respondUpstreamError(w, r, err, msgRateLimit)
		return
	}
	respondJSON(w, http.StatusOK, limit)
}

// analytics returns the encoded composition, shared by the analytics, export and
// share endpoints.
func (s *Server) analytics(r *http.Request, b Backend, token string) ([]byte, error) {
	return s.cached(r.Context(), "analytics", token, func() (any, error) {
		return b.ComposeAnalytics(r.Context())
	})
}

func (s *Server) analyticsResult(r *http.Request, b Backend, token string) (models.AnalyticsResult, error) {
	body, err := s.analytics(r, b, token)
	if err != nil {
		return models.AnalyticsResult{}, err
	}
	var result models.AnalyticsResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.AnalyticsResult{}, fmt.Errorf("decode cached analytics: %w", err)
	}
	return result, nil
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	b, token, ok := s.backend(w, r, msgAnalytics)
	if !ok {
		return
	}
	body, err := s.analytics(r, b, token)
	if err != nil {
		respondUpstreamError(w, r, err, msgAnalytics)
		return
	}
	respondRaw(w, http.StatusOK, body)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	b, token, ok := s.backend(w, r, msgAnalytics)
	if !ok {
		return
	}
	result, err := s.analyticsResult(r, b, token)
	if err != nil {
		respondUpstreamError(w, r, err, msgAnalytics)
		return
	}
	out, err := export.Encode(result)
	if err != nil {
		respondUpstreamError(w, r, err, msgAnalytics)
		return
	}

	name := export.FileName(result.User.Username, s.clock.Now())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	respondRaw(w, http.StatusOK, out)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	b, token, ok := s.backend(w, r, msgAnalytics)
	if !ok {
		return
	}
	result, err := s.analyticsResult(r, b, token)
	if err != nil {
		respondUpstreamError(w, r, err, msgAnalytics)
		return
	}
	year := s.clock.Now().Year()
	respondJSON(w, http.StatusOK, shareResponse{
		Title: fmt.Sprintf("My GitHub Stats %d", year),
		Text:  export.ShareText(result, year),
	})
}

// handleTestToken checks that the token works by reading the user profile.
func (s *Server) handleTestToken(w http.ResponseWriter, r *http.Request) {
	b, _, ok := s.backend(w, r, msgTestToken)
	if !ok {
		return
	}
	user, err := b.GetUserInfo(r.Context())
	if err != nil {
		respondUpstreamError(w, r, err, msgTestToken)
		return
	}
	respondJSON(w, http.StatusOK, testTokenResponse{
		Success:     true,
		Username:    user.Username,
		PublicRepos: user.PublicRepos,
		Followers:   user.Followers,
	})
}
