package models

import (
	"strings"
	"time"
)

// Repository is a read-only snapshot of one repository owned by or accessible to the user.
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description *string   `json:"description"`
	Language    *string   `json:"language"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	OpenIssues  int       `json:"open_issues_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Size        int       `json:"size"`
	HTMLURL     string    `json:"html_url"`
	Private     bool      `json:"private"`
}

// OwnerAndName splits FullName into its owner and name parts. ok is false unless
// FullName contains exactly one separator with non-empty parts on both sides.
func (r Repository) OwnerAndName() (owner, name string, ok bool) {
	owner, name, found := strings.Cut(r.FullName, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

// ActivityScore ranks repositories for the "most active" list.
func (r Repository) ActivityScore() int {
	return r.Stars + 2*r.Forks
}

// LanguageStats maps a language name to the number of bytes written in it.
type LanguageStats map[string]int

// Add accumulates other into s entrywise.
func (s LanguageStats) Add(other LanguageStats) {
	for lang, bytes := range other {
		s[lang] += bytes
	}
}

func (s LanguageStats) Total() int {
	total := 0
	for _, bytes := range s {
		total += bytes
	}
	return total
}

type UserStats struct {
	Username    string    `json:"username"`
	Name        *string   `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
}

type LanguagePercentage struct {
	Language   string  `json:"language"`
	Bytes      int     `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// MonthlyStat is one calendar month of the current year. Commits is the yearly
// total split evenly across the twelve months, not a real per-month figure.
type MonthlyStat struct {
	Month   string `json:"month"`
	Repos   int    `json:"repos"`
	Commits int    `json:"commits"`
}

type ContributionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Values for Summary.ContributionsSource.
const (
	ContributionsCalendar    = "calendar"
	ContributionsUnavailable = "unavailable"
)

type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

type Summary struct {
	TotalRepos           int                  `json:"totalRepos"`
	TotalStars           int                  `json:"totalStars"`
	TotalForks           int                  `json:"totalForks"`
	TotalIssues          int                  `json:"totalIssues"`
	TotalCommitsThisYear int                  `json:"totalCommitsThisYear"`
	AccountAgeYears      int                  `json:"accountAge"`
	Languages            []LanguagePercentage `json:"languages"`
	MonthlyStats         []MonthlyStat        `json:"monthlyStats"`
	Contributions        []ContributionDay    `json:"contributions"`
	ContributionsSource  string               `json:"contributionsSource"`
}

// AnalyticsResult is the composed dashboard payload. Repos holds the most active
// repositories, at most ten. Partial is set when the composition ran out of time
// or was canceled after the user and repositories were read, so later figures
// may be short.
type AnalyticsResult struct {
	User    UserStats    `json:"user"`
	Stats   Summary      `json:"stats"`
	Repos   []Repository `json:"repos"`
	Partial bool         `json:"partial,omitempty"`
}

func (r AnalyticsResult) IsPartial() bool {
	return r.Partial
}
