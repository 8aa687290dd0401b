package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const contributionCalendarQuery = `query($from: DateTime!, $to: DateTime!) {
	viewer {
		contributionsCollection(from: $from, to: $to) {
			contributionCalendar {
				totalContributions
				weeks {
					contributionDays {
						date
						contributionCount
					}
				}
			}
		}
	}
}`

type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type GraphQLError struct {
	Message string `json:"message"`
}

type CalendarDay struct {
	Date              string `json:"date"`
	ContributionCount int    `json:"contributionCount"`
}

type ContributionCalendar struct {
	TotalContributions int `json:"totalContributions"`
	Weeks              []struct {
		ContributionDays []CalendarDay `json:"contributionDays"`
	} `json:"weeks"`
}

type ContributionResponse struct {
	Data *struct {
		Viewer struct {
			ContributionsCollection *struct {
				ContributionCalendar ContributionCalendar `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// BuildContributionRequest builds the GraphQL request for the viewer's contribution
// calendar between from and to. GitHub caps the range at one year.
func BuildContributionRequest(from, to time.Time) GraphQLRequest {
	return GraphQLRequest{
		Query: contributionCalendarQuery,
		Variables: map[string]any{
			"from": from.UTC().Format(time.RFC3339),
			"to":   to.UTC().Format(time.RFC3339),
		},
	}
}

// ExtractContributionDays flattens the calendar into date -> contribution count.
func ExtractContributionDays(resp ContributionResponse) (map[string]int, error) {
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}
	if resp.Data == nil || resp.Data.Viewer.ContributionsCollection == nil {
		return nil, errors.New("graphql response has no contribution data")
	}

	days := map[string]int{}
	for _, week := range resp.Data.Viewer.ContributionsCollection.ContributionCalendar.Weeks {
		for _, d := range week.ContributionDays {
			if d.Date == "" {
				continue
			}
			days[d.Date] += d.ContributionCount
		}
	}
	return days, nil
}

// FetchContributionCalendar returns the viewer's per-day contribution counts keyed
// by YYYY-MM-DD.
func (c *Client) FetchContributionCalendar(ctx context.Context, from, to time.Time) Result[map[string]int] {
	if err := c.wait(ctx); err != nil {
		return Fail[map[string]int](upstreamError("contribution calendar", nil, err))
	}

	req, err := c.gh.NewRequest(http.MethodPost, c.graphqlURL, BuildContributionRequest(from, to))
	if err != nil {
		return Fail[map[string]int](upstreamError("contribution calendar", nil, err))
	}

	var out ContributionResponse
	resp, err := c.gh.Do(ctx, req, &out)
	if err != nil {
		return Fail[map[string]int](upstreamError("contribution calendar", resp, err))
	}

	days, err := ExtractContributionDays(out)
	if err != nil {
		slog.WarnContext(ctx, "GraphQL result carries no calendar", "error", err)
		return Fail[map[string]int](upstreamError("contribution calendar", resp, err))
	}
	return Ok(days)
}
