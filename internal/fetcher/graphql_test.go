package fetcher_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jonmartinstorm/repodash/internal/fetcher"
)

func calendarResponse(days ...fetcher.CalendarDay) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"viewer": map[string]any{
				"contributionsCollection": map[string]any{
					"contributionCalendar": map[string]any{
						"totalContributions": len(days),
						"weeks": []any{
							map[string]any{"contributionDays": days},
						},
					},
				},
			},
		},
	}
}

var _ = Describe("Contribution calendar", func() {
	from := time.Date(2025, time.October, 16, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

	Describe("BuildContributionRequest", func() {
		It("passes the range as RFC 3339 variables", func() {
			req := fetcher.BuildContributionRequest(from, to)
			Expect(req.Query).To(ContainSubstring("contributionCalendar"))
			Expect(req.Variables).To(HaveKeyWithValue("from", "2025-10-16T00:00:00Z"))
			Expect(req.Variables).To(HaveKeyWithValue("to", "2026-10-15T12:00:00Z"))
		})
	})

	Describe("ExtractContributionDays", func() {
		It("flattens weeks into a date map", func() {
			var resp fetcher.ContributionResponse
			raw, _ := json.Marshal(calendarResponse(
				fetcher.CalendarDay{Date: "2026-10-14", ContributionCount: 3},
				fetcher.CalendarDay{Date: "2026-10-15", ContributionCount: 0},
				fetcher.CalendarDay{Date: "", ContributionCount: 9},
			))
			Expect(json.Unmarshal(raw, &resp)).To(Succeed())

			days, err := fetcher.ExtractContributionDays(resp)
			Expect(err).NotTo(HaveOccurred())
			Expect(days).To(Equal(map[string]int{"2026-10-14": 3, "2026-10-15": 0}))
		})

		It("fails on GraphQL errors", func() {
			_, err := fetcher.ExtractContributionDays(fetcher.ContributionResponse{
				Errors: []fetcher.GraphQLError{{Message: "rate limited"}, {Message: "try later"}},
			})
			Expect(err).To(MatchError(ContainSubstring("rate limited; try later")))
		})

		It("fails when the response has no data", func() {
			_, err := fetcher.ExtractContributionDays(fetcher.ContributionResponse{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("FetchContributionCalendar", func() {
		It("posts the query and returns the calendar", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				var req fetcher.GraphQLRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Variables).To(HaveKeyWithValue("from", "2025-10-16T00:00:00Z"))
				writeJSON(w, http.StatusOK, calendarResponse(
					fetcher.CalendarDay{Date: "2026-10-15", ContributionCount: 7},
				))
			})
			client, _ := newTestClient(mux)

			res := client.FetchContributionCalendar(context.Background(), from, to)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Value).To(HaveKeyWithValue("2026-10-15", 7))
		})

		It("returns an error result when GraphQL reports errors", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"errors": []map[string]any{{"message": "Something went wrong"}},
				})
			})
			client, _ := newTestClient(mux)

			res := client.FetchContributionCalendar(context.Background(), from, to)
			Expect(res.Err).To(MatchError(ContainSubstring("Something went wrong")))
			Expect(res.Or(map[string]int{})).To(BeEmpty())
		})

		It("posts to /api/graphql on GitHub Enterprise", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/graphql", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, calendarResponse(
					fetcher.CalendarDay{Date: "2026-10-15", ContributionCount: 3},
				))
			})
			ts := httptest.NewServer(mux)
			DeferCleanup(ts.Close)

			client, err := fetcher.NewClient("test-token",
				fetcher.WithBaseURL(ts.URL+"/api/v3/"),
				fetcher.WithLimiter(fetcher.NewGitHubLimiter(0, 1)),
			)
			Expect(err).NotTo(HaveOccurred())

			res := client.FetchContributionCalendar(context.Background(), from, to)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Value).To(HaveKeyWithValue("2026-10-15", 3))
		})

		It("treats a rejected token as unauthenticated", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Bad credentials"})
			})
			client, _ := newTestClient(mux)

			res := client.FetchContributionCalendar(context.Background(), from, to)
			Expect(errors.Is(res.Err, fetcher.ErrUnauthenticated)).To(BeTrue())
		})
	})
})

var _ = DescribeTable("GraphQLURL",
	func(base, want string) {
		u, err := url.Parse(base)
		Expect(err).NotTo(HaveOccurred())
		Expect(fetcher.GraphQLURL(u)).To(Equal(want))
	},
	Entry("github.com", "https://api.github.com/", "https://api.github.com/graphql"),
	Entry("GitHub Enterprise", "https://ghe.example.com/api/v3/", "https://ghe.example.com/api/graphql"),
	Entry("plain host", "http://127.0.0.1:8080/", "http://127.0.0.1:8080/graphql"),
)
