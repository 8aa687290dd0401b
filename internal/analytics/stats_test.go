package analytics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jonmartinstorm/repodash/internal/analytics"
	"github.com/jonmartinstorm/repodash/internal/models"
)

var now = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

var _ = Describe("Totals", func() {
	It("sums stars, forks and open issues", func() {
		stars, forks, issues := analytics.Totals([]models.Repository{
			{Stars: 10, Forks: 1, OpenIssues: 2},
			{Stars: 5, Forks: 5, OpenIssues: 0},
		})
		Expect([]int{stars, forks, issues}).To(Equal([]int{15, 6, 2}))
	})

	It("is zero for no repositories", func() {
		stars, forks, issues := analytics.Totals(nil)
		Expect([]int{stars, forks, issues}).To(Equal([]int{0, 0, 0}))
	})
})

var _ = Describe("LanguagePercentages", func() {
	It("orders by bytes and sums to 100", func() {
		pct := analytics.LanguagePercentages(models.LanguageStats{"Rust": 50, "Go": 150, "Shell": 7})

		Expect(pct).To(HaveLen(3))
		Expect(pct[0].Language).To(Equal("Go"))
		Expect(pct[1].Language).To(Equal("Rust"))
		Expect(pct[2].Language).To(Equal("Shell"))

		sum := 0.0
		for _, p := range pct {
			sum += p.Percentage
		}
		Expect(sum).To(BeNumerically("~", 100, 1e-9))
	})

	It("computes 75/25 for Go 150 and Rust 50", func() {
		pct := analytics.LanguagePercentages(models.LanguageStats{"Go": 150, "Rust": 50})
		Expect(pct).To(Equal([]models.LanguagePercentage{
			{Language: "Go", Bytes: 150, Percentage: 75},
			{Language: "Rust", Bytes: 50, Percentage: 25},
		}))
	})

	It("breaks byte ties by name", func() {
		pct := analytics.LanguagePercentages(models.LanguageStats{"Zig": 10, "C": 10})
		Expect(pct[0].Language).To(Equal("C"))
		Expect(pct[1].Language).To(Equal("Zig"))
	})

	It("is empty, not nil, without any bytes", func() {
		Expect(analytics.LanguagePercentages(models.LanguageStats{})).To(BeEmpty())
		Expect(analytics.LanguagePercentages(models.LanguageStats{"Go": 0})).To(BeEmpty())
		Expect(analytics.LanguagePercentages(nil)).NotTo(BeNil())
	})
})

var _ = Describe("AccountAgeYears", func() {
	It("counts whole 365-day years", func() {
		Expect(analytics.AccountAgeYears(time.Date(2011, time.January, 25, 0, 0, 0, 0, time.UTC), now)).To(Equal(15))
		Expect(analytics.AccountAgeYears(now.AddDate(0, 0, -364), now)).To(Equal(0))
		Expect(analytics.AccountAgeYears(now.Add(-365*24*time.Hour), now)).To(Equal(1))
	})

	It("is zero for unknown or future creation dates", func() {
		Expect(analytics.AccountAgeYears(time.Time{}, now)).To(Equal(0))
		Expect(analytics.AccountAgeYears(now.Add(time.Hour), now)).To(Equal(0))
	})
})

var _ = Describe("MostActive", func() {
	It("ranks by stars plus twice the forks", func() {
		repos := []models.Repository{
			{Name: "first", Stars: 10, Forks: 1},
			{Name: "second", Stars: 5, Forks: 5},
			{Name: "third", Stars: 0, Forks: 20},
		}
		ranked := analytics.MostActive(repos, 10)

		Expect(ranked).To(HaveLen(3))
		Expect([]string{ranked[0].Name, ranked[1].Name, ranked[2].Name}).To(Equal([]string{"third", "second", "first"}))
		Expect(repos[0].Name).To(Equal("first"), "input must stay untouched")
	})

	It("keeps listing order for equal scores", func() {
		ranked := analytics.MostActive([]models.Repository{
			{Name: "a", Stars: 2},
			{Name: "b", Forks: 1},
			{Name: "c", Stars: 2},
		}, 10)
		Expect([]string{ranked[0].Name, ranked[1].Name, ranked[2].Name}).To(Equal([]string{"a", "b", "c"}))
	})

	It("caps the list", func() {
		repos := make([]models.Repository, 25)
		for i := range repos {
			repos[i].Stars = i
		}
		ranked := analytics.MostActive(repos, analytics.MostActiveLimit)
		Expect(ranked).To(HaveLen(10))
		Expect(ranked[0].Stars).To(Equal(24))
	})

	It("returns an empty list for no repositories", func() {
		Expect(analytics.MostActive(nil, 10)).To(And(BeEmpty(), Not(BeNil())))
	})
})

var _ = Describe("MonthlyStats", func() {
	It("buckets repositories created this year and splits commits evenly", func() {
		stats := analytics.MonthlyStats([]models.Repository{
			{CreatedAt: time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)},
			{CreatedAt: time.Date(2026, time.January, 30, 0, 0, 0, 0, time.UTC)},
			{CreatedAt: time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)},
			{CreatedAt: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)},
		}, 125, now)

		Expect(stats).To(HaveLen(12))
		Expect(stats[0]).To(Equal(models.MonthlyStat{Month: "Jan", Repos: 2, Commits: 10}))
		Expect(stats[6]).To(Equal(models.MonthlyStat{Month: "Jul", Repos: 1, Commits: 10}))
		Expect(stats[11].Month).To(Equal("Dec"))
		Expect(stats[11].Repos).To(Equal(0))
	})
})

var _ = Describe("ContributionSeries", func() {
	It("covers 365 days ending today, oldest first", func() {
		series := analytics.ContributionSeries(map[string]int{
			"2026-10-15": 4,
			"2025-10-16": 1,
			"2025-10-15": 99,
		}, now)

		Expect(series).To(HaveLen(analytics.ContributionDays))
		Expect(series[0]).To(Equal(models.ContributionDay{Date: "2025-10-16", Count: 1}))
		Expect(series[364]).To(Equal(models.ContributionDay{Date: "2026-10-15", Count: 4}))
		Expect(series[100].Count).To(Equal(0))
	})

	It("is all zeros without a calendar", func() {
		series := analytics.ContributionSeries(nil, now)
		Expect(series).To(HaveLen(365))
		for _, d := range series {
			Expect(d.Count).To(BeZero())
		}
	})
})
