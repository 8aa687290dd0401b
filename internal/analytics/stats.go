package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/jonmartinstorm/repodash/internal/models"
)

const (
	// MostActiveLimit caps the "most active" repository list.
	MostActiveLimit = 10
	// ContributionDays is the length of the daily contribution series.
	ContributionDays = 365

	yearApprox = 365 * 24 * time.Hour
)

// Totals sums stars, forks and open issues over repos.
func Totals(repos []models.Repository) (stars, forks, issues int) {
	for _, r := range repos {
		stars += r.Stars
		forks += r.Forks
		issues += r.OpenIssues
	}
	return stars, forks, issues
}

// LanguagePercentages turns byte counts into shares of the total, largest first.
// Without any bytes there is nothing to divide by and the result is empty.
func LanguagePercentages(stats models.LanguageStats) []models.LanguagePercentage {
	total := stats.Total()
	out := make([]models.LanguagePercentage, 0, len(stats))
	if total <= 0 {
		return out
	}

	for lang, bytes := range stats {
		out = append(out, models.LanguagePercentage{
			Language:   lang,
			Bytes:      bytes,
			Percentage: float64(bytes) / float64(total) * 100,
		})
	}
	slices.SortFunc(out, func(a, b models.LanguagePercentage) int {
		if c := cmp.Compare(b.Bytes, a.Bytes); c != 0 {
			return c
		}
		return cmp.Compare(a.Language, b.Language)
	})
	return out
}

// AccountAgeYears counts whole 365-day years since created; leap days are ignored.
func AccountAgeYears(created, now time.Time) int {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return int(now.Sub(created) / yearApprox)
}

// MostActive returns up to limit repositories ordered by activity score, highest
// first. Equal scores keep their listing order. repos is not modified.
func MostActive(repos []models.Repository, limit int) []models.Repository {
	ranked := slices.Clone(repos)
	slices.SortStableFunc(ranked, func(a, b models.Repository) int {
		return cmp.Compare(b.ActivityScore(), a.ActivityScore())
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if ranked == nil {
		ranked = []models.Repository{}
	}
	return ranked
}

// MonthlyStats buckets repositories by creation month within now's year. The
// commit figure of each month is commitsThisYear/12, an even split rather than
// a measured per-month count.
func MonthlyStats(repos []models.Repository, commitsThisYear int, now time.Time) []models.MonthlyStat {
	year := now.Year()
	perMonth := commitsThisYear / 12

	stats := make([]models.MonthlyStat, 12)
	for i := range stats {
		stats[i] = models.MonthlyStat{
			Month:   time.Month(i + 1).String()[:3],
			Commits: perMonth,
		}
	}
	for _, r := range repos {
		created := r.CreatedAt.In(now.Location())
		if created.Year() != year {
			continue
		}
		stats[created.Month()-1].Repos++
	}
	return stats
}

// ContributionSeries lays out the last ContributionDays days ending with now's
// date, oldest first. Days missing from calendar count zero.
func ContributionSeries(calendar map[string]int, now time.Time) []models.ContributionDay {
	series := make([]models.ContributionDay, ContributionDays)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := range series {
		date := today.AddDate(0, 0, i-(ContributionDays-1)).Format(time.DateOnly)
		series[i] = models.ContributionDay{Date: date, Count: calendar[date]}
	}
	return series
}
