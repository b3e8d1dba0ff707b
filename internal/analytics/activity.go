package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// timingEvents are the event types that reflect when someone actually writes code.
var timingEvents = map[string]bool{
	"PushEvent":        true,
	"PullRequestEvent": true,
	"IssuesEvent":      true,
}

// CommitTimeDistribution buckets push, pull request and issue events by UTC hour.
func CommitTimeDistribution(events []domain.Event) domain.CommitTimeProfile {
	var hours [24]int
	for _, event := range events {
		if !timingEvents[event.Type] || event.CreatedAt.IsZero() {
			continue
		}
		hours[event.CreatedAt.UTC().Hour()]++
	}
	return domain.CommitTimeProfile{
		Hours:   hours,
		Profile: ClassifyHours(hours),
	}
}

// ClassifyHours compares the night window (20:00-04:59 UTC) with the early
// window (05:00-11:59 UTC). Night has to be strictly busier to win.
func ClassifyHours(hours [24]int) string {
	night, early := 0, 0
	for hour, count := range hours {
		switch {
		case hour >= 20 || hour <= 4:
			night += count
		case hour >= 5 && hour <= 11:
			early += count
		}
	}
	if night > early {
		return domain.ProfileNightCoder
	}
	return domain.ProfileEarlyBird
}

// WeekKey labels t with a YYYY-Www key. The week number counts Sunday-started
// weeks from January 1st, which is fine for comparing weeks with each other
// but is not ISO-8601.
func WeekKey(t time.Time) string {
	t = t.UTC()
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	week := (t.YearDay()-1+int(jan1.Weekday()))/7 + 1
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// WeeklyActivity counts events of every type per week, oldest week first.
func WeeklyActivity(events []domain.Event) []domain.WeekBucket {
	counts := make(map[string]int)
	for _, event := range events {
		if event.CreatedAt.IsZero() {
			continue
		}
		counts[WeekKey(event.CreatedAt)]++
	}

	buckets := make([]domain.WeekBucket, 0, len(counts))
	for week, count := range counts {
		buckets = append(buckets, domain.WeekBucket{Week: week, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Week < buckets[j].Week
	})
	return buckets
}

// SummarizeActivity describes the spread of weekly counts.
func SummarizeActivity(weeks []domain.WeekBucket) domain.ActivitySummary {
	if len(weeks) == 0 {
		return domain.ActivitySummary{}
	}
	data := make(stats.Float64Data, 0, len(weeks))
	for _, week := range weeks {
		data = append(data, float64(week.Count))
	}

	// Errors only occur for empty input, which is handled above.
	mean, _ := data.Mean()
	median, _ := data.Median()
	maximum, _ := data.Max()
	stdDev, _ := data.StandardDeviation()

	return domain.ActivitySummary{
		ActiveWeeks: len(weeks),
		Mean:        round(mean, 2),
		Median:      round(median, 2),
		Max:         maximum,
		StdDev:      round(stdDev, 2),
	}
}

// ContributionStreaks computes streaks over a contribution calendar. The
// current streak may end yesterday when today has no contributions yet.
func ContributionStreaks(days []domain.ContributionDay) domain.Streaks {
	if len(days) == 0 {
		return domain.Streaks{}
	}
	sorted := append([]domain.ContributionDay{}, days...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var streaks domain.Streaks
	run := 0
	for i, day := range sorted {
		streaks.Total += day.Count
		switch {
		case day.Count <= 0:
			run = 0
		case i > 0 && consecutive(sorted[i-1].Date, day.Date) && sorted[i-1].Count > 0:
			run++
		default:
			run = 1
		}
		streaks.Longest = max(streaks.Longest, run)
	}

	end := len(sorted) - 1
	if sorted[end].Count <= 0 {
		end--
	}
	for i := end; i >= 0 && sorted[i].Count > 0; i-- {
		streaks.Current++
		if i > 0 && !consecutive(sorted[i-1].Date, sorted[i].Date) {
			break
		}
	}
	return streaks
}

func consecutive(prev, next time.Time) bool {
	py, pm, pd := prev.UTC().Date()
	return time.Date(py, pm, pd+1, 0, 0, 0, 0, time.UTC).Equal(truncateDay(next))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
