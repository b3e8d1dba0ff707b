package domain

import "time"

// Commit time profiles.
const (
	ProfileNightCoder = "night-coder"
	ProfileEarlyBird  = "early-bird"
)

// LanguageShare is a language with its rounded share of the total bytes.
type LanguageShare struct {
	Language string  `json:"language"`
	Percent  float64 `json:"percent"`
}

// LanguageAggregate summarizes language bytes across a set of repositories.
type LanguageAggregate struct {
	Totals      map[string]int  `json:"totals"`
	Percentages []LanguageShare `json:"percentages"`
	Top3        []LanguageShare `json:"top3"`
}

// TopicCount is the number of repositories tagged with a topic.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// CommitTimeProfile is the hour-of-day distribution of a user's activity.
type CommitTimeProfile struct {
	Hours   [24]int `json:"hours"`
	Profile string  `json:"profile"`
}

// WeekBucket is the number of events that fell into one week.
type WeekBucket struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

// ActivitySummary describes the spread of weekly event counts.
type ActivitySummary struct {
	ActiveWeeks int     `json:"active_weeks"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Max         float64 `json:"max"`
	StdDev      float64 `json:"std_dev"`
}

// Streaks is derived from the contribution calendar.
type Streaks struct {
	Total   int `json:"total"`
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// RankedRepo pairs a repository with the score used to rank it.
type RankedRepo struct {
	Repository
	Score float64 `json:"score"`
}

// InsightsSnapshot is the fully assembled answer for one user.
// It is the only object handed to the downstream snapshot store.
type InsightsSnapshot struct {
	User            UserProfile       `json:"user"`
	RepoCount       int               `json:"repo_count"`
	Languages       LanguageAggregate `json:"languages"`
	Topics          []TopicCount      `json:"topics"`
	TopStarred      []RankedRepo      `json:"top_starred"`
	TopActive       []RankedRepo      `json:"top_active"`
	CommitTimes     CommitTimeProfile `json:"commit_times"`
	WeeklyActivity  []WeekBucket      `json:"weekly_activity"`
	ActivitySummary ActivitySummary   `json:"activity_summary"`
	Streaks         Streaks           `json:"streaks"`
	InferredDomain  string            `json:"inferred_domain"`
	GeneratedAt     time.Time         `json:"generated_at"`
}
