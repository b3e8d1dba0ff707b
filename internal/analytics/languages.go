// Package analytics derives insights from fetched repositories and events.
// Every function is pure: sparse or missing input gives empty or zero results,
// never an error.
package analytics

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// AggregateLanguages sums language bytes across repos and converts them to
// percentages rounded to one decimal, largest first. Repositories without an
// entry in languagesByRepo contribute nothing.
func AggregateLanguages(repos []domain.Repository, languagesByRepo map[string]map[string]int) domain.LanguageAggregate {
	totals := make(map[string]int)
	for _, repo := range repos {
		for language, bytes := range languagesByRepo[repo.FullName()] {
			if bytes > 0 {
				totals[language] += bytes
			}
		}
	}
	return languageAggregate(totals)
}

// LanguagesOf turns a single repository's language map into an aggregate.
func LanguagesOf(languages map[string]int) domain.LanguageAggregate {
	totals := make(map[string]int, len(languages))
	for language, bytes := range languages {
		if bytes > 0 {
			totals[language] = bytes
		}
	}
	return languageAggregate(totals)
}

func languageAggregate(totals map[string]int) domain.LanguageAggregate {
	total := 0
	names := make([]string, 0, len(totals))
	for language, bytes := range totals {
		total += bytes
		names = append(names, language)
	}
	// Guards the divide; with nothing to divide every share is zero anyway.
	if total == 0 {
		total = 1
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})

	percentages := make([]domain.LanguageShare, 0, len(names))
	for _, language := range names {
		percentages = append(percentages, domain.LanguageShare{
			Language: language,
			Percent:  round(float64(totals[language])/float64(total)*100, 1),
		})
	}

	top := min(3, len(percentages))
	return domain.LanguageAggregate{
		Totals:      totals,
		Percentages: percentages,
		Top3:        append([]domain.LanguageShare{}, percentages[:top]...),
	}
}

// round rounds v to places decimals; NaN becomes zero.
func round(v float64, places int) float64 {
	r, err := stats.Round(v, places)
	if err != nil {
		return 0
	}
	return r
}
