package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/naka-gawa/github-insights/internal/domain"
)

func repo(owner, name string) domain.Repository {
	return domain.Repository{Owner: owner, Name: name}
}

func TestAggregateLanguages(t *testing.T) {
	testCases := []struct {
		name            string
		repos           []domain.Repository
		languagesByRepo map[string]map[string]int
		expected        domain.LanguageAggregate
	}{
		{
			name:  "two languages split 80/20",
			repos: []domain.Repository{repo("me", "web")},
			languagesByRepo: map[string]map[string]int{
				"me/web": {"JavaScript": 800, "Python": 200},
			},
			expected: domain.LanguageAggregate{
				Totals: map[string]int{"JavaScript": 800, "Python": 200},
				Percentages: []domain.LanguageShare{
					{Language: "JavaScript", Percent: 80.0},
					{Language: "Python", Percent: 20.0},
				},
				Top3: []domain.LanguageShare{
					{Language: "JavaScript", Percent: 80.0},
					{Language: "Python", Percent: 20.0},
				},
			},
		},
		{
			name:  "sums across repos and keeps only the top three",
			repos: []domain.Repository{repo("me", "a"), repo("me", "b")},
			languagesByRepo: map[string]map[string]int{
				"me/a": {"Go": 500, "Shell": 100},
				"me/b": {"Go": 100, "Rust": 200, "Makefile": 100},
			},
			expected: domain.LanguageAggregate{
				Totals: map[string]int{"Go": 600, "Rust": 200, "Shell": 100, "Makefile": 100},
				Percentages: []domain.LanguageShare{
					{Language: "Go", Percent: 60.0},
					{Language: "Rust", Percent: 20.0},
					{Language: "Makefile", Percent: 10.0},
					{Language: "Shell", Percent: 10.0},
				},
				Top3: []domain.LanguageShare{
					{Language: "Go", Percent: 60.0},
					{Language: "Rust", Percent: 20.0},
					{Language: "Makefile", Percent: 10.0},
				},
			},
		},
		{
			name:            "empty input yields an empty aggregate",
			repos:           nil,
			languagesByRepo: nil,
			expected: domain.LanguageAggregate{
				Totals:      map[string]int{},
				Percentages: []domain.LanguageShare{},
				Top3:        []domain.LanguageShare{},
			},
		},
		{
			name:  "repos with only empty maps",
			repos: []domain.Repository{repo("me", "empty")},
			languagesByRepo: map[string]map[string]int{
				"me/empty": {},
			},
			expected: domain.LanguageAggregate{
				Totals:      map[string]int{},
				Percentages: []domain.LanguageShare{},
				Top3:        []domain.LanguageShare{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := AggregateLanguages(tc.repos, tc.languagesByRepo)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestAggregateLanguages_PartialFailure(t *testing.T) {
	// Five repos, two of which have no language data because their fetch failed.
	repos := []domain.Repository{
		repo("me", "ok1"), repo("me", "failed1"), repo("me", "ok2"), repo("me", "failed2"), repo("me", "ok3"),
	}
	languagesByRepo := map[string]map[string]int{
		"me/ok1": {"Go": 300},
		"me/ok2": {"Go": 100, "TypeScript": 333},
		"me/ok3": {"Python": 267},
	}

	got := AggregateLanguages(repos, languagesByRepo)

	assert.Equal(t, map[string]int{"Go": 400, "TypeScript": 333, "Python": 267}, got.Totals)
	sum := 0.0
	for _, share := range got.Percentages {
		assert.False(t, math.IsNaN(share.Percent))
		sum += share.Percent
	}
	assert.InDelta(t, 100.0, sum, 0.2)
	assert.Equal(t, []domain.LanguageShare{
		{Language: "Go", Percent: 40.0},
		{Language: "TypeScript", Percent: 33.3},
		{Language: "Python", Percent: 26.7},
	}, got.Percentages)
}

func TestLanguagesOf(t *testing.T) {
	got := LanguagesOf(map[string]int{"C": 1, "Go": 3, "Empty": 0})

	assert.Equal(t, map[string]int{"C": 1, "Go": 3}, got.Totals)
	assert.Equal(t, []domain.LanguageShare{
		{Language: "Go", Percent: 75.0},
		{Language: "C", Percent: 25.0},
	}, got.Percentages)
}
