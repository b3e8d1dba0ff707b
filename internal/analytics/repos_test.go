package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-insights/internal/domain"
)

func TestMostActiveAndMostStarred(t *testing.T) {
	popular := domain.Repository{Owner: "me", Name: "popular", StargazersCount: 100, ForksCount: 10, OpenIssuesCount: 5}
	churning := domain.Repository{Owner: "me", Name: "churning", StargazersCount: 10, ForksCount: 50, OpenIssuesCount: 50}
	repos := []domain.Repository{popular, churning}

	active := MostActive(repos, 5)
	require.Len(t, active, 2)
	assert.Equal(t, "churning", active[0].Name)
	assert.InDelta(t, 77.0, active[0].Score, 1e-9)
	assert.Equal(t, "popular", active[1].Name)
	assert.InDelta(t, 30.0, active[1].Score, 1e-9)

	starred := MostStarred(repos, 5)
	require.Len(t, starred, 2)
	assert.Equal(t, "popular", starred[0].Name)
	assert.Equal(t, 100.0, starred[0].Score)
}

func TestRanking_TopNAndStability(t *testing.T) {
	repos := []domain.Repository{
		{Name: "a", StargazersCount: 5},
		{Name: "b", StargazersCount: 9},
		{Name: "c", StargazersCount: 5},
		{Name: "d", StargazersCount: 1},
	}

	top := MostStarred(repos, 3)

	require.Len(t, top, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{top[0].Name, top[1].Name, top[2].Name})
	assert.Empty(t, MostStarred(repos, 0))
	assert.Empty(t, MostActive(nil, 5))
	assert.Equal(t, "d", repos[3].Name, "input must not be reordered")
}

func TestTopicsFrequency(t *testing.T) {
	repos := []domain.Repository{
		{Topics: []string{"cli", "go"}},
		{Topics: []string{"web", "go", ""}},
		{Topics: []string{"web", "api"}},
		{Topics: nil},
	}

	got := TopicsFrequency(repos)

	assert.Equal(t, []domain.TopicCount{
		{Topic: "go", Count: 2},
		{Topic: "web", Count: 2},
		{Topic: "cli", Count: 1},
		{Topic: "api", Count: 1},
	}, got)
	assert.Equal(t, []domain.TopicCount{}, TopicsFrequency(nil))
}

func TestInferDomain(t *testing.T) {
	testCases := []struct {
		name      string
		languages []domain.LanguageShare
		topics    []domain.TopicCount
		expected  string
	}{
		{
			name:      "web languages dominate",
			languages: []domain.LanguageShare{{Language: "TypeScript", Percent: 70}, {Language: "Go", Percent: 30}},
			expected:  "Web Development",
		},
		{
			name:      "topics tip the balance",
			languages: []domain.LanguageShare{{Language: "Go", Percent: 55}, {Language: "Python", Percent: 45}},
			topics:    []domain.TopicCount{{Topic: "machine-learning", Count: 2}},
			expected:  "Data Science & Machine Learning",
		},
		{
			name:     "nothing known",
			expected: DefaultDomain,
		},
		{
			name:      "language names are matched case-insensitively",
			languages: []domain.LanguageShare{{Language: "solidity", Percent: 100}},
			expected:  "Blockchain",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, InferDomain(tc.languages, tc.topics))
		})
	}
}
