package analytics

import (
	"sort"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// TopicsFrequency counts topic tags across repos, most frequent first.
// Equal counts keep the order in which topics were first seen.
func TopicsFrequency(repos []domain.Repository) []domain.TopicCount {
	index := make(map[string]int)
	counts := []domain.TopicCount{}
	for _, repo := range repos {
		for _, topic := range repo.Topics {
			if topic == "" {
				continue
			}
			if i, ok := index[topic]; ok {
				counts[i].Count++
				continue
			}
			index[topic] = len(counts)
			counts = append(counts, domain.TopicCount{Topic: topic, Count: 1})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// ActivityScore weights open issues over forks over stars so repositories
// that are currently churning rank above ones that are merely popular.
func ActivityScore(repo domain.Repository) float64 {
	return float64(repo.OpenIssuesCount)*1 + float64(repo.ForksCount)*0.5 + float64(repo.StargazersCount)*0.2
}

// MostStarred returns the topN repositories by star count.
func MostStarred(repos []domain.Repository, topN int) []domain.RankedRepo {
	return rank(repos, topN, func(r domain.Repository) float64 {
		return float64(r.StargazersCount)
	})
}

// MostActive returns the topN repositories by ActivityScore.
func MostActive(repos []domain.Repository, topN int) []domain.RankedRepo {
	return rank(repos, topN, ActivityScore)
}

func rank(repos []domain.Repository, topN int, score func(domain.Repository) float64) []domain.RankedRepo {
	ranked := make([]domain.RankedRepo, 0, len(repos))
	for _, repo := range repos {
		ranked = append(ranked, domain.RankedRepo{Repository: repo, Score: score(repo)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if topN < 0 {
		topN = 0
	}
	if topN < len(ranked) {
		ranked = ranked[:topN]
	}
	return ranked
}
