package analytics

import (
	"strings"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// DefaultDomain is reported when no signal matches.
const DefaultDomain = "General Software Development"

type domainSignal struct {
	name      string
	languages []string
	topics    []string
}

// domainSignals is ordered; earlier entries win ties.
var domainSignals = []domainSignal{
	{
		name:      "Web Development",
		languages: []string{"JavaScript", "TypeScript", "HTML", "CSS", "SCSS", "Vue", "Svelte", "PHP"},
		topics:    []string{"react", "nextjs", "vue", "angular", "frontend", "web", "nodejs", "express", "tailwindcss"},
	},
	{
		name:      "Data Science & Machine Learning",
		languages: []string{"Python", "Jupyter Notebook", "R", "Julia"},
		topics:    []string{"machine-learning", "deep-learning", "data-science", "ai", "llm", "pytorch", "tensorflow", "nlp"},
	},
	{
		name:      "Mobile Development",
		languages: []string{"Kotlin", "Swift", "Dart", "Objective-C"},
		topics:    []string{"android", "ios", "flutter", "react-native", "mobile"},
	},
	{
		name:      "Systems Programming",
		languages: []string{"C", "C++", "Rust", "Go", "Zig", "Assembly"},
		topics:    []string{"kernel", "embedded", "compiler", "systems", "performance"},
	},
	{
		name:      "DevOps & Infrastructure",
		languages: []string{"Shell", "Dockerfile", "HCL", "Nix", "PowerShell"},
		topics:    []string{"devops", "kubernetes", "docker", "terraform", "ci", "ansible", "infrastructure"},
	},
	{
		name:      "Blockchain",
		languages: []string{"Solidity", "Move", "Cairo"},
		topics:    []string{"blockchain", "ethereum", "web3", "smart-contracts", "defi"},
	},
	{
		name:      "Game Development",
		languages: []string{"C#", "GDScript", "Lua", "ShaderLab"},
		topics:    []string{"game", "gamedev", "unity", "godot"},
	},
}

// topicWeight converts one matching topic into percentage points.
const topicWeight = 10

// InferDomain guesses a developer's focus from language shares and topics.
func InferDomain(languages []domain.LanguageShare, topics []domain.TopicCount) string {
	best, bestScore := DefaultDomain, 0.0
	for _, signal := range domainSignals {
		score := 0.0
		for _, share := range languages {
			if containsFold(signal.languages, share.Language) {
				score += share.Percent
			}
		}
		for _, topic := range topics {
			if containsFold(signal.topics, topic.Topic) {
				score += float64(topic.Count * topicWeight)
			}
		}
		if score > bestScore {
			best, bestScore = signal.name, score
		}
	}
	return best
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
