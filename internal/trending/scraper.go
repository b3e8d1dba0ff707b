// Package trending scrapes the GitHub trending page. The page is not an API,
// so parsing is lenient: anything it cannot read becomes an empty or zero field.
package trending

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/gateway"
)

// DefaultBaseURL is where the trending page lives.
const DefaultBaseURL = "https://github.com"

// Supported time ranges.
const (
	SinceDaily   = "daily"
	SinceWeekly  = "weekly"
	SinceMonthly = "monthly"
)

var digits = regexp.MustCompile(`[\d,]+`)

// Scraper fetches and parses trending repositories.
type Scraper struct {
	client  *http.Client
	baseURL string
	logger  logrus.FieldLogger
}

// NewScraper creates a Scraper. An empty baseURL means DefaultBaseURL and a nil
// client gets one with gateway.DefaultTimeout.
func NewScraper(client *http.Client, baseURL string, logger logrus.FieldLogger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: gateway.DefaultTimeout}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// NormalizeSince returns since if it is a supported range and SinceDaily otherwise.
func NormalizeSince(since string) string {
	switch since {
	case SinceDaily, SinceWeekly, SinceMonthly:
		return since
	}
	return SinceDaily
}

// Fetch downloads the trending page for language (empty for all languages) and since.
func (s *Scraper) Fetch(ctx context.Context, language, since string) ([]domain.TrendingRepo, error) {
	pageURL := s.baseURL + "/trending"
	if language != "" {
		pageURL += "/" + url.PathEscape(strings.ToLower(language))
	}
	pageURL += "?since=" + NormalizeSince(since)

	s.logger.WithField("url", pageURL).Debug("fetching trending page")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build trending request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, gateway.RequestError("fetch trending", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, gateway.StatusError("fetch trending", resp.StatusCode)
	}
	return Parse(resp.Body, s.baseURL)
}

// Parse extracts repository cards from a trending page. Repository URLs are
// resolved against baseURL, or DefaultBaseURL when it is empty.
func Parse(r io.Reader, baseURL string) ([]domain.TrendingRepo, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trending page: %w", err)
	}

	repos := []domain.TrendingRepo{}
	doc.Find("article.Box-row").Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Find("h2 a").First().Attr("href")
		parts := strings.Split(strings.Trim(href, "/"), "/")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return
		}
		owner, name := parts[0], parts[1]

		repos = append(repos, domain.TrendingRepo{
			Owner:       owner,
			Name:        name,
			URL:         baseURL + "/" + owner + "/" + name,
			Description: cleanText(card.Find("p").First().Text()),
			Language:    cleanText(card.Find(`[itemprop="programmingLanguage"]`).First().Text()),
			Stars:       parseCount(card.Find(`a[href$="/stargazers"]`).First().Text()),
			Forks:       parseCount(card.Find(`a[href$="/forks"]`).First().Text()),
			StarsPeriod: parseCount(card.Find("span.float-sm-right").First().Text()),
		})
	})
	return repos, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseCount reads the first number in s, ignoring thousands separators.
func parseCount(s string) int {
	match := digits.FindString(s)
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// CacheKey is the cache key for one trending listing.
func CacheKey(language, since string) string {
	return fmt.Sprintf("trending:%s:%s", strings.ToLower(language), NormalizeSince(since))
}
