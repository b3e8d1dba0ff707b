package trending

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/gateway"
)

const trendingPage = `<!DOCTYPE html>
<html><body>
<div class="Box">
  <article class="Box-row">
    <h2 class="h3 lh-condensed">
      <a href="/golang/go">
        <span class="text-normal">golang /</span> go
      </a>
    </h2>
    <p class="col-9 color-fg-muted my-1 pr-4">
      The Go programming language
    </p>
    <div class="f6 color-fg-muted mt-2">
      <span class="d-inline-block ml-0 mr-3">
        <span itemprop="programmingLanguage">Go</span>
      </span>
      <a class="Link Link--muted d-inline-block mr-3" href="/golang/go/stargazers">
        <svg></svg> 123,456
      </a>
      <a class="Link Link--muted d-inline-block mr-3" href="/golang/go/forks">
        <svg></svg> 17,890
      </a>
      <span class="d-inline-block float-sm-right">
        <svg></svg> 1,234 stars today
      </span>
    </div>
  </article>
  <article class="Box-row">
    <h2 class="h3 lh-condensed"><a href="/someone/bare">someone / bare</a></h2>
  </article>
  <article class="Box-row">
    <h2 class="h3 lh-condensed"><a href="/">broken</a></h2>
  </article>
</div>
</body></html>`

func TestParse(t *testing.T) {
	repos, err := Parse(strings.NewReader(trendingPage), "")

	require.NoError(t, err)
	assert.Equal(t, []domain.TrendingRepo{
		{
			Owner:       "golang",
			Name:        "go",
			URL:         "https://github.com/golang/go",
			Description: "The Go programming language",
			Language:    "Go",
			Stars:       123456,
			Forks:       17890,
			StarsPeriod: 1234,
		},
		{
			Owner: "someone",
			Name:  "bare",
			URL:   "https://github.com/someone/bare",
		},
	}, repos)
}

func TestParse_ResolvesAgainstBaseURL(t *testing.T) {
	repos, err := Parse(strings.NewReader(trendingPage), "https://github.example.com/")

	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "https://github.example.com/golang/go", repos[0].URL)
	assert.Equal(t, "https://github.example.com/someone/bare", repos[1].URL)
}

func TestParse_UnrecognizedMarkup(t *testing.T) {
	repos, err := Parse(strings.NewReader(`<html><body><div class="new-layout">nothing here</div></body></html>`), DefaultBaseURL)

	require.NoError(t, err)
	assert.NotNil(t, repos)
	assert.Empty(t, repos)
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, 1234, parseCount(" 1,234 stars this week"))
	assert.Equal(t, 7, parseCount("7"))
	assert.Equal(t, 0, parseCount(""))
	assert.Equal(t, 0, parseCount("n/a"))
}

func TestScraper_Fetch(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	testCases := []struct {
		name         string
		language     string
		since        string
		status       int
		expectedPath string
		expectedQS   string
		expectKind   string
	}{
		{name: "all languages, default range", since: "", status: http.StatusOK, expectedPath: "/trending", expectedQS: "since=daily"},
		{name: "language and weekly range", language: "Go", since: "weekly", status: http.StatusOK, expectedPath: "/trending/go", expectedQS: "since=weekly"},
		{name: "unknown range falls back to daily", since: "yearly", status: http.StatusOK, expectedPath: "/trending", expectedQS: "since=daily"},
		{name: "throttled", status: http.StatusTooManyRequests, expectedPath: "/trending", expectedQS: "since=daily", expectKind: gateway.KindRateLimited},
		{name: "server error", status: http.StatusBadGateway, expectedPath: "/trending", expectedQS: "since=daily", expectKind: gateway.KindUpstream},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.expectedPath, r.URL.Path)
				assert.Equal(t, tc.expectedQS, r.URL.RawQuery)
				w.WriteHeader(tc.status)
				fmt.Fprint(w, trendingPage)
			}))
			defer server.Close()

			scraper := NewScraper(server.Client(), server.URL, logger)
			repos, err := scraper.Fetch(context.Background(), tc.language, tc.since)

			if tc.expectKind != "" {
				require.Error(t, err)
				assert.Equal(t, tc.expectKind, gateway.KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Len(t, repos, 2)
			assert.Equal(t, server.URL+"/golang/go", repos[0].URL)
		})
	}
}

func TestScraper_FetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := NewScraper(nil, server.URL, logger).Fetch(context.Background(), "", "")

	assert.Equal(t, gateway.KindTransport, gateway.KindOf(err))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "trending:go:weekly", CacheKey("Go", "weekly"))
	assert.Equal(t, "trending::daily", CacheKey("", "bogus"))
}
