// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/github-insights/internal/analytics"
	"github.com/naka-gawa/github-insights/internal/cache"
	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/gateway"
	"github.com/naka-gawa/github-insights/internal/pagination"
	"github.com/naka-gawa/github-insights/internal/pool"
	"github.com/naka-gawa/github-insights/internal/trending"
)

// ErrInvalidArgument is returned for empty or malformed identifiers.
var ErrInvalidArgument = errors.New("invalid argument")

// TrendingSource fetches the trending repositories page.
type TrendingSource interface {
	Fetch(ctx context.Context, language, since string) ([]domain.TrendingRepo, error)
}

// TTLs holds the cache lifetime of each resource.
type TTLs struct {
	Profile       time.Duration
	Repos         time.Duration
	Languages     time.Duration
	Events        time.Duration
	Repository    time.Duration
	Contributions time.Duration
	Trending      time.Duration
}

// Options tunes the aggregator. Zero fields take the values of DefaultOptions.
type Options struct {
	Pages               int
	PerPage             int
	EventsPerPage       int
	LanguageConcurrency int
	PageConcurrency     int
	TopN                int
	TTL                 TTLs
	// OnBuild, if set, is called with the time taken by every GetInsights call
	// that produced a snapshot.
	OnBuild func(time.Duration)
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Pages:               3,
		PerPage:             100,
		EventsPerPage:       100,
		LanguageConcurrency: 5,
		PageConcurrency:     2,
		TopN:                5,
		TTL: TTLs{
			Profile:       time.Hour,
			Repos:         30 * time.Minute,
			Languages:     30 * time.Minute,
			Events:        30 * time.Minute,
			Repository:    30 * time.Minute,
			Contributions: 30 * time.Minute,
			Trending:      30 * time.Minute,
		},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	orInt := func(v, def int) int {
		if v > 0 {
			return v
		}
		return def
	}
	orDur := func(v, def time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return def
	}
	o.Pages = orInt(o.Pages, d.Pages)
	o.PerPage = orInt(o.PerPage, d.PerPage)
	o.EventsPerPage = orInt(o.EventsPerPage, d.EventsPerPage)
	o.LanguageConcurrency = orInt(o.LanguageConcurrency, d.LanguageConcurrency)
	o.PageConcurrency = orInt(o.PageConcurrency, d.PageConcurrency)
	o.TopN = orInt(o.TopN, d.TopN)
	o.TTL.Profile = orDur(o.TTL.Profile, d.TTL.Profile)
	o.TTL.Repos = orDur(o.TTL.Repos, d.TTL.Repos)
	o.TTL.Languages = orDur(o.TTL.Languages, d.TTL.Languages)
	o.TTL.Events = orDur(o.TTL.Events, d.TTL.Events)
	o.TTL.Repository = orDur(o.TTL.Repository, d.TTL.Repository)
	o.TTL.Contributions = orDur(o.TTL.Contributions, d.TTL.Contributions)
	o.TTL.Trending = orDur(o.TTL.Trending, d.TTL.Trending)
	return o
}

// Aggregator is the use case for building GitHub insights.
// It orchestrates cached fetching and hands the results to analytics.
type Aggregator struct {
	fetcher  gateway.Fetcher
	loader   *cache.Loader
	trending TrendingSource
	opts     Options
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewAggregator creates a new Aggregator instance. trending may be nil, in
// which case GetTrending always fails.
func NewAggregator(fetcher gateway.Fetcher, loader *cache.Loader, trending TrendingSource, opts Options, logger logrus.FieldLogger) *Aggregator {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Aggregator{
		fetcher:  fetcher,
		loader:   loader,
		trending: trending,
		opts:     opts.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Cache keys. Logins and repository names are case-insensitive on GitHub.
func userKey(username string) string          { return "user:" + strings.ToLower(username) }
func contributionsKey(username string) string { return "contributions:" + strings.ToLower(username) }
func languagesKey(fullName string) string     { return "languages:" + strings.ToLower(fullName) }
func repositoryKey(fullName string) string    { return "repo:" + strings.ToLower(fullName) }

// List keys carry the page size, since a page number means different items
// under a different size.
func reposPrefix(username string, perPage int) string {
	return fmt.Sprintf("repos:%s:%d", strings.ToLower(username), perPage)
}

func eventsKey(username string, perPage int) string {
	return fmt.Sprintf("events:%s:%d", strings.ToLower(username), perPage)
}

// GetInsights fetches everything known about username and assembles a snapshot.
//
// Only a failure to fetch the profile is returned as an error; every other
// failed fetch leaves its part of the snapshot empty. lastUpdated is the most
// recent fetch time among the fetches that succeeded.
func (a *Aggregator) GetInsights(ctx context.Context, username string, force bool) (*domain.InsightsSnapshot, time.Time, error) {
	if strings.TrimSpace(username) == "" {
		return nil, time.Time{}, fmt.Errorf("%w: username is required", ErrInvalidArgument)
	}
	started := a.now()
	log := a.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"user":       username,
		"force":      force,
	})
	log.Info("building insights")

	var (
		profile         cache.Result[domain.UserProfile]
		repos           []domain.Repository
		reposUpdated    time.Time
		languagesByRepo map[string]map[string]int
		languageResults []cache.Result[map[string]int]
		events          cache.Result[[]domain.Event]
		contributions   cache.Result[[]domain.ContributionDay]
	)

	// Only the profile goroutine can fail the group; the others absorb their errors.
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		profile = cache.Fetch(egCtx, a.loader, userKey(username), func(ctx context.Context) (domain.UserProfile, error) {
			return a.fetcher.FetchUser(ctx, username)
		}, a.opts.TTL.Profile, force)
		if !profile.OK {
			return profileError(username, profile.Err)
		}
		return nil
	})

	eg.Go(func() error {
		var pages []domain.Repository
		pages, reposUpdated = pagination.FetchAllPages(egCtx, a.loader, reposPrefix(username, a.opts.PerPage),
			func(ctx context.Context, page int) ([]domain.Repository, error) {
				return a.fetcher.FetchRepositories(ctx, username, page, a.opts.PerPage)
			}, pagination.Range(a.opts.Pages), a.opts.TTL.Repos, force, a.opts.PageConcurrency)
		repos = dedupe(pages)
		languagesByRepo, languageResults = a.fetchLanguages(egCtx, repos, force)
		return nil
	})

	eg.Go(func() error {
		events = cache.Fetch(egCtx, a.loader, eventsKey(username, a.opts.EventsPerPage), func(ctx context.Context) ([]domain.Event, error) {
			return a.fetcher.FetchEvents(ctx, username, a.opts.EventsPerPage)
		}, a.opts.TTL.Events, force)
		return nil
	})

	eg.Go(func() error {
		contributions = cache.Fetch(egCtx, a.loader, contributionsKey(username), func(ctx context.Context) ([]domain.ContributionDay, error) {
			return a.fetcher.FetchContributions(ctx, username)
		}, a.opts.TTL.Contributions, force)
		return nil
	})

	if err := eg.Wait(); err != nil {
		log.WithError(err).Warn("profile fetch failed")
		return nil, time.Time{}, err
	}

	lastUpdated := latest(profile.FetchedAt, reposUpdated)
	if events.OK {
		lastUpdated = latest(lastUpdated, events.FetchedAt)
	} else {
		log.WithError(events.Err).Warn("events unavailable")
	}
	if contributions.OK {
		lastUpdated = latest(lastUpdated, contributions.FetchedAt)
	} else {
		log.WithError(contributions.Err).Debug("contributions unavailable")
	}
	for _, res := range languageResults {
		if res.OK {
			lastUpdated = latest(lastUpdated, res.FetchedAt)
		}
	}

	languages := analytics.AggregateLanguages(repos, languagesByRepo)
	topics := analytics.TopicsFrequency(repos)
	weekly := analytics.WeeklyActivity(events.Value)
	snapshot := &domain.InsightsSnapshot{
		User:            profile.Value,
		RepoCount:       len(repos),
		Languages:       languages,
		Topics:          topics,
		TopStarred:      analytics.MostStarred(repos, a.opts.TopN),
		TopActive:       analytics.MostActive(repos, a.opts.TopN),
		CommitTimes:     analytics.CommitTimeDistribution(events.Value),
		WeeklyActivity:  weekly,
		ActivitySummary: analytics.SummarizeActivity(weekly),
		Streaks:         analytics.ContributionStreaks(contributions.Value),
		InferredDomain:  analytics.InferDomain(languages.Percentages, topics),
		GeneratedAt:     a.now(),
	}

	elapsed := a.now().Sub(started)
	if a.opts.OnBuild != nil {
		a.opts.OnBuild(elapsed)
	}
	log.WithFields(logrus.Fields{
		"repos":     len(repos),
		"languages": len(languagesByRepo),
		"events":    len(events.Value),
		"elapsed":   elapsed,
	}).Info("insights built")
	return snapshot, lastUpdated, nil
}

// fetchLanguages fetches the language map of every repo, bounded by the
// configured concurrency. Failed repos are absent from the returned map.
func (a *Aggregator) fetchLanguages(ctx context.Context, repos []domain.Repository, force bool) (map[string]map[string]int, []cache.Result[map[string]int]) {
	tasks := make([]pool.Task[cache.Result[map[string]int]], len(repos))
	for i, repo := range repos {
		tasks[i] = func(ctx context.Context) cache.Result[map[string]int] {
			return cache.Fetch(ctx, a.loader, languagesKey(repo.FullName()), func(ctx context.Context) (map[string]int, error) {
				return a.fetcher.FetchLanguages(ctx, repo.Owner, repo.Name)
			}, a.opts.TTL.Languages, force)
		}
	}

	results := pool.RunBounded(ctx, tasks, a.opts.LanguageConcurrency)
	byRepo := make(map[string]map[string]int, len(results))
	for i, res := range results {
		if res.OK {
			byRepo[repos[i].FullName()] = res.Value
		}
	}
	return byRepo, results
}

// GetRepositoryLanguages returns the language breakdown of a single repository.
func (a *Aggregator) GetRepositoryLanguages(ctx context.Context, owner, name string, force bool) (domain.LanguageAggregate, time.Time, error) {
	if err := validateRepo(owner, name); err != nil {
		return domain.LanguageAggregate{}, time.Time{}, err
	}
	fullName := owner + "/" + name
	res := cache.Fetch(ctx, a.loader, languagesKey(fullName), func(ctx context.Context) (map[string]int, error) {
		return a.fetcher.FetchLanguages(ctx, owner, name)
	}, a.opts.TTL.Languages, force)
	if !res.OK {
		return domain.LanguageAggregate{}, time.Time{}, fmt.Errorf("failed to fetch languages of %s: %w", fullName, res.Err)
	}
	return analytics.LanguagesOf(res.Value), res.FetchedAt, nil
}

// GetRepository returns the stats of a single repository.
func (a *Aggregator) GetRepository(ctx context.Context, owner, name string, force bool) (domain.Repository, time.Time, error) {
	if err := validateRepo(owner, name); err != nil {
		return domain.Repository{}, time.Time{}, err
	}
	fullName := owner + "/" + name
	res := cache.Fetch(ctx, a.loader, repositoryKey(fullName), func(ctx context.Context) (domain.Repository, error) {
		return a.fetcher.FetchRepository(ctx, owner, name)
	}, a.opts.TTL.Repository, force)
	if !res.OK {
		return domain.Repository{}, time.Time{}, fmt.Errorf("failed to fetch repository %s: %w", fullName, res.Err)
	}
	return res.Value, res.FetchedAt, nil
}

// GetTrending returns the trending repositories for language ("" for all)
// over since (daily, weekly or monthly; anything else means daily).
func (a *Aggregator) GetTrending(ctx context.Context, language, since string, force bool) ([]domain.TrendingRepo, time.Time, error) {
	if a.trending == nil {
		return nil, time.Time{}, errors.New("trending source is not configured")
	}
	since = trending.NormalizeSince(since)
	res := cache.Fetch(ctx, a.loader, trending.CacheKey(language, since), func(ctx context.Context) ([]domain.TrendingRepo, error) {
		return a.trending.Fetch(ctx, language, since)
	}, a.opts.TTL.Trending, force)
	if !res.OK {
		return nil, time.Time{}, fmt.Errorf("failed to fetch trending repositories: %w", res.Err)
	}
	return res.Value, res.FetchedAt, nil
}

// InvalidateUser drops the cached profile, repository pages, events and
// contributions of username.
func (a *Aggregator) InvalidateUser(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidArgument)
	}
	keys := []string{userKey(username), eventsKey(username, a.opts.EventsPerPage), contributionsKey(username)}
	for _, page := range pagination.Range(a.opts.Pages) {
		keys = append(keys, pagination.PageKey(reposPrefix(username, a.opts.PerPage), page))
	}
	if err := a.loader.Invalidate(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate cache for %s: %w", username, err)
	}
	a.logger.WithField("user", username).Info("cache invalidated")
	return nil
}

func profileError(username string, err error) error {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return fmt.Errorf("user %q not found: %w", username, err)
	case errors.Is(err, gateway.ErrRateLimited):
		return fmt.Errorf("GitHub API rate limit exceeded while fetching %q; configure GITHUB_TOKEN or retry later: %w", username, err)
	default:
		return fmt.Errorf("failed to fetch user %q: %w", username, err)
	}
}

func validateRepo(owner, name string) error {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: owner and repository name are required", ErrInvalidArgument)
	}
	return nil
}

// dedupe drops repositories that appear on more than one page, keeping the
// first occurrence. Pages can overlap when a repository is pushed to between
// two page fetches.
func dedupe(repos []domain.Repository) []domain.Repository {
	seen := make(map[string]bool, len(repos))
	out := make([]domain.Repository, 0, len(repos))
	for _, repo := range repos {
		key := strings.ToLower(repo.FullName())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, repo)
	}
	return out
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
