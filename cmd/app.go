package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/github-insights/internal/cache"
	"github.com/naka-gawa/github-insights/internal/config"
	"github.com/naka-gawa/github-insights/internal/gateway"
	"github.com/naka-gawa/github-insights/internal/metrics"
	"github.com/naka-gawa/github-insights/internal/trending"
	"github.com/naka-gawa/github-insights/internal/usecase"
)

// app holds the wired dependencies shared by every command.
type app struct {
	aggregator *usecase.Aggregator
	registry   *prometheus.Registry
	closeStore func() error
}

// newApp injects dependencies according to cfg.
func newApp(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	store, closeStore, err := newStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	transport := m.InstrumentRoundTripper(gateway.NewTransport(cfg.GitHub.Timeout))
	githubGateway, err := gateway.NewGitHubGateway(gateway.Options{
		Token:             cfg.GitHub.Token,
		BaseURL:           cfg.GitHub.BaseURL,
		GraphQLURL:        cfg.GitHub.GraphQLURL,
		Timeout:           cfg.GitHub.Timeout,
		MaxRateLimitSleep: cfg.GitHub.MaxRateLimitSleep,
		Transport:         transport,
	}, logger)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}

	scraper := trending.NewScraper(&http.Client{Transport: transport, Timeout: cfg.GitHub.Timeout}, cfg.Trending.BaseURL, logger)
	loader := cache.NewLoader(store, cache.WithRecorder(m), cache.WithLogger(logger))
	aggregator := usecase.NewAggregator(githubGateway, loader, scraper, usecase.Options{
		Pages:               cfg.Insights.Pages,
		PerPage:             cfg.Insights.PerPage,
		EventsPerPage:       cfg.Insights.EventsPerPage,
		LanguageConcurrency: cfg.Insights.LanguageConcurrency,
		PageConcurrency:     cfg.Insights.PageConcurrency,
		TopN:                cfg.Insights.TopN,
		TTL: usecase.TTLs{
			Profile:       cfg.TTL.Profile,
			Repos:         cfg.TTL.Repos,
			Languages:     cfg.TTL.Languages,
			Events:        cfg.TTL.Events,
			Repository:    cfg.TTL.Repository,
			Contributions: cfg.TTL.Contributions,
			Trending:      cfg.TTL.Trending,
		},
		OnBuild: m.ObserveBuild,
	}, logger)

	return &app{
		aggregator: aggregator,
		registry:   registry,
		closeStore: closeStore,
	}, nil
}

func (a *app) Close() error {
	return a.closeStore()
}

func newStore(ctx context.Context, c config.Cache) (cache.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.Backend {
	case config.BackendRedis:
		store, err := cache.NewRedisStore(ctx, c.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := cache.NewMemoryStore(c.MaxEntries)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create memory cache: %w", err)
		}
		return store, noop, nil
	}
}

// parseRepoArg splits "owner/name".
func parseRepoArg(arg string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("expected <owner>/<repo>, got %q", arg)
	}
	return owner, name, nil
}

// lastUpdated renders a freshness timestamp, or null when nothing was fetched.
func lastUpdated(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// printJSON writes v to w as pretty-printed JSON.
func printJSON(w io.Writer, v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}
