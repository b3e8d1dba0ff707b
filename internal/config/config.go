// Package config loads runtime settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. GITHUB_INSIGHTS_CACHE_BACKEND.
const EnvPrefix = "GITHUB_INSIGHTS"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type (
	GitHub struct {
		Token             string        `mapstructure:"token"`
		BaseURL           string        `mapstructure:"base_url"`
		GraphQLURL        string        `mapstructure:"graphql_url"`
		Timeout           time.Duration `mapstructure:"timeout"`
		MaxRateLimitSleep time.Duration `mapstructure:"max_rate_limit_sleep"`
	}

	Insights struct {
		Pages               int `mapstructure:"pages"`
		PerPage             int `mapstructure:"per_page"`
		EventsPerPage       int `mapstructure:"events_per_page"`
		LanguageConcurrency int `mapstructure:"language_concurrency"`
		PageConcurrency     int `mapstructure:"page_concurrency"`
		TopN                int `mapstructure:"top_n"`
	}

	Cache struct {
		Backend    string `mapstructure:"backend"`
		RedisURL   string `mapstructure:"redis_url"`
		MaxEntries int    `mapstructure:"max_entries"`
	}

	// TTL holds the lifetime of each cached resource.
	TTL struct {
		Profile       time.Duration `mapstructure:"profile"`
		Repos         time.Duration `mapstructure:"repos"`
		Languages     time.Duration `mapstructure:"languages"`
		Events        time.Duration `mapstructure:"events"`
		Repository    time.Duration `mapstructure:"repository"`
		Contributions time.Duration `mapstructure:"contributions"`
		Trending      time.Duration `mapstructure:"trending"`
	}

	Trending struct {
		BaseURL string `mapstructure:"base_url"`
	}

	Watch struct {
		Schedule    string   `mapstructure:"schedule"`
		Users       []string `mapstructure:"users"`
		MetricsAddr string   `mapstructure:"metrics_addr"`
	}
)

// Config is the full application configuration.
type Config struct {
	GitHub   GitHub   `mapstructure:"github"`
	Insights Insights `mapstructure:"insights"`
	Cache    Cache    `mapstructure:"cache"`
	TTL      TTL      `mapstructure:"ttl"`
	Trending Trending `mapstructure:"trending"`
	Watch    Watch    `mapstructure:"watch"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.graphql_url", "")
	v.SetDefault("github.timeout", 15*time.Second)
	v.SetDefault("github.max_rate_limit_sleep", time.Minute)

	v.SetDefault("insights.pages", 3)
	v.SetDefault("insights.per_page", 100)
	v.SetDefault("insights.events_per_page", 100)
	v.SetDefault("insights.language_concurrency", 5)
	v.SetDefault("insights.page_concurrency", 2)
	v.SetDefault("insights.top_n", 5)

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.max_entries", 10000)

	v.SetDefault("ttl.profile", time.Hour)
	v.SetDefault("ttl.repos", 30*time.Minute)
	v.SetDefault("ttl.languages", 30*time.Minute)
	v.SetDefault("ttl.events", 30*time.Minute)
	v.SetDefault("ttl.repository", 30*time.Minute)
	v.SetDefault("ttl.contributions", 30*time.Minute)
	v.SetDefault("ttl.trending", 30*time.Minute)

	v.SetDefault("trending.base_url", "https://github.com")

	v.SetDefault("watch.schedule", "@every 30m")
	v.SetDefault("watch.users", []string{})
	v.SetDefault("watch.metrics_addr", ":9090")
}

// New returns a viper instance with defaults and environment bindings but no
// file. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The conventional variable wins over GITHUB_INSIGHTS_GITHUB_TOKEN.
	_ = v.BindEnv("github.token", "GITHUB_TOKEN", EnvPrefix+"_GITHUB_TOKEN")
	return v
}

// Load reads path, if set, on top of v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	for _, limit := range []struct {
		key   string
		value int
	}{
		{"insights.pages", c.Insights.Pages},
		{"insights.per_page", c.Insights.PerPage},
		{"insights.events_per_page", c.Insights.EventsPerPage},
		{"insights.language_concurrency", c.Insights.LanguageConcurrency},
		{"insights.page_concurrency", c.Insights.PageConcurrency},
		{"insights.top_n", c.Insights.TopN},
		{"cache.max_entries", c.Cache.MaxEntries},
	} {
		if limit.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", limit.key, limit.value))
		}
	}
	if c.Insights.PerPage > 100 {
		errs = append(errs, fmt.Errorf("insights.per_page must be at most 100, got %d", c.Insights.PerPage))
	}
	if c.GitHub.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("github.timeout must be positive, got %s", c.GitHub.Timeout))
	}
	if c.GitHub.MaxRateLimitSleep < 0 {
		errs = append(errs, fmt.Errorf("github.max_rate_limit_sleep must not be negative, got %s", c.GitHub.MaxRateLimitSleep))
	}

	for _, ttl := range []struct {
		key   string
		value time.Duration
	}{
		{"ttl.profile", c.TTL.Profile},
		{"ttl.repos", c.TTL.Repos},
		{"ttl.languages", c.TTL.Languages},
		{"ttl.events", c.TTL.Events},
		{"ttl.repository", c.TTL.Repository},
		{"ttl.contributions", c.TTL.Contributions},
		{"ttl.trending", c.TTL.Trending},
	} {
		if ttl.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", ttl.key, ttl.value))
		}
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}
	return errors.Join(errs...)
}
