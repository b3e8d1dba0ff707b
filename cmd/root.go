// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/config"
)

var (
	cfgFile string
	v       = config.New()
	cfg     *config.Config
	logger  = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "github-insights",
	Short: "A CLI tool to build cached insights about GitHub accounts.",
	Long: `github-insights fetches a GitHub user's profile, repositories, languages,
events and contribution calendar, caches every response with its own TTL and
derives language, activity and topic insights from the result.

Set GITHUB_TOKEN to raise the API rate limit and enable contribution data.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogger(logger, verbose)

		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		logger.WithFields(logrus.Fields{
			"cache_backend": cfg.Cache.Backend,
			"authenticated": cfg.GitHub.Token != "",
		}).Debug("configuration loaded")
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setupLogger discards logs unless verbose is set.
func setupLogger(l *logrus.Logger, verbose bool) {
	l.SetOutput(io.Discard)
	if verbose {
		l.SetOutput(os.Stderr)
		l.SetLevel(logrus.DebugLevel)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("cache-backend", "", "Cache backend: memory or redis")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis URL for the redis cache backend")

	_ = v.BindPFlag("cache.backend", rootCmd.PersistentFlags().Lookup("cache-backend"))
	_ = v.BindPFlag("cache.redis_url", rootCmd.PersistentFlags().Lookup("redis-url"))
}
