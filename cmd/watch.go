package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/usecase"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keeps the cache warm for configured users and serves Prometheus metrics",
	Long: `Refreshes insights for every user in watch.users on the watch.schedule cron
schedule and serves /metrics on watch.metrics_addr until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Watch.Users) == 0 {
			return errors.New("watch.users is empty; nothing to watch")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		c := cron.New()
		if _, err := c.AddFunc(cfg.Watch.Schedule, func() {
			warm(ctx, a.aggregator, cfg.Watch.Users, logger)
		}); err != nil {
			return fmt.Errorf("failed to schedule cache warming: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:              cfg.Watch.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		serverErr := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		warm(ctx, a.aggregator, cfg.Watch.Users, logger)
		c.Start()
		logger.WithFields(logrus.Fields{
			"schedule":     cfg.Watch.Schedule,
			"users":        cfg.Watch.Users,
			"metrics_addr": cfg.Watch.MetricsAddr,
		}).Info("watch started")

		select {
		case <-ctx.Done():
		case err = <-serverErr:
			err = fmt.Errorf("metrics server failed: %w", err)
		}
		logger.Info("shutting down")

		<-c.Stop().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.WithError(shutdownErr).Warn("metrics server shutdown failed")
		}
		return err
	},
}

// warm force-refreshes every user in turn. Failures are logged; one user's
// failure does not stop the others.
func warm(ctx context.Context, aggregator *usecase.Aggregator, users []string, logger logrus.FieldLogger) {
	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		_, updated, err := aggregator.GetInsights(ctx, user, true)
		if err != nil {
			logger.WithError(err).WithField("user", user).Warn("cache warming failed")
			continue
		}
		logger.WithFields(logrus.Fields{
			"user":         user,
			"last_updated": updated,
		}).Info("cache warmed")
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("schedule", "", "Cron schedule, e.g. \"@every 30m\" (overrides watch.schedule)")
	watchCmd.Flags().StringSlice("users", nil, "Users to keep warm (overrides watch.users)")
	watchCmd.Flags().String("metrics-addr", "", "Listen address for /metrics (overrides watch.metrics_addr)")

	_ = v.BindPFlag("watch.schedule", watchCmd.Flags().Lookup("schedule"))
	_ = v.BindPFlag("watch.users", watchCmd.Flags().Lookup("users"))
	_ = v.BindPFlag("watch.metrics_addr", watchCmd.Flags().Lookup("metrics-addr"))
}
