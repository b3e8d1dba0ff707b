package cmd

import (
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/trending"
)

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Outputs GitHub's trending repositories as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		since, _ := cmd.Flags().GetString("since")
		refresh, _ := cmd.Flags().GetBool("refresh")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		repos, updated, err := a.aggregator.GetTrending(cmd.Context(), language, since, refresh)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"language":     language,
			"since":        trending.NormalizeSince(since),
			"repositories": repos,
			"last_updated": lastUpdated(updated),
		})
	},
}

func init() {
	rootCmd.AddCommand(trendingCmd)
	trendingCmd.Flags().StringP("language", "l", "", "Restrict to a programming language, e.g. go")
	trendingCmd.Flags().String("since", trending.SinceDaily, "Time window: daily, weekly or monthly")
	trendingCmd.Flags().Bool("refresh", false, "Bypass the cache and refetch")
}
