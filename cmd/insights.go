package cmd

import (
	"github.com/spf13/cobra"
)

var insightsCmd = &cobra.Command{
	Use:   "insights <user>",
	Short: "Builds insights for a GitHub user and outputs them as JSON",
	Long: `Fetches the profile, repositories, languages, events and contribution
calendar of a GitHub user through the cache and prints the assembled snapshot
together with the time of its most recent successful fetch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		snapshot, updated, err := a.aggregator.GetInsights(cmd.Context(), args[0], refresh)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"snapshot":     snapshot,
			"last_updated": lastUpdated(updated),
		})
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <user>",
	Short: "Drops the cached profile, repositories, events and contributions of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.aggregator.InvalidateUser(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(invalidateCmd)
	insightsCmd.Flags().Bool("refresh", false, "Bypass the cache and refetch everything")
}
