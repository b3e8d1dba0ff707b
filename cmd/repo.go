package cmd

import (
	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages <owner>/<repo>",
	Short: "Outputs the language breakdown of a repository as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, name, err := parseRepoArg(args[0])
		if err != nil {
			return err
		}
		refresh, _ := cmd.Flags().GetBool("refresh")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		languages, updated, err := a.aggregator.GetRepositoryLanguages(cmd.Context(), owner, name, refresh)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"languages":    languages,
			"last_updated": lastUpdated(updated),
		})
	},
}

var repoCmd = &cobra.Command{
	Use:   "repo <owner>/<repo>",
	Short: "Outputs the stats of a repository as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, name, err := parseRepoArg(args[0])
		if err != nil {
			return err
		}
		refresh, _ := cmd.Flags().GetBool("refresh")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		repository, updated, err := a.aggregator.GetRepository(cmd.Context(), owner, name, refresh)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"repository":   repository,
			"last_updated": lastUpdated(updated),
		})
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(repoCmd)
	languagesCmd.Flags().Bool("refresh", false, "Bypass the cache and refetch")
	repoCmd.Flags().Bool("refresh", false, "Bypass the cache and refetch")
}
