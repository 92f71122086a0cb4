package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "newskeep",
	Short: "Self-hosted news reader storage with article retention",
	Long:  "Newskeep stores feed subscriptions and articles, and prunes old articles per user policy. Single Go binary backed by SQLite.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(seedCmd)
}
