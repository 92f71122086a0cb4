package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newskeep/newskeep/internal/config"
	"github.com/newskeep/newskeep/internal/retention"
	"github.com/newskeep/newskeep/internal/store"
)

var (
	cleanupUser string
	cleanupFeed string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run article retention cleanup now",
	Long: `Runs a manual cleanup. With no flags, cleans up every user with feeds.
--user restricts to one user's feeds; --user plus --feed to one feed.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupUser, "user", "", "user id to clean up")
	cleanupCmd.Flags().StringVar(&cleanupFeed, "feed", "", "feed id to clean up (requires --user)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if cleanupFeed != "" && cleanupUser == "" {
		return fmt.Errorf("--feed requires --user")
	}

	cfg := config.Default().FromEnv()
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.BulkCleanupDisabled = cfg.Cleanup.DisableFastPath

	eng := retention.New(db)
	eng.BatchSize = cfg.Cleanup.BatchSize
	eng.FailClosed = cfg.Cleanup.FailClosed

	ctx := context.Background()

	switch {
	case cleanupFeed != "":
		res := eng.CleanupFeed(ctx, cleanupUser, cleanupFeed, retention.TriggerManual)
		if res.Err != nil {
			return fmt.Errorf("cleanup feed %s: %w", cleanupFeed, res.Err)
		}
		fmt.Printf("feed %s: deleted %d articles in %s\n", cleanupFeed, res.ArticlesDeleted, res.Duration)

	case cleanupUser != "":
		res, err := eng.CleanupUser(ctx, cleanupUser, retention.TriggerManual)
		if err != nil {
			return err
		}
		fmt.Printf("user %s: deleted %d articles in %s\n", cleanupUser, res.ArticlesDeleted, res.Duration)

	default:
		res, err := eng.CleanupAll(ctx, retention.TriggerManual)
		if err != nil {
			return err
		}
		fmt.Printf("processed %d users, deleted %d articles in %s\n", res.UsersProcessed, res.TotalDeleted, res.Duration)
	}

	return nil
}
