package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newskeep/newskeep/internal/config"
	"github.com/newskeep/newskeep/internal/retention"
	"github.com/newskeep/newskeep/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo users, feeds, and articles",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()
	now := time.Now()

	users := []store.User{
		{Email: "ada@example.com"},
		{Email: "brin@example.com"},
	}
	for i := range users {
		if err := db.CreateUser(ctx, &users[i]); err != nil {
			return err
		}
	}

	feeds := []retention.Feed{
		{UserID: users[0].ID, Title: "Lobsters", URL: "https://lobste.rs/rss"},
		{UserID: users[0].ID, Title: "LWN", URL: "https://lwn.net/headlines/rss"},
		{UserID: users[1].ID, Title: "Hacker News", URL: "https://news.ycombinator.com/rss"},
	}
	for i := range feeds {
		if err := db.CreateFeed(ctx, &feeds[i]); err != nil {
			return err
		}
	}

	// 120 articles per feed, one per day going back; old enough that both
	// the capacity and age rules have something to do.
	created := 0
	for _, f := range feeds {
		for day := 0; day < 120; day++ {
			published := now.AddDate(0, 0, -day)
			a := retention.Article{
				FeedID:      f.ID,
				Title:       fmt.Sprintf("%s item %d", f.Title, day),
				URL:         fmt.Sprintf("%s/item/%d", f.URL, day),
				PublishedAt: &published,
			}
			if err := db.CreateArticle(ctx, &a); err != nil {
				return err
			}
			created++

			// Star a few old ones so protection has visible effect.
			if day%40 == 39 {
				if err := db.SetEngagement(ctx, f.UserID, a.ID, true, true); err != nil {
					return err
				}
			}
		}
	}

	fmt.Printf("seeded %d users, %d feeds, %d articles into %s\n", len(users), len(feeds), created, dbPath)
	return nil
}
