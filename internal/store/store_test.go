package store

import (
	"context"
	"testing"
	"time"

	"github.com/newskeep/newskeep/internal/retention"
)

// fixture is one user with one feed, used by most store tests.
type fixture struct {
	db   *DB
	user User
	feed retention.Feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()

	u := User{Email: "reader@example.com"}
	if err := db.CreateUser(ctx, &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	f := retention.Feed{UserID: u.ID, Title: "Test Feed", URL: "https://example.com/rss"}
	if err := db.CreateFeed(ctx, &f); err != nil {
		t.Fatalf("CreateFeed: %v", err)
	}
	return &fixture{db: db, user: u, feed: f}
}

// addArticle inserts an article published the given number of days ago.
// days < 0 means no publication date (ingestion fallback).
func (fx *fixture) addArticle(t *testing.T, id string, days int) retention.Article {
	t.Helper()
	a := retention.Article{
		ID:     id,
		FeedID: fx.feed.ID,
		Title:  id,
	}
	if days >= 0 {
		pub := time.Now().AddDate(0, 0, -days)
		a.PublishedAt = &pub
		a.IngestedAt = pub
	}
	if err := fx.db.CreateArticle(context.Background(), &a); err != nil {
		t.Fatalf("CreateArticle %s: %v", id, err)
	}
	return a
}

func articleIDs(articles []retention.Article) []string {
	var out []string
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
