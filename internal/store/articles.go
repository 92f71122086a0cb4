package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newskeep/newskeep/internal/retention"
)

// CreateArticle inserts an article, generating an id if none is set.
// IngestedAt defaults to now; PublishedAt may stay nil for feed items
// that carried no date.
func (db *DB) CreateArticle(ctx context.Context, a *retention.Article) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.IngestedAt.IsZero() {
		a.IngestedAt = time.Now()
	}

	var published any
	if a.PublishedAt != nil {
		published = a.PublishedAt.UnixMilli()
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO articles (id, feed_id, title, url, published_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.FeedID, a.Title, a.URL, published, a.IngestedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// ListArticles returns all of a feed's articles ordered by effective date
// (publication time, falling back to ingestion time) descending.
func (db *DB) ListArticles(ctx context.Context, feedID string) ([]retention.Article, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, feed_id, title, url, published_at, created_at
		FROM articles
		WHERE feed_id = ?
		ORDER BY COALESCE(published_at, created_at) DESC, id
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []retention.Article
	for rows.Next() {
		var a retention.Article
		var url *string
		var published *int64
		var created int64
		if err := rows.Scan(&a.ID, &a.FeedID, &a.Title, &url, &published, &created); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if url != nil {
			a.URL = *url
		}
		if published != nil {
			t := time.UnixMilli(*published)
			a.PublishedAt = &t
		}
		a.IngestedAt = time.UnixMilli(created)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CountArticles returns the number of articles in a feed.
func (db *DB) CountArticles(ctx context.Context, feedID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM articles WHERE feed_id = ?", feedID,
	).Scan(&n)
	return n, err
}

// DeleteArticles removes the given articles in one statement and returns
// the affected count. Ids that no longer exist are skipped, so the
// operation is idempotent. Engagement rows and comments cascade.
func (db *DB) DeleteArticles(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := db.ExecContext(ctx,
		"DELETE FROM articles WHERE id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete articles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
