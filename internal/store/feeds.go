package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newskeep/newskeep/internal/retention"
)

// CreateFeed inserts a feed, generating an id if none is set.
func (db *DB) CreateFeed(ctx context.Context, f *retention.Feed) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO feeds (id, user_id, title, url, created_at) VALUES (?, ?, ?, ?, ?)",
		f.ID, f.UserID, f.Title, f.URL, f.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}
	return nil
}

// ListFeeds returns the user's feeds in subscription order.
func (db *DB) ListFeeds(ctx context.Context, userID string) ([]retention.Feed, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, title, url, created_at
		FROM feeds WHERE user_id = ? ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []retention.Feed
	for rows.Next() {
		var f retention.Feed
		var createdAt int64
		if err := rows.Scan(&f.ID, &f.UserID, &f.Title, &f.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		f.CreatedAt = time.UnixMilli(createdAt)
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}
