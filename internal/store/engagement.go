package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SetEngagement upserts a user's read/starred flags for an article.
func (db *DB) SetEngagement(ctx context.Context, userID, articleID string, read, starred bool) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO engagement (user_id, article_id, is_read, is_starred, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, article_id) DO UPDATE SET
			is_read = excluded.is_read,
			is_starred = excluded.is_starred,
			updated_at = excluded.updated_at
	`, userID, articleID, boolInt(read), boolInt(starred), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set engagement: %w", err)
	}
	return nil
}

// AddComment attaches a comment to an article.
func (db *DB) AddComment(ctx context.Context, articleID, userID, body string) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO comments (id, article_id, user_id, body, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), articleID, userID, body, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ProtectedArticleIDs returns articles read or starred by ANY user, not
// just the one invoking cleanup: one user's run must never destroy state
// another user depends on. The userID argument identifies the caller for
// parity with the settings API and does not narrow the query. An empty
// feedID means all feeds.
func (db *DB) ProtectedArticleIDs(ctx context.Context, userID, feedID string) ([]string, error) {
	query := `
		SELECT DISTINCT e.article_id
		FROM engagement e
		JOIN articles a ON a.id = e.article_id
		WHERE (e.is_read = 1 OR e.is_starred = 1)
	`
	var args []any
	if feedID != "" {
		query += " AND a.feed_id = ?"
		args = append(args, feedID)
	}

	return db.queryIDs(ctx, "protected article ids", query, args...)
}

// CommentedArticleIDs returns articles with at least one comment. An
// empty feedID means all feeds.
func (db *DB) CommentedArticleIDs(ctx context.Context, feedID string) ([]string, error) {
	query := `
		SELECT DISTINCT c.article_id
		FROM comments c
		JOIN articles a ON a.id = c.article_id
	`
	var args []any
	if feedID != "" {
		query += " WHERE a.feed_id = ?"
		args = append(args, feedID)
	}

	return db.queryIDs(ctx, "commented article ids", query, args...)
}

func (db *DB) queryIDs(ctx context.Context, what, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", what, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
