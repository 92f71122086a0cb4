package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newskeep/newskeep/internal/retention"
)

// AppendCleanupLog persists one run log entry, generating an id and
// timestamp when unset. The table is append-only.
func (db *DB) AppendCleanupLog(ctx context.Context, e *retention.CleanupLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var userID, feedID, errText any
	if e.UserID != "" {
		userID = e.UserID
	}
	if e.FeedID != "" {
		feedID = e.FeedID
	}
	if e.Error != "" {
		errText = e.Error
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO cleanup_log (id, user_id, feed_id, trigger_type, articles_deleted, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, userID, feedID, string(e.Trigger), e.ArticlesDeleted, e.Duration.Milliseconds(), errText, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append cleanup log: %w", err)
	}
	return nil
}

// ListCleanupLog returns the most recent entries, newest first.
func (db *DB) ListCleanupLog(ctx context.Context, limit int) ([]retention.CleanupLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, feed_id, trigger_type, articles_deleted, duration_ms, error, created_at
		FROM cleanup_log ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cleanup log: %w", err)
	}
	defer rows.Close()

	var entries []retention.CleanupLogEntry
	for rows.Next() {
		var e retention.CleanupLogEntry
		var userID, feedID, errText *string
		var trigger string
		var durationMs, createdAt int64
		if err := rows.Scan(&e.ID, &userID, &feedID, &trigger, &e.ArticlesDeleted, &durationMs, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan cleanup log entry: %w", err)
		}
		if userID != nil {
			e.UserID = *userID
		}
		if feedID != nil {
			e.FeedID = *feedID
		}
		if errText != nil {
			e.Error = *errText
		}
		e.Trigger = retention.Trigger(trigger)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
