package store

import (
	"context"
	"fmt"
	"time"

	"github.com/newskeep/newskeep/internal/retention"
)

// BulkCleanup is the engine-side fast path: both eviction strategies
// applied in one SQL statement, with the same semantics as the client
// fallback. Protected means read or starred by any user, or commented.
// The capacity rule deletes unprotected articles beyond the newest limit;
// the age rule deletes unprotected articles whose effective date is
// strictly before now minus ageDays. The union is deleted once.
//
// Returns retention.ErrBulkCleanupUnavailable when BulkCleanupDisabled is
// set, modeling a store without the operation deployed.
func (db *DB) BulkCleanup(ctx context.Context, feedID string, limit, ageDays int) (int, error) {
	if db.BulkCleanupDisabled {
		return 0, retention.ErrBulkCleanupUnavailable
	}

	cutoff := time.Now().AddDate(0, 0, -ageDays).UnixMilli()

	res, err := db.ExecContext(ctx, `
		WITH protected AS (
			SELECT article_id FROM engagement WHERE is_read = 1 OR is_starred = 1
			UNION
			SELECT article_id FROM comments
		),
		unprotected AS (
			SELECT a.id, COALESCE(a.published_at, a.created_at) AS effective
			FROM articles a
			WHERE a.feed_id = ?
			  AND a.id NOT IN (SELECT article_id FROM protected)
		),
		over_capacity AS (
			SELECT id FROM unprotected ORDER BY effective DESC, id LIMIT -1 OFFSET ?
		),
		over_age AS (
			SELECT id FROM unprotected WHERE effective < ?
		)
		DELETE FROM articles WHERE id IN (
			SELECT id FROM over_capacity UNION SELECT id FROM over_age
		)
	`, feedID, limit, cutoff)
	if err != nil {
		return 0, fmt.Errorf("bulk cleanup feed %s: %w", feedID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk cleanup rows affected: %w", err)
	}
	return int(n), nil
}
