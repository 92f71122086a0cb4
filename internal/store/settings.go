package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/newskeep/newskeep/internal/retention"
)

// GetRetentionSettings returns the user's retention policy, or (nil, nil)
// when the user has never saved one. Substituting defaults is the
// engine's job, not the store's.
func (db *DB) GetRetentionSettings(ctx context.Context, userID string) (*retention.RetentionSettings, error) {
	var s retention.RetentionSettings
	var enabled int
	err := db.QueryRowContext(ctx, `
		SELECT articles_per_feed, unread_age_days, auto_cleanup_enabled
		FROM retention_settings WHERE user_id = ?
	`, userID).Scan(&s.ArticlesPerFeed, &s.UnreadAgeDays, &enabled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get retention settings: %w", err)
	}
	s.AutoCleanupEnabled = enabled == 1
	return &s, nil
}

// SetRetentionSettings merges a partial update into the user's current
// settings (or the system defaults for a first write), validates the
// bounded fields before acceptance, and persists the result. The row is
// created lazily and only ever overwritten, never deleted.
func (db *DB) SetRetentionSettings(ctx context.Context, userID string, patch retention.SettingsPatch) (retention.RetentionSettings, error) {
	current, err := db.GetRetentionSettings(ctx, userID)
	if err != nil {
		return retention.RetentionSettings{}, err
	}

	base := retention.DefaultSettings()
	if current != nil {
		base = *current
	}

	merged := patch.Apply(base)
	if err := merged.Validate(); err != nil {
		return retention.RetentionSettings{}, fmt.Errorf("invalid retention settings: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO retention_settings (user_id, articles_per_feed, unread_age_days, auto_cleanup_enabled, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			articles_per_feed = excluded.articles_per_feed,
			unread_age_days = excluded.unread_age_days,
			auto_cleanup_enabled = excluded.auto_cleanup_enabled,
			updated_at = excluded.updated_at
	`, userID, merged.ArticlesPerFeed, merged.UnreadAgeDays, boolInt(merged.AutoCleanupEnabled), time.Now().UnixMilli())
	if err != nil {
		return retention.RetentionSettings{}, fmt.Errorf("save retention settings: %w", err)
	}
	return merged, nil
}
