package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "users, feeds, articles",
		SQL: `
CREATE TABLE users (
    id         TEXT PRIMARY KEY,
    email      TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL
);

CREATE TABLE feeds (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title      TEXT NOT NULL,
    url        TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_feeds_user ON feeds(user_id);

CREATE TABLE articles (
    id           TEXT PRIMARY KEY,
    feed_id      TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    title        TEXT NOT NULL,
    url          TEXT,
    published_at INTEGER,
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_articles_feed      ON articles(feed_id);
CREATE INDEX idx_articles_effective ON articles(feed_id, COALESCE(published_at, created_at) DESC);
`,
	},
	{
		Version:     2,
		Description: "engagement and comments",
		SQL: `
CREATE TABLE engagement (
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    is_read    INTEGER NOT NULL DEFAULT 0,
    is_starred INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (user_id, article_id)
);

CREATE INDEX idx_engagement_article ON engagement(article_id);

CREATE TABLE comments (
    id         TEXT PRIMARY KEY,
    article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    body       TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_comments_article ON comments(article_id);
`,
	},
	{
		Version:     3,
		Description: "retention settings",
		SQL: `
CREATE TABLE retention_settings (
    user_id              TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    articles_per_feed    INTEGER NOT NULL DEFAULT 100 CHECK (articles_per_feed BETWEEN 50 AND 500),
    unread_age_days      INTEGER NOT NULL DEFAULT 30 CHECK (unread_age_days BETWEEN 7 AND 90),
    auto_cleanup_enabled INTEGER NOT NULL DEFAULT 1,
    updated_at           INTEGER NOT NULL
);
`,
	},
	{
		Version:     4,
		Description: "cleanup log",
		SQL: `
CREATE TABLE cleanup_log (
    id               TEXT PRIMARY KEY,
    user_id          TEXT,
    feed_id          TEXT,
    trigger_type     TEXT NOT NULL CHECK (trigger_type IN ('sync', 'scheduled', 'manual')),
    articles_deleted INTEGER NOT NULL,
    duration_ms      INTEGER NOT NULL,
    error            TEXT,
    created_at       INTEGER NOT NULL
);

CREATE INDEX idx_cleanup_log_created ON cleanup_log(created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
