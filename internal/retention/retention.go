// Package retention decides which stored articles may be permanently
// deleted, per user and per feed. Two independent eviction strategies
// (capacity and age) are combined, articles any user still engages with
// are protected, and deletions run in bounded, fault-isolated batches.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Settings bounds. Values outside these ranges are rejected on write;
// reads never produce out-of-range values.
const (
	MinArticlesPerFeed = 50
	MaxArticlesPerFeed = 500
	MinUnreadAgeDays   = 7
	MaxUnreadAgeDays   = 90
)

// DefaultBatchSize is the number of article ids submitted per delete
// operation.
const DefaultBatchSize = 500

// ErrBulkCleanupUnavailable is the sentinel a store returns when its
// engine-side bulk cleanup is not deployed. The orchestrator falls back to
// the client-computed path only on this error, never on a generic failure.
var ErrBulkCleanupUnavailable = errors.New("bulk cleanup unavailable")

// Trigger records why a cleanup run happened.
type Trigger string

const (
	TriggerSync      Trigger = "sync"
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Article is the slice of the stored article the engine needs: identity,
// owning feed, and the two timestamps that determine its effective date.
type Article struct {
	ID          string
	FeedID      string
	Title       string
	URL         string
	PublishedAt *time.Time // nil when the feed item carried no date
	IngestedAt  time.Time
}

// EffectiveDate is the publication time, falling back to ingestion time
// when the feed item carried none.
func (a *Article) EffectiveDate() time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return a.IngestedAt
}

// Feed is a user's subscription.
type Feed struct {
	ID        string
	UserID    string
	Title     string
	URL       string
	CreatedAt time.Time
}

// RetentionSettings is a user's cleanup policy.
type RetentionSettings struct {
	ArticlesPerFeed    int
	UnreadAgeDays      int
	AutoCleanupEnabled bool
}

// DefaultSettings returns the system policy used when a user has no
// settings row or the read fails.
func DefaultSettings() RetentionSettings {
	return RetentionSettings{
		ArticlesPerFeed:    100,
		UnreadAgeDays:      30,
		AutoCleanupEnabled: true,
	}
}

// Validate checks the bounded fields.
func (s RetentionSettings) Validate() error {
	if s.ArticlesPerFeed < MinArticlesPerFeed || s.ArticlesPerFeed > MaxArticlesPerFeed {
		return fmt.Errorf("articles per feed %d out of range [%d, %d]",
			s.ArticlesPerFeed, MinArticlesPerFeed, MaxArticlesPerFeed)
	}
	if s.UnreadAgeDays < MinUnreadAgeDays || s.UnreadAgeDays > MaxUnreadAgeDays {
		return fmt.Errorf("unread age %d days out of range [%d, %d]",
			s.UnreadAgeDays, MinUnreadAgeDays, MaxUnreadAgeDays)
	}
	return nil
}

// SettingsPatch is a partial settings update. Nil fields keep their
// current value.
type SettingsPatch struct {
	ArticlesPerFeed    *int
	UnreadAgeDays      *int
	AutoCleanupEnabled *bool
}

// Apply merges the patch into s and returns the result.
func (p SettingsPatch) Apply(s RetentionSettings) RetentionSettings {
	if p.ArticlesPerFeed != nil {
		s.ArticlesPerFeed = *p.ArticlesPerFeed
	}
	if p.UnreadAgeDays != nil {
		s.UnreadAgeDays = *p.UnreadAgeDays
	}
	if p.AutoCleanupEnabled != nil {
		s.AutoCleanupEnabled = *p.AutoCleanupEnabled
	}
	return s
}

// CleanupRunResult is the outcome of one feed- or user-scope run.
type CleanupRunResult struct {
	ArticlesDeleted int
	Duration        time.Duration
	Err             error
}

// GlobalResult is the outcome of a global (all users) run.
type GlobalResult struct {
	UsersProcessed int
	TotalDeleted   int
	Duration       time.Duration
}

// CleanupLogEntry is the persisted, append-only record of a run.
type CleanupLogEntry struct {
	ID              string
	UserID          string // empty for global-scope entries
	FeedID          string // empty for user- and global-scope entries
	Trigger         Trigger
	ArticlesDeleted int
	Duration        time.Duration
	Error           string
	CreatedAt       time.Time
}

// Store is everything the engine needs from the persistence layer. The
// sqlite implementation lives in internal/store; tests inject fakes.
type Store interface {
	// GetRetentionSettings returns (nil, nil) when the user has no
	// settings row.
	GetRetentionSettings(ctx context.Context, userID string) (*RetentionSettings, error)

	ListFeeds(ctx context.Context, userID string) ([]Feed, error)
	ListUsersWithFeeds(ctx context.Context) ([]string, error)

	// ListArticles returns all of a feed's articles ordered by effective
	// date descending.
	ListArticles(ctx context.Context, feedID string) ([]Article, error)

	// ProtectedArticleIDs returns articles read or starred by ANY user,
	// not just userID. An empty feedID means all feeds.
	ProtectedArticleIDs(ctx context.Context, userID, feedID string) ([]string, error)

	// CommentedArticleIDs returns articles with at least one comment.
	CommentedArticleIDs(ctx context.Context, feedID string) ([]string, error)

	// BulkCleanup applies both eviction strategies engine-side and returns
	// the deleted count, or ErrBulkCleanupUnavailable when the store has
	// no such operation deployed.
	BulkCleanup(ctx context.Context, feedID string, limit, ageDays int) (int, error)

	// DeleteArticles removes the given articles and returns the affected
	// count. Deleting an already-deleted id is a no-op.
	DeleteArticles(ctx context.Context, ids []string) (int, error)

	AppendCleanupLog(ctx context.Context, entry *CleanupLogEntry) error
}
