package retention

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Engine orchestrates retention cleanup at feed, user, and global scope.
type Engine struct {
	store Store

	// BatchSize bounds the number of ids per delete operation.
	BatchSize int

	// FailClosed aborts a feed's cleanup when the protection set cannot be
	// resolved, instead of the default fail-open empty set.
	FailClosed bool

	fast     evictor
	fallback evictor
	now      func() time.Time
}

// New creates an Engine backed by the given store.
func New(s Store) *Engine {
	e := &Engine{
		store:     s,
		BatchSize: DefaultBatchSize,
		now:       time.Now,
	}
	e.fast = &bulkEvictor{store: s}
	e.fallback = &clientEvictor{eng: e}
	return e
}

// evictor is the contract shared by the engine-side bulk path and the
// client-computed fallback. For the same inputs both must apply the same
// protection semantics, the same two strategies, and the same union.
type evictor interface {
	evict(ctx context.Context, userID, feedID string, settings RetentionSettings) (int, error)
}

// bulkEvictor delegates both strategies to the store in one operation.
type bulkEvictor struct {
	store Store
}

func (b *bulkEvictor) evict(ctx context.Context, userID, feedID string, settings RetentionSettings) (int, error) {
	return b.store.BulkCleanup(ctx, feedID, settings.ArticlesPerFeed, settings.UnreadAgeDays)
}

// clientEvictor fetches the feed's articles and computes the eviction list
// locally: protection set, both selectors, deduplicated union, batched
// delete.
type clientEvictor struct {
	eng *Engine
}

func (c *clientEvictor) evict(ctx context.Context, userID, feedID string, settings RetentionSettings) (int, error) {
	e := c.eng

	protected, err := e.resolveProtection(ctx, userID, feedID)
	if err != nil {
		return 0, err
	}

	articles, err := e.store.ListArticles(ctx, feedID)
	if err != nil {
		return 0, fmt.Errorf("list articles: %w", err)
	}
	sortByEffectiveDesc(articles)

	ids := unionIDs(
		SelectOverCapacity(articles, settings.ArticlesPerFeed, protected),
		SelectOverAge(articles, settings.UnreadAgeDays, e.now(), protected),
	)
	return e.deleteBatch(ctx, ids), nil
}

// ResolveSettings loads the user's retention policy, substituting system
// defaults when the row is absent or the read fails. It never fails:
// cleanup must not abort because preference storage is unavailable.
func (e *Engine) ResolveSettings(ctx context.Context, userID string) RetentionSettings {
	s, err := e.store.GetRetentionSettings(ctx, userID)
	if err != nil {
		log.Printf("retention: load settings for user %s: %v (using defaults)", userID, err)
		return DefaultSettings()
	}
	if s == nil {
		return DefaultSettings()
	}
	return *s
}

// deleteBatch splits ids into BatchSize chunks and submits each as one
// delete operation. A failed chunk is logged, contributes zero, and does
// not stop the remaining chunks: cleanup is idempotent and re-runnable, so
// partial success beats an all-or-nothing abort. Returns the total deleted.
func (e *Engine) deleteBatch(ctx context.Context, ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	size := e.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	total := 0
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		n, err := e.store.DeleteArticles(ctx, ids[start:end])
		if err != nil {
			log.Printf("retention: delete chunk of %d articles: %v (continuing)", end-start, err)
			continue
		}
		total += n
	}
	return total
}

// CleanupFeed runs retention cleanup for one feed. It never returns a Go
// error; a failure anywhere in the procedure is logged, recorded in the
// result's Err field, and reflected in the run log, so a sync-triggered
// cleanup can never fail the surrounding feed sync.
func (e *Engine) CleanupFeed(ctx context.Context, userID, feedID string, trigger Trigger) CleanupRunResult {
	start := e.now()
	var res CleanupRunResult

	settings := e.ResolveSettings(ctx, userID)
	if !settings.AutoCleanupEnabled {
		res.Duration = e.now().Sub(start)
		e.logRun(ctx, userID, feedID, trigger, res)
		return res
	}

	deleted, err := e.fast.evict(ctx, userID, feedID, settings)
	if errors.Is(err, ErrBulkCleanupUnavailable) {
		deleted, err = e.fallback.evict(ctx, userID, feedID, settings)
	}
	if err != nil {
		log.Printf("retention: cleanup feed %s: %v", feedID, err)
		res.Err = err
	} else {
		res.ArticlesDeleted = deleted
	}

	res.Duration = e.now().Sub(start)
	e.logRun(ctx, userID, feedID, trigger, res)
	return res
}

// CleanupUser runs feed-scope cleanup for each of the user's feeds
// sequentially and accumulates the deleted count. A single feed's failure
// is visible only in that feed's log entry; the aggregate result carries
// no error. The returned error is non-nil only when the user's feeds
// cannot be enumerated at all.
func (e *Engine) CleanupUser(ctx context.Context, userID string, trigger Trigger) (CleanupRunResult, error) {
	start := e.now()

	feeds, err := e.store.ListFeeds(ctx, userID)
	if err != nil {
		return CleanupRunResult{}, fmt.Errorf("list feeds for user %s: %w", userID, err)
	}

	var res CleanupRunResult
	for i := range feeds {
		fr := e.CleanupFeed(ctx, userID, feeds[i].ID, trigger)
		res.ArticlesDeleted += fr.ArticlesDeleted
	}

	res.Duration = e.now().Sub(start)
	e.logRun(ctx, userID, "", trigger, res)
	return res, nil
}

// CleanupAll runs user-scope cleanup for every user with at least one
// feed. A user whose cleanup call itself fails is skipped, not counted in
// UsersProcessed, and does not stop the remaining users.
func (e *Engine) CleanupAll(ctx context.Context, trigger Trigger) (GlobalResult, error) {
	start := e.now()

	users, err := e.store.ListUsersWithFeeds(ctx)
	if err != nil {
		return GlobalResult{}, fmt.Errorf("list users with feeds: %w", err)
	}

	var g GlobalResult
	for _, userID := range users {
		res, err := e.CleanupUser(ctx, userID, trigger)
		if err != nil {
			log.Printf("retention: cleanup user %s: %v (skipping)", userID, err)
			continue
		}
		g.UsersProcessed++
		g.TotalDeleted += res.ArticlesDeleted
	}

	g.Duration = e.now().Sub(start)
	e.logRun(ctx, "", "", trigger, CleanupRunResult{
		ArticlesDeleted: g.TotalDeleted,
		Duration:        g.Duration,
	})
	return g, nil
}

// logRun appends a run log entry. Append failures are logged and
// swallowed: observability stays best-effort and never fails a cleanup.
func (e *Engine) logRun(ctx context.Context, userID, feedID string, trigger Trigger, res CleanupRunResult) {
	entry := &CleanupLogEntry{
		UserID:          userID,
		FeedID:          feedID,
		Trigger:         trigger,
		ArticlesDeleted: res.ArticlesDeleted,
		Duration:        res.Duration,
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if err := e.store.AppendCleanupLog(ctx, entry); err != nil {
		log.Printf("retention: append cleanup log: %v", err)
	}
}
