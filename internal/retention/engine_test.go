package retention

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testEngine(fs *fakeStore) *Engine {
	e := New(fs)
	e.now = func() time.Time { return testNow }
	return e
}

func TestCleanupFeedWorkedExample(t *testing.T) {
	// Feed with 5 articles dated day 0..4, limit 3, age 30 days, none
	// protected: the capacity rule evicts the 2 oldest, the age rule
	// none, remaining feed size 3.
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("day0", 0), daysOld("day1", 1), daysOld("day2", 2), daysOld("day3", 3), daysOld("day4", 4))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 3, UnreadAgeDays: 30, AutoCleanupEnabled: true}

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.ArticlesDeleted != 2 {
		t.Errorf("deleted = %d, want 2", res.ArticlesDeleted)
	}
	equalIDs(t, fs.remainingIDs("f1"), "day0", "day1", "day2")
}

func TestCleanupFeedProtectedRetained(t *testing.T) {
	// Same feed, but day3 is starred: only day4 is evicted and the feed
	// keeps 4 articles (3 unprotected plus the protected one).
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("day0", 0), daysOld("day1", 1), daysOld("day2", 2), daysOld("day3", 3), daysOld("day4", 4))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 3, UnreadAgeDays: 30, AutoCleanupEnabled: true}
	fs.protected["f1"] = []string{"day3"}

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.ArticlesDeleted != 1 {
		t.Errorf("deleted = %d, want 1", res.ArticlesDeleted)
	}
	equalIDs(t, fs.remainingIDs("f1"), "day0", "day1", "day2", "day3")
}

func TestCleanupFeedAgeRule(t *testing.T) {
	// Within capacity but over age: only the stale article goes.
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("fresh", 2), daysOld("stale", 45))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 100, UnreadAgeDays: 30, AutoCleanupEnabled: true}

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.ArticlesDeleted != 1 {
		t.Errorf("deleted = %d, want 1", res.ArticlesDeleted)
	}
	equalIDs(t, fs.remainingIDs("f1"), "fresh")
}

func TestCleanupFeedBothRulesUnioned(t *testing.T) {
	// An article old enough for the age rule AND beyond capacity is
	// deleted exactly once.
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("day0", 0), daysOld("day1", 1), daysOld("ancient", 90))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 2, UnreadAgeDays: 30, AutoCleanupEnabled: true}

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.ArticlesDeleted != 1 {
		t.Errorf("deleted = %d, want 1", res.ArticlesDeleted)
	}
	if fs.deleteCalls != 1 {
		t.Errorf("delete calls = %d, want 1", fs.deleteCalls)
	}
}

func TestCleanupFeedIdempotent(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("day0", 0), daysOld("day1", 1), daysOld("day2", 2), daysOld("day3", 3), daysOld("day4", 4))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 3, UnreadAgeDays: 30, AutoCleanupEnabled: true}

	e := testEngine(fs)
	first := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)
	second := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if first.ArticlesDeleted != 2 {
		t.Errorf("first run deleted = %d, want 2", first.ArticlesDeleted)
	}
	if second.ArticlesDeleted != 0 {
		t.Errorf("second run deleted = %d, want 0", second.ArticlesDeleted)
	}
}

func TestCleanupFeedDisabled(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("ancient", 90))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 100, UnreadAgeDays: 30, AutoCleanupEnabled: false}

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.ArticlesDeleted != 0 || res.Err != nil {
		t.Errorf("result = %+v, want zero result", res)
	}
	if fs.bulkCalls != 0 || fs.listCalls != 0 {
		t.Error("disabled cleanup must not touch articles")
	}
	if len(fs.logs) != 1 {
		t.Fatalf("log entries = %d, want 1", len(fs.logs))
	}
}

func TestCleanupFeedFastPath(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.bulkErr = nil
	fs.bulkCounts["f1"] = 7

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerScheduled)

	if res.ArticlesDeleted != 7 {
		t.Errorf("deleted = %d, want 7", res.ArticlesDeleted)
	}
	if fs.listCalls != 0 {
		t.Error("fast path must not fetch article lists")
	}
}

func TestCleanupFeedNoFallbackOnGenericError(t *testing.T) {
	// Only the explicit unavailable sentinel triggers the fallback; a
	// real failure surfaces in the result instead of being masked.
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("ancient", 90))
	fs.bulkErr = errors.New("connection reset")

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.Err == nil {
		t.Fatal("expected error in result")
	}
	if fs.listCalls != 0 {
		t.Error("generic bulk failure must not fall back")
	}
	if len(fs.logs) != 1 || fs.logs[0].Error == "" {
		t.Errorf("log entry should carry the error, got %+v", fs.logs)
	}
}

func TestResolveSettingsDefaults(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)

	// Absent row
	if got := e.ResolveSettings(context.Background(), "u1"); got != DefaultSettings() {
		t.Errorf("absent: got %+v, want defaults", got)
	}

	// Read failure
	fs.settingsErr = errors.New("settings store down")
	if got := e.ResolveSettings(context.Background(), "u1"); got != DefaultSettings() {
		t.Errorf("error: got %+v, want defaults", got)
	}
}

func TestProtectionFailOpen(t *testing.T) {
	// A failing protection query yields an empty set: the run proceeds
	// and even the starred article is evicted. Literal legacy behavior.
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("day0", 0), daysOld("starred-old", 45))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 100, UnreadAgeDays: 30, AutoCleanupEnabled: true}
	fs.protected["f1"] = []string{"starred-old"}
	fs.protectedErr = errors.New("engagement query timeout")

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.Err != nil {
		t.Fatalf("fail-open run should not error: %v", res.Err)
	}
	if res.ArticlesDeleted != 1 {
		t.Errorf("deleted = %d, want 1 (protection lost on error)", res.ArticlesDeleted)
	}
}

func TestProtectionFailClosed(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("starred-old", 45))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 100, UnreadAgeDays: 30, AutoCleanupEnabled: true}
	fs.protectedErr = errors.New("engagement query timeout")

	e := testEngine(fs)
	e.FailClosed = true
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.Err == nil {
		t.Fatal("fail-closed run should surface the error")
	}
	if res.ArticlesDeleted != 0 || fs.deleteCalls != 0 {
		t.Error("fail-closed run must not delete anything")
	}
}

func TestProtectionCommentQueryFailureAlsoFailsOpen(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("commented-old", 45))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 100, UnreadAgeDays: 30, AutoCleanupEnabled: true}
	fs.commented["f1"] = []string{"commented-old"}
	fs.commentedErr = errors.New("comments query timeout")

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.Err != nil {
		t.Fatalf("fail-open run should not error: %v", res.Err)
	}
	if res.ArticlesDeleted != 1 {
		t.Errorf("deleted = %d, want 1", res.ArticlesDeleted)
	}
}

func TestDeleteBatchChunking(t *testing.T) {
	fs := newFakeStore()
	fs.addArticles("f1", daysOld("a", 0), daysOld("b", 0), daysOld("c", 0), daysOld("d", 0), daysOld("e", 0))

	e := testEngine(fs)
	e.BatchSize = 2

	// Second chunk fails: its 2 articles are excluded from the count and
	// the remaining chunk still runs.
	fs.deleteFail = func(call int) error {
		if call == 2 {
			return errors.New("deadline exceeded")
		}
		return nil
	}

	total := e.deleteBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if fs.deleteCalls != 3 {
		t.Errorf("delete calls = %d, want 3", fs.deleteCalls)
	}
}

func TestDeleteBatchEmpty(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)

	if total := e.deleteBatch(context.Background(), nil); total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if fs.deleteCalls != 0 {
		t.Error("empty input must not touch the store")
	}
}

func TestCleanupUserAggregates(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addFeed("u1", "f2")
	fs.addArticles("f1", daysOld("f1-old", 45))
	fs.addArticles("f2", daysOld("f2-old", 45))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 100, UnreadAgeDays: 30, AutoCleanupEnabled: true}

	e := testEngine(fs)
	res, err := e.CleanupUser(context.Background(), "u1", TriggerManual)
	if err != nil {
		t.Fatalf("CleanupUser: %v", err)
	}
	if res.ArticlesDeleted != 2 {
		t.Errorf("deleted = %d, want 2", res.ArticlesDeleted)
	}

	// 2 feed entries plus the user aggregate.
	if len(fs.logs) != 3 {
		t.Fatalf("log entries = %d, want 3", len(fs.logs))
	}
	agg := fs.logs[2]
	if agg.FeedID != "" || agg.ArticlesDeleted != 2 {
		t.Errorf("aggregate entry = %+v", agg)
	}
}

func TestCleanupUserFeedFailureDoesNotStopSiblings(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "bad")
	fs.addFeed("u1", "good")
	fs.addArticles("good", daysOld("old", 45))
	fs.settings["u1"] = &RetentionSettings{ArticlesPerFeed: 100, UnreadAgeDays: 30, AutoCleanupEnabled: true}
	fs.articlesErr["bad"] = errors.New("corrupt index")

	e := testEngine(fs)
	res, err := e.CleanupUser(context.Background(), "u1", TriggerManual)
	if err != nil {
		t.Fatalf("CleanupUser: %v", err)
	}
	if res.ArticlesDeleted != 1 {
		t.Errorf("deleted = %d, want 1", res.ArticlesDeleted)
	}
	if res.Err != nil {
		t.Error("aggregate result must not carry per-feed errors")
	}

	// The failing feed's own log entry carries the error.
	var feedErrs int
	for _, l := range fs.logs {
		if l.FeedID == "bad" && l.Error != "" {
			feedErrs++
		}
	}
	if feedErrs != 1 {
		t.Errorf("bad feed error entries = %d, want 1", feedErrs)
	}
}

func TestCleanupUserListFeedsError(t *testing.T) {
	fs := newFakeStore()
	fs.feedsErr["u1"] = errors.New("db locked")

	e := testEngine(fs)
	if _, err := e.CleanupUser(context.Background(), "u1", TriggerManual); err == nil {
		t.Fatal("expected error when feeds cannot be enumerated")
	}
}

func TestCleanupAllSkipsFailingUser(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addFeed("u2", "f2")
	fs.addArticles("f2", daysOld("old", 45))
	fs.feedsErr["u1"] = errors.New("db locked")

	e := testEngine(fs)
	res, err := e.CleanupAll(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("CleanupAll: %v", err)
	}
	if res.UsersProcessed != 1 {
		t.Errorf("users processed = %d, want 1", res.UsersProcessed)
	}
	if res.TotalDeleted != 1 {
		t.Errorf("total deleted = %d, want 1", res.TotalDeleted)
	}
}

func TestCleanupAllListUsersError(t *testing.T) {
	fs := newFakeStore()
	fs.usersErr = errors.New("db locked")

	e := testEngine(fs)
	if _, err := e.CleanupAll(context.Background(), TriggerScheduled); err == nil {
		t.Fatal("expected error when users cannot be enumerated")
	}
}

func TestRunLogFailureNonFatal(t *testing.T) {
	fs := newFakeStore()
	fs.addFeed("u1", "f1")
	fs.addArticles("f1", daysOld("old", 45))
	fs.logErr = errors.New("log table full")

	e := testEngine(fs)
	res := e.CleanupFeed(context.Background(), "u1", "f1", TriggerSync)

	if res.Err != nil {
		t.Fatalf("log append failure must not fail cleanup: %v", res.Err)
	}
	if res.ArticlesDeleted != 1 {
		t.Errorf("deleted = %d, want 1", res.ArticlesDeleted)
	}
}
