package retention

import (
	"context"
	"sync"
)

// fakeStore is an in-memory Store for engine tests, with per-call fault
// injection. DeleteArticles actually removes articles so idempotence
// tests see second runs find nothing.
type fakeStore struct {
	mu sync.Mutex

	settings    map[string]*RetentionSettings
	settingsErr error

	feeds    map[string][]Feed
	feedsErr map[string]error

	users        []string
	usersErr     error
	usersEntered chan struct{} // closed when ListUsersWithFeeds is first entered
	usersGate    chan struct{} // when non-nil, ListUsersWithFeeds blocks until closed
	enterOnce    sync.Once

	articles    map[string][]Article
	articlesErr map[string]error
	listCalls   int

	protected    map[string][]string
	protectedErr error

	commented    map[string][]string
	commentedErr error

	bulkCounts map[string]int
	bulkErr    error
	bulkCalls  int

	deleteFail  func(call int) error // 1-based call index
	deleteCalls int
	deleted     [][]string

	logErr error
	logs   []CleanupLogEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings:    map[string]*RetentionSettings{},
		feeds:       map[string][]Feed{},
		feedsErr:    map[string]error{},
		articles:    map[string][]Article{},
		articlesErr: map[string]error{},
		protected:   map[string][]string{},
		commented:   map[string][]string{},
		bulkCounts:  map[string]int{},
		// Fast path unavailable by default so tests exercise the fallback.
		bulkErr: ErrBulkCleanupUnavailable,
	}
}

func (f *fakeStore) addFeed(userID, feedID string) {
	f.feeds[userID] = append(f.feeds[userID], Feed{ID: feedID, UserID: userID})
	found := false
	for _, u := range f.users {
		if u == userID {
			found = true
		}
	}
	if !found {
		f.users = append(f.users, userID)
	}
}

func (f *fakeStore) addArticles(feedID string, articles ...Article) {
	f.articles[feedID] = append(f.articles[feedID], articles...)
}

func (f *fakeStore) GetRetentionSettings(ctx context.Context, userID string) (*RetentionSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	return f.settings[userID], nil
}

func (f *fakeStore) ListFeeds(ctx context.Context, userID string) ([]Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.feedsErr[userID]; err != nil {
		return nil, err
	}
	return f.feeds[userID], nil
}

func (f *fakeStore) ListUsersWithFeeds(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	entered := f.usersEntered
	gate := f.usersGate
	err := f.usersErr
	users := append([]string(nil), f.users...)
	f.mu.Unlock()

	if entered != nil {
		f.enterOnce.Do(func() { close(entered) })
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (f *fakeStore) ListArticles(ctx context.Context, feedID string) ([]Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if err := f.articlesErr[feedID]; err != nil {
		return nil, err
	}
	return append([]Article(nil), f.articles[feedID]...), nil
}

func (f *fakeStore) ProtectedArticleIDs(ctx context.Context, userID, feedID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.protectedErr != nil {
		return nil, f.protectedErr
	}
	return f.protected[feedID], nil
}

func (f *fakeStore) CommentedArticleIDs(ctx context.Context, feedID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentedErr != nil {
		return nil, f.commentedErr
	}
	return f.commented[feedID], nil
}

func (f *fakeStore) BulkCleanup(ctx context.Context, feedID string, limit, ageDays int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	return f.bulkCounts[feedID], nil
}

func (f *fakeStore) DeleteArticles(ctx context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.deleted = append(f.deleted, append([]string(nil), ids...))
	if f.deleteFail != nil {
		if err := f.deleteFail(f.deleteCalls); err != nil {
			return 0, err
		}
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	n := 0
	for feedID, articles := range f.articles {
		kept := articles[:0]
		for _, a := range articles {
			if drop[a.ID] {
				n++
				continue
			}
			kept = append(kept, a)
		}
		f.articles[feedID] = kept
	}
	return n, nil
}

func (f *fakeStore) AppendCleanupLog(ctx context.Context, entry *CleanupLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	f.logs = append(f.logs, *entry)
	return nil
}

// remainingIDs lists the article ids still stored for a feed.
func (f *fakeStore) remainingIDs(feedID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, a := range f.articles[feedID] {
		out = append(out, a.ID)
	}
	return out
}
