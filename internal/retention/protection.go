package retention

import (
	"context"
	"fmt"
	"log"
)

// ProtectionSet holds article ids exempt from eviction this run. It is
// computed fresh per run and never persisted.
type ProtectionSet map[string]struct{}

// NewProtectionSet builds a set from the given ids.
func NewProtectionSet(ids ...string) ProtectionSet {
	p := make(ProtectionSet, len(ids))
	for _, id := range ids {
		p[id] = struct{}{}
	}
	return p
}

// Contains reports whether id is protected.
func (p ProtectionSet) Contains(id string) bool {
	_, ok := p[id]
	return ok
}

// Add marks id as protected.
func (p ProtectionSet) Add(id string) {
	p[id] = struct{}{}
}

// resolveProtection unions two reads: articles read or starred by any
// user, and articles with at least one comment. An article protected for
// one user is protected for every user's cleanup.
//
// On a read failure the default behavior is fail-open: log a warning and
// return an empty set, so the run proceeds with MORE articles eligible for
// eviction, including ones other users still depend on. Set
// Engine.FailClosed to abort the feed's cleanup instead.
func (e *Engine) resolveProtection(ctx context.Context, userID, feedID string) (ProtectionSet, error) {
	engaged, err := e.store.ProtectedArticleIDs(ctx, userID, feedID)
	if err != nil {
		return e.protectionFailure(feedID, "engagement", err)
	}
	commented, err := e.store.CommentedArticleIDs(ctx, feedID)
	if err != nil {
		return e.protectionFailure(feedID, "comment", err)
	}

	set := make(ProtectionSet, len(engaged)+len(commented))
	for _, id := range engaged {
		set.Add(id)
	}
	for _, id := range commented {
		set.Add(id)
	}
	return set, nil
}

func (e *Engine) protectionFailure(feedID, query string, err error) (ProtectionSet, error) {
	if e.FailClosed {
		return nil, fmt.Errorf("resolve protection (%s query): %w", query, err)
	}
	log.Printf("retention: %s query for feed %s failed: %v (proceeding with empty protection set; engaged articles may be evicted)", query, feedID, err)
	return make(ProtectionSet), nil
}
