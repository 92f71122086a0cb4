package retention

import (
	"sort"
	"time"
)

// SelectOverCapacity returns the ids of unprotected articles beyond the
// newest limit. Articles must be ordered by effective date descending.
// Protected articles do not count against the limit and are never
// returned.
func SelectOverCapacity(articles []Article, limit int, protected ProtectionSet) []string {
	kept := 0
	var evict []string
	for i := range articles {
		if protected.Contains(articles[i].ID) {
			continue
		}
		if kept < limit {
			kept++
			continue
		}
		evict = append(evict, articles[i].ID)
	}
	return evict
}

// SelectOverAge returns the ids of unprotected articles whose effective
// date is strictly before now minus ageDays.
func SelectOverAge(articles []Article, ageDays int, now time.Time, protected ProtectionSet) []string {
	cutoff := now.AddDate(0, 0, -ageDays)
	var evict []string
	for i := range articles {
		if protected.Contains(articles[i].ID) {
			continue
		}
		if articles[i].EffectiveDate().Before(cutoff) {
			evict = append(evict, articles[i].ID)
		}
	}
	return evict
}

// sortByEffectiveDesc orders articles newest-first by effective date. The
// store already returns this order; sorting again keeps the selector
// invariants independent of driver behavior.
func sortByEffectiveDesc(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].EffectiveDate().After(articles[j].EffectiveDate())
	})
}

// unionIDs merges the two selector outputs, dropping duplicates so an
// article matched by both rules is deleted exactly once.
func unionIDs(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
