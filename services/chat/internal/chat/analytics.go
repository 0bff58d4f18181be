package chat

import "strings"

// AnalyticsState is the cumulative analytics for one conversation. The model
// re-reports entries it already mentioned, so every merge is a set union:
// merging the same event twice leaves the state unchanged.
type AnalyticsState struct {
	OffMenuRequests []string `json:"off_menu_requests" bson:"off_menu_requests"`
	UpsellAttempts  []string `json:"upsell_attempts" bson:"upsell_attempts"`
	UpsellSuccesses []string `json:"upsell_successes" bson:"upsell_successes"`
}

// Merge folds one extracted analytics result into the state. It returns true
// when anything new was added. Malformed or absent segments are no-ops.
func (a *AnalyticsState) Merge(result AnalyticsResult) bool {
	if result.State != SegmentPresent || result.Event == nil {
		return false
	}

	changed := false
	if mergeEntries(&a.OffMenuRequests, result.Event.OffMenuRequests) {
		changed = true
	}
	if mergeEntries(&a.UpsellAttempts, result.Event.UpsellAttempts) {
		changed = true
	}
	if mergeEntries(&a.UpsellSuccesses, result.Event.UpsellSuccesses) {
		changed = true
	}
	return changed
}

// Counts summarizes the state for reporting.
func (a *AnalyticsState) Counts() (offMenu, attempts, successes int) {
	return len(a.OffMenuRequests), len(a.UpsellAttempts), len(a.UpsellSuccesses)
}

// mergeEntries appends entries not already present, preserving first-seen
// order and casing. Entries are compared trimmed and case-folded so the
// model restating "Oat Milk" after "oat milk" does not double count.
func mergeEntries(dst *[]string, incoming []string) bool {
	seen := make(map[string]bool, len(*dst))
	for _, entry := range *dst {
		seen[normalizeEntry(entry)] = true
	}

	changed := false
	for _, entry := range incoming {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}
		key := normalizeEntry(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		*dst = append(*dst, trimmed)
		changed = true
	}
	return changed
}

func normalizeEntry(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
