package stringutil

import "strings"

// MergeNonEmpty returns newValue (trimmed) if non-empty, otherwise existing.
// Used for monotonic field merges: a fresh non-null value always wins, a
// fresh null/blank value never clobbers a previously stored one.
func MergeNonEmpty(existing, newValue string) string {
	newValue = strings.TrimSpace(newValue)
	if newValue == "" {
		return existing
	}
	return newValue
}
