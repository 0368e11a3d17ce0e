// Package strings provides string slice utilities.
package strings

import (
	"strings"
)

// DedupeFold trims each element, drops empties and removes case-insensitive
// duplicates. The first spelling of each value wins and order is preserved.
//
// Example:
//
//	DedupeFold([]string{" Ana ", "bo", "ana", ""})
//	// Returns: []string{"Ana", "bo"}
func DedupeFold(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
