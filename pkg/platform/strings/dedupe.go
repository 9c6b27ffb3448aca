// Package strings provides string helpers for request normalization.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims and lower-cases each element, then drops empties
// and duplicates. First-seen order is preserved.
//
//	DedupeAndTrimLower([]string{"  0xAB ", "0xab", ""})
//	// Returns: []string{"0xab"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, key)
		}
	}

	return result
}

// ContainsFold reports whether substr occurs in any of values, ignoring case.
// An empty substr matches everything.
func ContainsFold(substr string, values ...string) bool {
	needle := strings.ToLower(strings.TrimSpace(substr))
	if needle == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
