package util

import "strings"

// SplitCommaSeparated splits a comma-separated string and trims whitespace from
// each element, dropping empty elements. Order is preserved. Empty input
// returns nil.
func SplitCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
