// Package pattern implements the wildcard matching shared by the context
// sources and rule conditions.
package pattern

import "strings"

// Matches reports whether value satisfies pattern. A trailing * makes the
// rest of the pattern a prefix, a leading * makes it a suffix, and anything
// else must match exactly. Comparison is case-insensitive.
func Matches(value, pattern string) bool {
	v := strings.ToLower(value)
	p := strings.ToLower(pattern)
	switch {
	case strings.HasSuffix(p, "*"):
		return strings.HasPrefix(v, strings.TrimSuffix(p, "*"))
	case strings.HasPrefix(p, "*"):
		return strings.HasSuffix(v, strings.TrimPrefix(p, "*"))
	default:
		return v == p
	}
}
