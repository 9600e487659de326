// Package strings normalizes free-form labels such as institution service tags.
package strings

import (
	"strings"
)

// NormalizeTags lowercases each tag, collapses inner whitespace and drops
// blanks and repeats. First occurrence wins. The result is never nil.
func NormalizeTags(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		tag := strings.ToLower(strings.Join(strings.Fields(v), " "))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
