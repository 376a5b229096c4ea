// Package terms splits user search strings into match terms.
package terms

import "strings"

// Separator delimits terms in a raw search string.
const Separator = ","

// Parse splits raw on commas, trims each piece and drops empty pieces.
// Order is preserved and duplicates are kept. Blank input yields an empty slice.
func Parse(raw string) []string {
	pieces := strings.Split(raw, Separator)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MaxThreshold returns the largest meaningful threshold for a term list: max(1, len(terms)).
func MaxThreshold(terms []string) int {
	return max(1, len(terms))
}

// ClampThreshold bounds a requested threshold to [1, MaxThreshold(terms)].
func ClampThreshold(threshold int, terms []string) int {
	return min(max(threshold, 1), MaxThreshold(terms))
}
