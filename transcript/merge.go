// Package transcript accumulates speech-recognition fragments into a single
// running transcript, deduplicating the trailing context that successive
// recognition events re-report.
package transcript

import "strings"

// Clean collapses whitespace runs to single spaces and trims the ends.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Merge appends addition onto base, dropping the largest word overlap between
// the end of base and the start of addition. Overlap is detected
// case-insensitively; the appended words keep the casing of addition. If
// addition is fully contained in the overlap, base is returned unchanged.
func Merge(base, addition string) string {
	base = Clean(base)
	addition = Clean(addition)

	if base == "" {
		return addition
	}
	if addition == "" {
		return base
	}

	baseWords := strings.Fields(base)
	addWords := strings.Fields(addition)

	maxOverlap := len(baseWords)
	if len(addWords) < maxOverlap {
		maxOverlap = len(addWords)
	}

	for k := maxOverlap; k > 0; k-- {
		if wordsEqualFold(baseWords[len(baseWords)-k:], addWords[:k]) {
			if k >= len(addWords) {
				return base
			}
			return base + " " + strings.Join(addWords[k:], " ")
		}
	}

	return base + " " + addition
}

func wordsEqualFold(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
