package plan

import (
	"strings"
	"unicode"
)

// Target bounds for the number of briefs in a plan.
const (
	MinTargetArticles = 100
	MaxTargetArticles = 2000
)

const normalizedKeyLength = 50

// NormalizeKey folds case, strips everything that is not a letter or digit,
// and truncates to 50 runes.
func NormalizeKey(title string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(title) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
		n++
		if n == normalizedKeyLength {
			break
		}
	}
	return b.String()
}

// Dedupe drops briefs whose normalized title was already seen. The first
// occurrence wins and the input order is preserved.
func Dedupe(briefs []ArticleBrief) []ArticleBrief {
	seen := make(map[string]struct{}, len(briefs))
	out := make([]ArticleBrief, 0, len(briefs))
	for _, b := range briefs {
		key := NormalizeKey(b.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	return out
}

// ClampTarget bounds the requested article count to [100, 2000].
func ClampTarget(n int) int {
	switch {
	case n < MinTargetArticles:
		return MinTargetArticles
	case n > MaxTargetArticles:
		return MaxTargetArticles
	default:
		return n
	}
}

// ComputeStats aggregates counts by content type and priority.
func ComputeStats(briefs []ArticleBrief, clusters []Cluster) Stats {
	stats := Stats{
		Total:         len(briefs),
		Clusters:      len(clusters),
		ByContentType: make(map[ContentType]int),
		ByPriority:    make(map[Priority]int),
	}
	for _, b := range briefs {
		stats.ByContentType[b.ContentType]++
		stats.ByPriority[b.Priority]++
	}
	return stats
}
