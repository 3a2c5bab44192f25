package worker

import (
	"strings"

	"github.com/JakeFAU/contentplan/internal/keywords"
	"github.com/JakeFAU/contentplan/internal/metrics"
	"github.com/JakeFAU/contentplan/internal/plan"
)

// Enrich attaches keyword metrics to briefs in place and returns how many
// briefs matched. A brief matches exactly on its primary keyword or title;
// otherwise the first returned keyword that contains or is contained in the
// primary keyword wins.
func Enrich(briefs []plan.ArticleBrief, found []keywords.Metric) int {
	index := make(map[string]keywords.Metric, len(found))
	// keys keeps first-seen order for the substring scan.
	keys := make([]string, 0, len(found))
	for _, m := range found {
		key := strings.ToLower(strings.TrimSpace(m.Keyword))
		if key == "" {
			continue
		}
		if _, dup := index[key]; !dup {
			index[key] = m
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return 0
	}

	matched := 0
	for i := range briefs {
		m, kind, ok := matchMetric(briefs[i], index, keys)
		metrics.ObserveEnrichment(kind)
		if !ok {
			continue
		}
		applyMetric(&briefs[i], m)
		matched++
	}
	return matched
}

func matchMetric(b plan.ArticleBrief, index map[string]keywords.Metric, keys []string) (keywords.Metric, string, bool) {
	primary := strings.ToLower(strings.TrimSpace(b.PrimaryKeyword()))
	title := strings.ToLower(strings.TrimSpace(b.Title))
	for _, candidate := range []string{primary, title} {
		if candidate == "" {
			continue
		}
		if m, ok := index[candidate]; ok {
			return m, "exact", true
		}
	}

	candidate := primary
	if candidate == "" {
		candidate = title
	}
	if candidate == "" {
		return keywords.Metric{}, "none", false
	}
	for _, k := range keys {
		if strings.Contains(candidate, k) || strings.Contains(k, candidate) {
			return index[k], "partial", true
		}
	}
	return keywords.Metric{}, "none", false
}

func applyMetric(b *plan.ArticleBrief, m keywords.Metric) {
	b.SearchVolume = m.SearchVolume
	b.Competition = m.Competition
	b.CPC = m.CPC
	b.CompetitionIndex = m.CompetitionIndex
}
