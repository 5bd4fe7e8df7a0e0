package searcher

import "strings"

// matches reports whether hit satisfies f. A zero-value Filter matches
// everything.
func (f Filter) matches(hit Hit) bool {
	if f.Extension != "" && !strings.EqualFold(hit.Extension, f.Extension) {
		return false
	}
	if len(f.PathPatterns) > 0 && !anyPathMatches(hit.Path, f.PathPatterns) {
		return false
	}
	return true
}

func anyPathMatches(path string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.HasPrefix(path, p) || strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// applyFilter returns the hits that satisfy f, in their original order.
// It does not touch a Result's count fields; callers recompute Total,
// TextHits and SemanticHits from the returned slice (see countByMatchType).
func applyFilter(hits []Hit, f Filter) []Hit {
	if f.Extension == "" && len(f.PathPatterns) == 0 {
		return hits
	}
	filtered := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if f.matches(h) {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

func countByMatchType(hits []Hit) (textHits, semanticHits int) {
	for _, h := range hits {
		switch h.MatchType {
		case MatchText:
			textHits++
		case MatchSemantic:
			semanticHits++
		case MatchHybrid:
			textHits++
			semanticHits++
		}
	}
	return textHits, semanticHits
}
