package searcher

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/codescope/codescope/internal/textindex"
)

var queryTokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// splitQueryTokens splits a raw query into its alphanumeric/underscore
// tokens, with case left as typed: the content analyzer splits camelCase
// before lowercasing, so "validateToken" must reach it unlowered to
// produce the same "validate"/"token" terms the document was indexed with.
func splitQueryTokens(query string) []string {
	return queryTokenPattern.FindAllString(query, -1)
}

// Literal performs a grep-like substring search: a lenient BM25 prefilter
// over the query's tokens, followed by a hard requirement that content
// contains the raw query as a literal (case-insensitive) substring.
func (s *Searcher) Literal(ctx context.Context, query string, limit int, opts Options) (Result, error) {
	start := time.Now()

	tokens := splitQueryTokens(query)
	if len(tokens) == 0 {
		return Result{}, nil
	}

	candidates, err := s.text.Search(ctx, tokens, limit*10)
	if err != nil {
		return Result{}, err
	}

	lowerQuery := strings.ToLower(query)
	var filtered []textindex.Hit
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Content), lowerQuery) {
			filtered = append(filtered, c)
		}
	}

	var topScore float64
	if len(filtered) > 0 {
		topScore = filtered[0].Score
	}

	terms := strings.Fields(query)
	maxLines := opts.maxLines()

	hits := make([]Hit, 0, len(filtered))
	for _, c := range filtered {
		sn := snippetForTerms(c.Content, terms, maxLines)
		hits = append(hits, Hit{
			DocID:     c.DocID,
			Path:      c.Path,
			Score:     displayScore(normalizedBM25(c.Score, topScore)),
			MatchType: MatchText,
			Snippet:   sn.text,
			LineStart: c.LineStart + sn.offset,
			LineEnd:   c.LineStart + sn.offset + sn.lineCount - 1,
			Extension: c.Extension,
		})
		if len(hits) >= limit {
			break
		}
	}

	hits = applyFilter(hits, opts.Filter)
	textHits, semanticHits := countByMatchType(hits)

	return Result{
		Hits:         hits,
		Total:        len(hits),
		QueryTimeMS:  time.Since(start).Milliseconds(),
		TextHits:     textHits,
		SemanticHits: semanticHits,
	}, nil
}

// normalizedBM25 scales raw into [0, 1] by dividing by the top candidate's
// raw score. A zero top score (empty or all-zero-score result set) maps
// everything to zero rather than dividing by zero.
func normalizedBM25(raw, top float64) float64 {
	if top <= 0 {
		return 0
	}
	return raw / top
}
