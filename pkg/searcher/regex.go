package searcher

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// regexLiteralTokenPattern extracts runs of word characters length >= 2
// from a regex pattern string, used as a lenient BM25 prefilter before the
// real regex match is applied.
var regexLiteralTokenPattern = regexp.MustCompile(`[A-Za-z0-9_]{2,}`)

// Regex performs a case-insensitive regular-expression search: when the
// pattern contains usable literal tokens, a lenient BM25 prefilter narrows
// the candidate set; otherwise every document is scanned.
func (s *Searcher) Regex(ctx context.Context, pattern string, limit int, opts Options) (Result, error) {
	start := time.Now()

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Result{}, err
	}

	tokens := regexLiteralTokenPattern.FindAllString(pattern, -1)

	var candidates []candidateDoc
	if len(tokens) > 0 {
		lowered := make([]string, len(tokens))
		for i, t := range tokens {
			lowered[i] = strings.ToLower(t)
		}
		hits, err := s.text.Search(ctx, lowered, limit*20)
		if err != nil {
			return Result{}, err
		}
		for _, h := range hits {
			candidates = append(candidates, candidateDoc{h.DocID, h.Path, h.Content, h.Extension, h.LineStart})
		}
	} else {
		hits, err := s.text.AllDocs(ctx, limit*50)
		if err != nil {
			return Result{}, err
		}
		for _, h := range hits {
			candidates = append(candidates, candidateDoc{h.DocID, h.Path, h.Content, h.Extension, h.LineStart})
		}
	}

	maxLines := opts.maxLines()
	var hits []Hit
	for _, c := range candidates {
		if !re.MatchString(c.content) {
			continue
		}
		sn := snippetForRegex(c.content, re, maxLines)
		hits = append(hits, Hit{
			DocID:     c.docID,
			Path:      c.path,
			Score:     99.9,
			MatchType: MatchText,
			Snippet:   sn.text,
			LineStart: c.lineStart + sn.offset,
			LineEnd:   c.lineStart + sn.offset + sn.lineCount - 1,
			Extension: c.extension,
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

// candidateDoc is the narrow view of a text-index document regex search
// needs, independent of whether it came from the BM25 prefilter or the
// full-document scan.
type candidateDoc struct {
	docID     string
	path      string
	content   string
	extension string
	lineStart int
}
