package searcher

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codescope/codescope/internal/textindex"
)

// branchHit is one ranked result from either the BM25 or vector branch,
// before RRF fusion combines them.
type branchHit struct {
	docID string
	rank  int // 0-indexed
}

// Hybrid runs the BM25 phrase branch and the vector ANN branch and fuses
// them with Reciprocal Rank Fusion. If the vector index is empty or no
// embedder is configured, it degrades to BM25-only.
func (s *Searcher) Hybrid(ctx context.Context, query string, limit int, opts Options) (Result, error) {
	start := time.Now()
	fetch := limit * 3

	var bm25Branch []branchHit
	var vectorBranch []branchHit
	docs := make(map[string]textindex.Hit)
	var docsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := s.text.SearchPhrase(gctx, query, fetch)
		if err != nil {
			return err
		}
		docsMu.Lock()
		defer docsMu.Unlock()
		for i, h := range hits {
			bm25Branch = append(bm25Branch, branchHit{docID: h.DocID, rank: i})
			docs[h.DocID] = h
		}
		return nil
	})

	if s.semanticAvailable() {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, query)
			if err != nil {
				return err
			}
			results, err := s.vectors.Search(gctx, vec, fetch)
			if err != nil {
				return err
			}
			for i, r := range results {
				vectorBranch = append(vectorBranch, branchHit{docID: r.DocID, rank: i})
				docsMu.Lock()
				_, ok := docs[r.DocID]
				docsMu.Unlock()
				if !ok {
					doc, err := s.text.GetByID(gctx, r.DocID)
					if err == nil && doc != nil {
						docsMu.Lock()
						docs[r.DocID] = *doc
						docsMu.Unlock()
					}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	fused := fuseRRF(bm25Branch, vectorBranch, s.bm25Weight, s.vectorWeight)

	terms := strings.Fields(query)
	maxLines := opts.maxLines()

	hits := make([]Hit, 0, len(fused))
	for _, f := range fused {
		doc, ok := docs[f.docID]
		if !ok {
			continue
		}
		sn := snippetForTerms(doc.Content, terms, maxLines)
		hits = append(hits, Hit{
			DocID:     doc.DocID,
			Path:      doc.Path,
			Score:     displayScore(f.score),
			MatchType: f.matchType,
			Snippet:   sn.text,
			LineStart: doc.LineStart + sn.offset,
			LineEnd:   doc.LineStart + sn.offset + sn.lineCount - 1,
			Extension: doc.Extension,
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

// fusedEntry tracks one document's accumulated RRF score and which
// branches contributed to it.
type fusedEntry struct {
	docID     string
	score     float64
	matchType MatchType
	inText    bool
	inVector  bool
}

// fuseRRF combines two branch ranking lists with Reciprocal Rank Fusion:
// score(d) = Σ weight_i / (K + rank_i + 1), summed across whichever
// branches mention d, then sorted descending.
func fuseRRF(bm25Branch, vectorBranch []branchHit, bm25Weight, vectorWeight float64) []fusedEntry {
	entries := make(map[string]*fusedEntry)

	for _, h := range bm25Branch {
		e := entries[h.docID]
		if e == nil {
			e = &fusedEntry{docID: h.docID}
			entries[h.docID] = e
		}
		e.score += bm25Weight / float64(rrfK+h.rank+1)
		e.inText = true
	}
	for _, h := range vectorBranch {
		e := entries[h.docID]
		if e == nil {
			e = &fusedEntry{docID: h.docID}
			entries[h.docID] = e
		}
		e.score += vectorWeight / float64(rrfK+h.rank+1)
		e.inVector = true
	}

	result := make([]fusedEntry, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.inText && e.inVector:
			e.matchType = MatchHybrid
		case e.inVector:
			e.matchType = MatchSemantic
		default:
			e.matchType = MatchText
		}
		result = append(result, *e)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].score != result[j].score {
			return result[i].score > result[j].score
		}
		return result[i].docID < result[j].docID
	})

	return result
}
