package searcher

import (
	"errors"

	"github.com/codescope/codescope/internal/embed"
	"github.com/codescope/codescope/internal/textindex"
	"github.com/codescope/codescope/internal/vectorindex"
)

// ErrEmptyQuery names the empty-query condition. Literal and Regex do not
// return it: Literal answers a query with no usable tokens with an empty
// Result and a nil error.
var ErrEmptyQuery = errors.New("empty query")

// rrfK is Reciprocal Rank Fusion's smoothing constant.
const rrfK = 60

// DefaultMaxLines bounds a snippet's line count when the caller doesn't
// specify one.
const DefaultMaxLines = 5

// displayScale converts a raw fused or normalized score into the [0, 100)
// percentage codescope displays: RRF scores peak near 2/(K+1) ≈ 0.033, so
// scaling by 3000 spreads that range usefully across the display band.
const displayScale = 3000

// MatchType classifies which retrieval branch(es) produced a hybrid hit.
type MatchType string

const (
	MatchText     MatchType = "text"
	MatchSemantic MatchType = "semantic"
	MatchHybrid   MatchType = "hybrid"
)

// Hit is one ranked search result.
type Hit struct {
	DocID     string
	Path      string
	Score     float64
	MatchType MatchType
	Snippet   string
	LineStart int
	LineEnd   int
	IsChunk   bool
	Extension string
}

// Result is the outcome of one search call.
type Result struct {
	Hits         []Hit
	Total        int
	QueryTimeMS  int64
	TextHits     int
	SemanticHits int
}

// Filter narrows results after retrieval. Zero value matches everything.
type Filter struct {
	// Extension, if non-empty, must case-insensitively equal a hit's
	// extension exactly.
	Extension string
	// PathPatterns, if non-empty, require the hit's path to start with or
	// contain at least one of the given substrings.
	PathPatterns []string
}

// Options tunes one search call beyond its query string and limit.
type Options struct {
	Filter   Filter
	MaxLines int
}

func (o Options) maxLines() int {
	if o.MaxLines > 0 {
		return o.MaxLines
	}
	return DefaultMaxLines
}

// Searcher answers literal, regex, and hybrid queries against one
// workspace's text and (optionally) vector index.
type Searcher struct {
	text     *textindex.Index
	vectors  *vectorindex.Store
	embedder embed.Embedder
	bm25Weight     float64
	vectorWeight   float64
}

// New constructs a Searcher. vectors and embedder may both be nil, in
// which case Hybrid degrades to BM25-only (as the spec requires when the
// vector index is empty or unavailable).
func New(text *textindex.Index, vectors *vectorindex.Store, embedder embed.Embedder, bm25Weight, vectorWeight float64) *Searcher {
	return &Searcher{
		text:         text,
		vectors:      vectors,
		embedder:     embedder,
		bm25Weight:   bm25Weight,
		vectorWeight: vectorWeight,
	}
}

func (s *Searcher) semanticAvailable() bool {
	return s.vectors != nil && s.embedder != nil && s.vectors.Count() > 0
}

// displayScore maps a raw score to codescope's [0, 100) display percentage.
func displayScore(raw float64) float64 {
	v := raw * displayScale
	if v > 99.9 {
		v = 99.9
	}
	return v
}
