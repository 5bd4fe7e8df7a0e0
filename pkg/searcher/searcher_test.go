package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/document"
	"github.com/codescope/codescope/internal/embed"
	"github.com/codescope/codescope/internal/textindex"
	"github.com/codescope/codescope/internal/vectorindex"
)

func doc(id, path, content string) document.Document {
	return document.Document{
		DocID:     id,
		Path:      path,
		Workspace: "/ws",
		Content:   content,
		Extension: "go",
		LineStart: 1,
		LineEnd:   len(content),
	}
}

func newTestSearcher(t *testing.T, withVectors bool) *Searcher {
	t.Helper()
	text, err := textindex.Open("", textindex.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = text.Close() })

	docs := []document.Document{
		doc("auth.go", "internal/auth.go", "func authenticateUser(token string) error {\n\treturn validateToken(token)\n}\n"),
		doc("math.go", "internal/math.go", "func add(a, b int) int {\n\treturn a + b\n}\n"),
		doc("logger.go", "internal/logger.go", "func logError(err error) {\n\tfmt.Println(err)\n}\n"),
	}
	require.NoError(t, text.Index(context.Background(), docs))

	var vectors *vectorindex.Store
	var embedder embed.Embedder
	if withVectors {
		embedder = embed.NewHashEmbedder(embed.DefaultDimensions)
		vectors = vectorindex.New(embed.DefaultDimensions)
		for _, d := range docs {
			vec, err := embedder.Embed(context.Background(), d.Content)
			require.NoError(t, err)
			require.NoError(t, vectors.Add(context.Background(), []string{d.DocID}, [][]float32{vec}))
		}
	}

	return New(text, vectors, embedder, 0.4, 0.6)
}

func TestLiteralFindsSubstringMatch(t *testing.T) {
	s := newTestSearcher(t, false)
	res, err := s.Literal(context.Background(), "validateToken", 10, Options{})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	require.Equal(t, "auth.go", res.Hits[0].DocID)
	require.Equal(t, MatchText, res.Hits[0].MatchType)
}

func TestLiteralEmptyQueryReturnsEmptyResult(t *testing.T) {
	s := newTestSearcher(t, false)
	res, err := s.Literal(context.Background(), "   ", 10, Options{})
	require.NoError(t, err)
	require.Empty(t, res.Hits)
}

func TestLiteralFindsStopWordOnlyQuery(t *testing.T) {
	// "err" and "func" are common-keyword entries in DefaultCodeStopWords;
	// a literal search still has to surface every file whose content
	// contains them as a token.
	s := newTestSearcher(t, false)

	res, err := s.Literal(context.Background(), "err", 10, Options{})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	require.Equal(t, "logger.go", res.Hits[0].DocID)

	res, err = s.Literal(context.Background(), "func", 10, Options{})
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
}

func TestLiteralAppliesExtensionFilter(t *testing.T) {
	s := newTestSearcher(t, false)
	res, err := s.Literal(context.Background(), "func", 10, Options{Filter: Filter{Extension: "py"}})
	require.NoError(t, err)
	require.Empty(t, res.Hits)
}

func TestRegexMatchesPattern(t *testing.T) {
	s := newTestSearcher(t, false)
	res, err := s.Regex(context.Background(), `log\w+`, 10, Options{})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	require.Equal(t, "logger.go", res.Hits[0].DocID)
}

func TestRegexInvalidPatternErrors(t *testing.T) {
	s := newTestSearcher(t, false)
	_, err := s.Regex(context.Background(), `(unclosed`, 10, Options{})
	require.Error(t, err)
}

func TestRegexFallsBackToFullScanWithoutLiteralTokens(t *testing.T) {
	s := newTestSearcher(t, false)
	res, err := s.Regex(context.Background(), `[a-z]{2}`, 10, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
}

func TestHybridDegradesToTextOnlyWithoutVectors(t *testing.T) {
	s := newTestSearcher(t, false)
	res, err := s.Hybrid(context.Background(), "validateToken", 10, Options{})
	require.NoError(t, err)
	for _, h := range res.Hits {
		require.Equal(t, MatchText, h.MatchType)
	}
}

func TestHybridWithVectorsFindsSemanticMatch(t *testing.T) {
	s := newTestSearcher(t, true)
	res, err := s.Hybrid(context.Background(), "authenticate user with token", 10, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
}

func TestFuseRRFRanksHybridAboveSingleBranch(t *testing.T) {
	bm25 := []branchHit{{docID: "a", rank: 0}, {docID: "b", rank: 1}}
	vector := []branchHit{{docID: "a", rank: 0}}
	fused := fuseRRF(bm25, vector, 0.4, 0.6)
	require.Equal(t, "a", fused[0].docID)
	require.Equal(t, MatchHybrid, fused[0].matchType)
}

func TestSnippetForTermsReturnsWindowAroundMatch(t *testing.T) {
	content := "line1\nline2\nline3\nneedle here\nline5\nline6"
	sn := snippetForTerms(content, []string{"needle"}, 3)
	require.Contains(t, sn.text, "needle here")
	require.Equal(t, 1, sn.offset)
}

func TestSnippetForTermsNoMatchReturnsHead(t *testing.T) {
	content := "a\nb\nc\nd\ne"
	sn := snippetForTerms(content, []string{"zzz"}, 2)
	require.Equal(t, "a\nb", sn.text)
	require.Equal(t, 0, sn.offset)
}

func TestDisplayScoreClampsAt99Point9(t *testing.T) {
	require.Equal(t, 99.9, displayScore(1.0))
	require.InDelta(t, 0.0, displayScore(0), 1e-9)
}
