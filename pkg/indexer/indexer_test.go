package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/embed"
	"github.com/codescope/codescope/internal/textindex"
	"github.com/codescope/codescope/internal/vectorindex"
	"github.com/codescope/codescope/internal/walker"
	"github.com/codescope/codescope/internal/workspace"
)

func newTestIndexer(t *testing.T, root string, withVectors bool) (*Indexer, workspace.Workspace) {
	t.Helper()

	dataDir := t.TempDir()
	ws, err := workspace.New(root, dataDir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(ws.IndexDir, 0o755))

	w, err := walker.New()
	require.NoError(t, err)

	text, err := textindex.Open("", textindex.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = text.Close() })

	cfg := config.Default().Indexer
	cfg.MaxFileSize = 1 << 20

	var vectors *vectorindex.Store
	var embedder embed.Embedder
	if withVectors {
		embedder = embed.NewHashEmbedder(cfg.EmbeddingDimensions)
		vectors = vectorindex.New(cfg.EmbeddingDimensions)
	}

	return New(ws, w, text, vectors, embedder, ws.IndexDir, cfg), ws
}

func writeSourceFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexAllIndexesWalkedFiles(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeSourceFile(t, root, "util.go", "package main\n\nfunc helper() {}\n")

	ix, ws := newTestIndexer(t, root, false)

	report, err := ix.IndexAll(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, report.FilesIndexed)
	require.Equal(t, 0, report.Errors)

	require.True(t, ws.IsIndexed())
	meta, err := ws.ReadMeta()
	require.NoError(t, err)
	require.Equal(t, 2, meta.FilesIndexed)
	require.False(t, meta.Semantic)
}

func TestIndexAllWithEmbeddingsPopulatesVectorStore(t *testing.T) {
	root := t.TempDir()
	content := ""
	for i := 0; i < 10; i++ {
		content += "func handler" + string(rune('a'+i)) + "() { doSomethingUseful() }\n"
	}
	writeSourceFile(t, root, "handlers.go", content)

	ix, ws := newTestIndexer(t, root, true)

	report, err := ix.IndexAll(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 1, report.FilesIndexed)
	require.Equal(t, 1, ix.vectors.Count())

	meta, err := ws.ReadMeta()
	require.NoError(t, err)
	require.True(t, meta.Semantic)
}

func TestIndexAllSkipsEmptyWithoutEmbeddingGate(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "tiny.go", "//x")

	ix, _ := newTestIndexer(t, root, true)

	_, err := ix.IndexAll(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 0, ix.vectors.Count())
}

func TestIndexFileReplacesDocument(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "a.go", "package main\n")
	ix, _ := newTestIndexer(t, root, false)
	_, err := ix.IndexAll(context.Background(), false)
	require.NoError(t, err)

	writeSourceFile(t, root, "a.go", "package main\n\nfunc updated() {}\n")
	require.NoError(t, ix.IndexFile(context.Background(), "a.go", false))

	hit, err := ix.text.GetByID(context.Background(), "a.go")
	require.NoError(t, err)
	require.Contains(t, hit.Content, "updated")
}

func TestDeleteFileRemovesDocument(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "a.go", "package main\n")
	ix, _ := newTestIndexer(t, root, false)
	_, err := ix.IndexAll(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, ix.DeleteFile(context.Background(), "a.go"))

	hit, err := ix.text.GetByID(context.Background(), "a.go")
	require.NoError(t, err)
	require.Nil(t, hit)
}

func TestEligibleForEmbeddingRespectsByteGate(t *testing.T) {
	require.False(t, eligibleForEmbedding("tiny"))
	require.False(t, eligibleForEmbedding(string(make([]byte, 60_000))))
	require.True(t, eligibleForEmbedding(string(make([]byte, 100))))
}

func TestTruncateAtRuneBoundaryKeepsValidUTF8(t *testing.T) {
	s := "日本語のテキストです"
	truncated := truncateAtRuneBoundary(s, 5)
	require.LessOrEqual(t, len(truncated), 5)
	for _, r := range truncated {
		require.NotEqual(t, rune(0xFFFD), r)
	}
}
