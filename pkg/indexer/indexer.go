package indexer

import (
	"context"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/cserrors"
	"github.com/codescope/codescope/internal/document"
	"github.com/codescope/codescope/internal/embed"
	"github.com/codescope/codescope/internal/textindex"
	"github.com/codescope/codescope/internal/vectorindex"
	"github.com/codescope/codescope/internal/walker"
	"github.com/codescope/codescope/internal/workspace"
)

// Embedding gate constants, applied during both the bulk and incremental
// passes before any content reaches the embedder.
const (
	minEmbedContentBytes = 50
	maxEmbedContentBytes = 50_000
	// embedBatchSize is the fallback used when config.IndexerConfig's
	// EmbeddingBatchSize is unset.
	embedBatchSize = 64
	embedTruncateBytes   = 4096

	// textFlushBatch bounds how many documents accumulate in memory before
	// being committed to the text index during a bulk pass.
	textFlushBatch = 200
)

// Report summarizes one completed index pass.
type Report struct {
	FilesIndexed int
	Skipped      int
	Errors       int
	// Dispositions carries the walker's own per-path accounting
	// (visited_paths, counts by disposition) for diagnostics.
	Dispositions walker.Stats
}

// Indexer orchestrates the text and (optionally) vector indexes for one
// workspace: the bulk pass that (re)builds both from a full walk, the
// incremental pass the file watcher drives per changed file, and deletion.
type Indexer struct {
	ws       workspace.Workspace
	walker   *walker.Walker
	text     *textindex.Index
	vectors  *vectorindex.Store
	embedder embed.Embedder
	cfg      config.IndexerConfig
	vecDir   string
}

// New constructs an Indexer. embedder and vectors may both be nil, in which
// case semantic indexing is unavailable and withEmbeddings is always
// treated as false.
func New(ws workspace.Workspace, w *walker.Walker, text *textindex.Index, vectors *vectorindex.Store, embedder embed.Embedder, vecDir string, cfg config.IndexerConfig) *Indexer {
	return &Indexer{
		ws:       ws,
		walker:   w,
		text:     text,
		vectors:  vectors,
		embedder: embedder,
		cfg:      cfg,
		vecDir:   vecDir,
	}
}

// semanticAvailable reports whether this Indexer has the components needed
// to produce embeddings at all.
func (ix *Indexer) semanticAvailable() bool {
	return ix.embedder != nil && ix.vectors != nil
}

// IndexAll performs the bulk pass: clears the vector index, walks the
// workspace re-inserting every document into the text index, optionally
// embeds eligible content into the vector index, and records
// workspace.json. withEmbeddings is downgraded to false if no embedder is
// configured.
func (ix *Indexer) IndexAll(ctx context.Context, withEmbeddings bool) (Report, error) {
	withEmbeddings = withEmbeddings && ix.semanticAvailable()

	if ix.semanticAvailable() {
		ix.vectors.Clear()
	}

	results, stats, err := ix.walker.Walk(ctx, walker.Options{
		Root:             ix.ws.Root,
		MaxFileSize:      ix.cfg.MaxFileSize,
		RespectGitignore: ix.cfg.RespectGitignore,
		FollowSymlinks:   ix.cfg.FollowSymlinks,
	})
	if err != nil {
		return Report{}, err
	}

	var report Report
	var pending []document.Document
	type embedCandidate struct {
		docID   string
		content string
	}
	var candidates []embedCandidate

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := ix.text.Index(ctx, pending); err != nil {
			return err
		}
		pending = pending[:0]
		return nil
	}

	for res := range results {
		if res.Error != nil {
			report.Errors++
			continue
		}
		doc, err := document.Build(ix.ws.Root, res.File.Path, ix.cfg.MaxFileSize)
		if err != nil {
			if cserrors.Is(err, cserrors.FileTooLarge) {
				report.Skipped++
				continue
			}
			report.Errors++
			continue
		}
		pending = append(pending, doc)
		report.FilesIndexed++

		if withEmbeddings && eligibleForEmbedding(doc.Content) {
			candidates = append(candidates, embedCandidate{docID: doc.DocID, content: doc.Content})
		}

		if len(pending) >= textFlushBatch {
			if err := flush(); err != nil {
				return report, err
			}
		}
	}
	if err := flush(); err != nil {
		return report, err
	}
	report.Dispositions = *stats

	if withEmbeddings {
		batchSize := ix.cfg.EmbeddingBatchSize
		if batchSize <= 0 {
			batchSize = embedBatchSize
		}
		for start := 0; start < len(candidates); start += batchSize {
			end := start + batchSize
			if end > len(candidates) {
				end = len(candidates)
			}
			batch := candidates[start:end]

			texts := make([]string, len(batch))
			ids := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = truncateAtRuneBoundary(c.content, embedTruncateBytes)
				ids[i] = c.docID
			}

			vectors, err := ix.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				report.Errors += len(batch)
				continue
			}
			if err := ix.vectors.Add(ctx, ids, vectors); err != nil {
				return report, err
			}
		}
		if err := ix.vectors.Save(ix.vecDir); err != nil {
			return report, err
		}
	}

	meta := workspace.Meta{
		Workspace:    ix.ws.Root,
		IndexedAt:    time.Now().UTC(),
		FilesIndexed: report.FilesIndexed,
		Semantic:     withEmbeddings,
	}
	if err := ix.ws.WriteMeta(meta); err != nil {
		return report, err
	}

	return report, nil
}

// IndexFile performs the incremental pass for one changed file: replace its
// text-index document, and, if withEmbeddings and the content is eligible,
// recompute and persist its embedding.
func (ix *Indexer) IndexFile(ctx context.Context, relPath string, withEmbeddings bool) error {
	withEmbeddings = withEmbeddings && ix.semanticAvailable()

	doc, err := document.Build(ix.ws.Root, relPath, ix.cfg.MaxFileSize)
	if err != nil {
		return err
	}
	if err := ix.text.DeleteByDocID(ctx, []string{doc.DocID}); err != nil {
		return err
	}
	if err := ix.text.Index(ctx, []document.Document{doc}); err != nil {
		return err
	}

	if withEmbeddings && eligibleForEmbedding(doc.Content) {
		text := truncateAtRuneBoundary(doc.Content, embedTruncateBytes)
		vec, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return err
		}
		if err := ix.vectors.Add(ctx, []string{doc.DocID}, [][]float32{vec}); err != nil {
			return err
		}
		if err := ix.vectors.Save(ix.vecDir); err != nil {
			return err
		}
	}

	return nil
}

// DeleteFile removes relPath's document from the text index. The vector
// index is left untouched: a stale vector for a doc_id no longer present in
// the text index has no live text hit to pair with during hybrid fusion, so
// it is naturally filtered out rather than needing an immediate prune.
func (ix *Indexer) DeleteFile(ctx context.Context, relPath string) error {
	return ix.text.DeleteByDocID(ctx, []string{filepath.ToSlash(relPath)})
}

// eligibleForEmbedding reports whether content's byte length falls within
// the gate a bulk or incremental pass applies before spending an embedding
// call on it.
func eligibleForEmbedding(content string) bool {
	n := len(content)
	return n >= minEmbedContentBytes && n <= maxEmbedContentBytes
}

// truncateAtRuneBoundary truncates s to at most maxBytes bytes, backing off
// to the nearest earlier UTF-8 rune boundary so the result is always valid
// UTF-8.
func truncateAtRuneBoundary(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
