// Package textindex wraps a Bleve v2 inverted index with a code-aware
// tokenizer and the whole-file document schema codescope stores: one
// document per indexed file, keyed by its workspace-relative doc_id.
package textindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/codescope/codescope/internal/cserrors"
	"github.com/codescope/codescope/internal/document"
)

const (
	codeTokenizerName = "code_tokenizer"
	codeAnalyzerName  = "code_analyzer"

	fieldContent   = "content"
	fieldPath      = "path"
	fieldWorkspace = "workspace"
	fieldExtension = "extension"
	fieldLineStart = "line_start"
	fieldLineEnd   = "line_end"
	fieldMTime     = "mtime"
	fieldSize      = "size"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
}

// Index is a persistent, single-writer/multi-reader BM25 text index over
// whole-file documents.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	config Config
	closed bool
}

// bleveDoc is the shape actually handed to bleve for indexing; its field
// names drive the mapping set up in newMapping.
type bleveDoc struct {
	Content   string `json:"content"`
	Path      string `json:"path"`
	Workspace string `json:"workspace"`
	Extension string `json:"extension"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	MTime     int64  `json:"mtime"`
	Size      int64  `json:"size"`
}

// validateIndexIntegrity reports whether an on-disk index directory looks
// usable before bleve.Open touches it, so a half-written index left behind
// by a killed process is detected and rebuilt rather than surfaced as an
// opaque open error.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Open opens the index at path, creating it if absent. An empty path opens
// an in-memory index, used by tests. A corrupted on-disk index is detected
// and rebuilt from scratch rather than returned as an open failure.
func Open(path string, cfg Config) (*Index, error) {
	indexMapping, err := newMapping()
	if err != nil {
		return nil, cserrors.Wrap(cserrors.IndexOpen, "build index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, cserrors.Wrap(cserrors.IndexOpen, "create index directory", mkErr)
		}

		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("text index corrupted, rebuilding", slog.String("path", path), slog.String("reason", validErr.Error()))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, cserrors.Wrap(cserrors.IndexOpen, "remove corrupted index", rmErr)
			}
		}

		idx, err = bleve.Open(path)
		switch {
		case err == bleve.ErrorIndexPathDoesNotExist:
			idx, err = bleve.New(path, indexMapping)
		case err != nil && isCorruptionError(err):
			slog.Warn("text index open failed, rebuilding", slog.String("path", path), slog.String("reason", err.Error()))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, cserrors.Wrap(cserrors.IndexOpen, "remove corrupted index", rmErr)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, cserrors.Wrap(cserrors.IndexOpen, "open or create text index", err)
	}

	return &Index{
		index:  idx,
		path:   path,
		config: cfg,
	}, nil
}

func newMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	// No stop-word filter is chained in here: content is matched both for
	// BM25 ranking and for the literal/regex grep-style prefilter in
	// pkg/searcher, and the latter promises a hit for any literal
	// substring of an indexed file's content. A stop-filtered analyzer
	// would silently empty the candidate set for a query like "err" or
	// "for" even though the file plainly contains it.
	if err := im.AddCustomAnalyzer(codeAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return nil, fmt.Errorf("add code analyzer: %w", err)
	}
	im.DefaultAnalyzer = codeAnalyzerName

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = codeAnalyzerName
	contentField.Store = true
	docMapping.AddFieldMappingsAt(fieldContent, contentField)

	keywordField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		return f
	}
	docMapping.AddFieldMappingsAt(fieldPath, keywordField())
	docMapping.AddFieldMappingsAt(fieldExtension, keywordField())

	storedNoIndex := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		f.Index = false
		return f
	}
	docMapping.AddFieldMappingsAt(fieldWorkspace, storedNoIndex())

	numField := func() *mapping.FieldMapping {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		f.Index = false
		return f
	}
	docMapping.AddFieldMappingsAt(fieldLineStart, numField())
	docMapping.AddFieldMappingsAt(fieldLineEnd, numField())
	docMapping.AddFieldMappingsAt(fieldMTime, numField())
	docMapping.AddFieldMappingsAt(fieldSize, numField())

	im.DefaultMapping = docMapping
	return im, nil
}

// Index bulk-inserts or replaces docs, keyed by DocID. Re-indexing a doc_id
// already present implicitly replaces it: bleve's batch Index call upserts.
func (idx *Index) Index(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return cserrors.New(cserrors.IndexWrite, "index is closed", nil)
	}

	batch := idx.index.NewBatch()
	for _, d := range docs {
		bd := bleveDoc{
			Content:   d.Content,
			Path:      d.Path,
			Workspace: d.Workspace,
			Extension: d.Extension,
			LineStart: d.LineStart,
			LineEnd:   d.LineEnd,
			MTime:     d.MTime,
			Size:      d.Size,
		}
		if err := batch.Index(d.DocID, bd); err != nil {
			return cserrors.Wrap(cserrors.IndexWrite, "stage document "+d.DocID, err)
		}
	}

	if err := idx.index.Batch(batch); err != nil {
		return cserrors.Wrap(cserrors.IndexWrite, "commit batch", err)
	}
	return nil
}

// DeleteByDocID removes documents by exact doc_id match (bleve's own
// document ID, so this is a direct batch delete).
func (idx *Index) DeleteByDocID(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return cserrors.New(cserrors.IndexWrite, "index is closed", nil)
	}

	batch := idx.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}
	if err := idx.index.Batch(batch); err != nil {
		return cserrors.Wrap(cserrors.IndexWrite, "commit delete batch", err)
	}
	return nil
}

// Search runs a lenient match query for the given tokens over content and
// returns up to limit hits ordered by BM25-style relevance.
func (idx *Index) Search(ctx context.Context, tokens []string, limit int) ([]Hit, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	q := bleve.NewMatchQuery(strings.Join(tokens, " "))
	q.SetField(fieldContent)
	return idx.run(ctx, q, limit)
}

// SearchPhrase runs a quoted-phrase match (used by the hybrid search's BM25
// branch, which wants literal phrase matching rather than OR-of-tokens).
func (idx *Index) SearchPhrase(ctx context.Context, phrase string, limit int) ([]Hit, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, nil
	}
	q := bleve.NewMatchPhraseQuery(phrase)
	q.SetField(fieldContent)
	return idx.run(ctx, q, limit)
}

// AllDocs returns every stored document, for the regex search fallback path
// when the pattern has no usable literal tokens to pre-filter with.
func (idx *Index) AllDocs(ctx context.Context, limit int) ([]Hit, error) {
	return idx.run(ctx, bleve.NewMatchAllQuery(), limit)
}

// GetByID exact-matches a single document by its doc_id, used by the hybrid
// search's vector branch to resolve path/content/lines for an ANN hit.
func (idx *Index) GetByID(ctx context.Context, docID string) (*Hit, error) {
	q := bleve.NewDocIDQuery([]string{docID})
	hits, err := idx.run(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}

func (idx *Index) run(ctx context.Context, q query.Query, limit int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, cserrors.New(cserrors.Search, "index is closed", nil)
	}
	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.IncludeLocations = true
	req.Fields = []string{fieldContent, fieldPath, fieldWorkspace, fieldExtension, fieldLineStart, fieldLineEnd, fieldMTime, fieldSize}

	result, err := idx.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Search, "execute query", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, hitFromMatch(h))
	}
	return hits, nil
}

func hitFromMatch(h *search.DocumentMatch) Hit {
	hit := Hit{
		DocID:        h.ID,
		Score:        h.Score,
		MatchedTerms: extractMatchedTerms(h),
	}
	hit.Content = fieldString(h.Fields, fieldContent)
	hit.Path = fieldString(h.Fields, fieldPath)
	hit.Workspace = fieldString(h.Fields, fieldWorkspace)
	hit.Extension = fieldString(h.Fields, fieldExtension)
	hit.LineStart = fieldInt(h.Fields, fieldLineStart)
	hit.LineEnd = fieldInt(h.Fields, fieldLineEnd)
	hit.MTime = int64(fieldInt(h.Fields, fieldMTime))
	hit.Size = int64(fieldInt(h.Fields, fieldSize))
	return hit
}

func fieldString(fields map[string]any, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func fieldInt(fields map[string]any, name string) int {
	v, ok := fields[name]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == fieldContent {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}
	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	return result
}

// AllIDs returns every doc_id currently in the index, for consistency
// checks against the vector index's mapping.
func (idx *Index) AllIDs(ctx context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, cserrors.New(cserrors.Search, "index is closed", nil)
	}

	count, _ := idx.index.DocCount()
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = nil

	result, err := idx.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Search, "list all doc ids", err)
	}

	ids := make([]string, len(result.Hits))
	for i, h := range result.Hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// Stats reports the document count currently stored.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return Stats{}
	}
	count, _ := idx.index.DocCount()
	return Stats{DocumentCount: int(count)}
}

// Close releases the underlying bleve index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	if idx.index != nil {
		return idx.index.Close()
	}
	return nil
}

func codeTokenizerConstructor(_ map[string]any, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCodeTokenizer{}, nil
}

type bleveCodeTokenizer struct{}

func (t *bleveCodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

