package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultEmbeddingCacheSize bounds CachedEmbedder's LRU when the caller
// doesn't pick a size explicitly.
const DefaultEmbeddingCacheSize = 1000

// CacheStats is a point-in-time snapshot of a CachedEmbedder's hit/miss
// counts, useful for deciding whether a workload's repeat-query rate makes
// the cache worth its memory (watch mode re-embeds changed files far less
// often than a `search` session re-runs near-identical queries).
type CacheStats struct {
	Hits   int64
	Misses int64
}

// CachedEmbedder memoizes an Embedder's output by (text, model) so that
// repeated queries against the same workspace session — the common case
// for interactive search — skip recomputation entirely.
type CachedEmbedder struct {
	inner  Embedder
	cache  *lru.Cache[string, []float32]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedEmbedder wraps inner with an LRU of the given capacity
// (DefaultEmbeddingCacheSize if cacheSize <= 0).
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

// NewCachedEmbedderWithDefaults wraps inner with DefaultEmbeddingCacheSize.
func NewCachedEmbedderWithDefaults(inner Embedder) *CachedEmbedder {
	return NewCachedEmbedder(inner, DefaultEmbeddingCacheSize)
}

// digestKey turns (text, model) into a fixed-length cache key. Hashing
// rather than using the raw text keeps the LRU's key comparisons cheap
// for the long file-content strings the indexer embeds, and folds the
// model name in so swapping embedders mid-process can't return a stale
// vector computed under a different model.
func digestKey(text, model string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(model))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) lookup(text string) ([]float32, bool) {
	vec, ok := c.cache.Get(digestKey(text, c.inner.ModelName()))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return vec, ok
}

func (c *CachedEmbedder) store(text string, vec []float32) {
	c.cache.Add(digestKey(text, c.inner.ModelName()), vec)
}

// Embed returns the cached vector for text if present, otherwise computes
// it through inner and caches the result before returning.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.lookup(text); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(text, vec)
	return vec, nil
}

// EmbedBatch resolves each text against the cache independently, then
// sends only the misses to inner.EmbedBatch in one call — a batch that's
// mostly cache hits (e.g. re-indexing after a small edit) pays for a
// single small round trip instead of one per changed file.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.lookup(text); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	computed, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		results[idx] = computed[j]
		c.store(missTexts[j], computed[j])
	}
	return results, nil
}

// Dimensions passes through to inner.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName passes through to inner.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Available passes through to inner.
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close closes inner. The cache itself holds no resources to release.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }

// Inner returns the wrapped Embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }

// Preload passes through to inner.
func (c *CachedEmbedder) Preload(ctx context.Context) error { return c.inner.Preload(ctx) }

// Stats reports the cache's cumulative hit/miss counts since construction.
func (c *CachedEmbedder) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
