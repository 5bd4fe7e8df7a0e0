// Package embed provides the embedding-service contract codescope's vector
// index depends on: embed/embed_batch returning fixed-dimension unit
// vectors, plus an LRU cache in front of any implementation.
package embed

import (
	"context"
	"math"
)

// DefaultDimensions is the vector width produced by the default embedder.
const DefaultDimensions = 384

// Embedder generates vector embeddings for text. Implementations must
// return unit-normalized vectors of a fixed Dimensions() width.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	// Preload warms the embedder (e.g. loading a model) before the first
	// real request; a no-op for embedders with nothing to warm.
	Preload(ctx context.Context) error
	Close() error
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}
	norm := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / norm)
	}
	return out
}
