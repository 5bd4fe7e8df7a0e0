package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	inner *HashEmbedder
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls += len(texts)
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int                { return c.inner.Dimensions() }
func (c *countingEmbedder) ModelName() string               { return c.inner.ModelName() }
func (c *countingEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }
func (c *countingEmbedder) Preload(ctx context.Context) error { return c.inner.Preload(ctx) }
func (c *countingEmbedder) Close() error                    { return c.inner.Close() }

func TestCachedEmbedderCachesRepeatedQuery(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(DefaultDimensions)}
	c := NewCachedEmbedderWithDefaults(inner)

	_, err := c.Embed(context.Background(), "select * from users")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "select * from users")
	require.NoError(t, err)

	require.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderBatchReusesCachedEntries(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(DefaultDimensions)}
	c := NewCachedEmbedderWithDefaults(inner)

	_, err := c.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	inner.calls = 0

	results, err := c.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderEmptyBatchReturnsEmpty(t *testing.T) {
	c := NewCachedEmbedderWithDefaults(NewHashEmbedder(DefaultDimensions))
	results, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestCachedEmbedderPassthroughMethods(t *testing.T) {
	inner := NewHashEmbedder(DefaultDimensions)
	c := NewCachedEmbedderWithDefaults(inner)

	require.Equal(t, inner.Dimensions(), c.Dimensions())
	require.Equal(t, inner.ModelName(), c.ModelName())
	require.True(t, c.Available(context.Background()))
	require.NoError(t, c.Preload(context.Background()))
	require.Same(t, inner, c.Inner())
	require.NoError(t, c.Close())
	require.False(t, c.Available(context.Background()))
}

func TestCachedEmbedderDefaultsCacheSizeWhenNonPositive(t *testing.T) {
	c := NewCachedEmbedder(NewHashEmbedder(DefaultDimensions), 0)
	require.NotNil(t, c.cache)
}

func TestCachedEmbedderStatsTracksHitsAndMisses(t *testing.T) {
	c := NewCachedEmbedderWithDefaults(NewHashEmbedder(DefaultDimensions))

	_, err := c.Embed(context.Background(), "gamma")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "gamma")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "delta")
	require.NoError(t, err)

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(2), stats.Misses)
}
