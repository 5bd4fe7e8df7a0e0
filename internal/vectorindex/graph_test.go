package vectorindex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeProducesUnitVector(t *testing.T) {
	n := normalize([]float32{3, 4, 0})
	mag := math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]))
	require.InDelta(t, 1.0, mag, 1e-6)
}

func TestNormalizeHandlesZeroVector(t *testing.T) {
	n := normalize([]float32{0, 0, 0})
	require.Equal(t, []float32{0, 0, 0}, n)
}

func TestGraphInsertAndSearchFindsExactMatch(t *testing.T) {
	g := newGraph()
	for _, v := range [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.7, 0.7, 0}} {
		g.insert(normalize(v))
	}

	results := g.search(normalize([]float32{1, 0, 0}), 1, nil)
	require.Len(t, results, 1)
	require.Equal(t, uint32(0), results[0].ordinal)
	require.InDelta(t, 0.0, results[0].distance, 1e-5)
}

func TestGraphSearchSkipsExcludedOrdinals(t *testing.T) {
	g := newGraph()
	for _, v := range [][]float32{{1, 0}, {0.99, 0.01}, {0, 1}} {
		g.insert(normalize(v))
	}

	skip := map[uint32]bool{0: true}
	results := g.search(normalize([]float32{1, 0}), 1, skip)
	require.Len(t, results, 1)
	require.NotEqual(t, uint32(0), results[0].ordinal)
}

func TestGraphSearchOnEmptyGraphReturnsNil(t *testing.T) {
	g := newGraph()
	require.Nil(t, g.search([]float32{1, 0}, 5, nil))
}

func TestAssignLevelNeverExceedsMaxLayer(t *testing.T) {
	g := newGraph()
	for i := 0; i < 500; i++ {
		require.LessOrEqual(t, g.assignLevel(), maxLayer)
	}
}
