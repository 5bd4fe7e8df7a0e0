package vectorindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/cserrors"
)

func vec(vals ...float32) []float32 { return vals }

func TestAddAndSearchReturnsClosestFirst(t *testing.T) {
	s := New(3)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a", "b", "c"}, [][]float32{
		vec(1, 0, 0),
		vec(0, 1, 0),
		vec(0.9, 0.1, 0),
	}))

	results, err := s.Search(ctx, vec(1, 0, 0), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].DocID)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	s := New(3)
	err := s.Add(context.Background(), []string{"a"}, [][]float32{vec(1, 0)})
	require.Error(t, err)
	require.Equal(t, cserrors.DimensionMismatch, cserrors.KindOf(err))
}

func TestDeleteTombstonesAndExcludesFromSearch(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{vec(1, 0), vec(0, 1)}))
	require.NoError(t, s.Delete(ctx, []string{"a"}))

	require.False(t, s.Contains("a"))
	require.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, vec(1, 0), 5)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, "a", r.DocID)
	}
}

func TestReindexingSameDocIDReplacesVector(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{vec(1, 0)}))
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{vec(0, 1)}))

	require.Equal(t, 1, s.Count())
	results, err := s.Search(ctx, vec(0, 1), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].DocID)
}

func TestClearResetsStore(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{vec(1, 0)}))
	s.Clear()
	require.Equal(t, 0, s.Count())
	require.Empty(t, s.AllIDs())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(3)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a", "b", "c"}, [][]float32{
		vec(1, 0, 0),
		vec(0, 1, 0),
		vec(0, 0, 1),
	}))
	require.NoError(t, s.Save(dir))
	require.True(t, Exists(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Count())

	results, err := loaded.Search(ctx, vec(1, 0, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].DocID)
}

func TestLoadLegacyVectorsJSON(t *testing.T) {
	dir := t.TempDir()
	data := `{"dimension":2,"vectors":[{"doc_id":"a","vector":[1,0]},{"doc_id":"b","vector":[0,1]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.json"), []byte(data), 0o644))

	require.True(t, Exists(dir))
	s, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 2, s.Count())

	results, err := s.Search(context.Background(), vec(1, 0), 1)
	require.NoError(t, err)
	require.Equal(t, "a", results[0].DocID)
}

func TestExistsFalseWhenNoIndexPresent(t *testing.T) {
	dir := t.TempDir()
	require.False(t, Exists(dir))
}
