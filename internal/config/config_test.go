package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".codescope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  bm25_weight: 0.7\n  vector_weight: 0.3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0.7, cfg.Search.BM25Weight)
	require.Equal(t, 0.3, cfg.Search.VectorWeight)
	require.Equal(t, Default().Indexer.MaxFileSize, cfg.Indexer.MaxFileSize)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".codescope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [this is not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsLimitInversion(t *testing.T) {
	cfg := Default()
	cfg.Search.DefaultLimit = 500
	require.Error(t, cfg.Validate())
}

func TestFindProjectConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codescope.yaml"), []byte("version: 1\n"), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found := FindProjectConfig(nested)
	require.Equal(t, filepath.Join(root, ".codescope.yaml"), found)
}

func TestFindProjectConfigNoneFound(t *testing.T) {
	require.Equal(t, "", FindProjectConfig(t.TempDir()))
}
