package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsStableAndLowercaseHex(t *testing.T) {
	a := Hash("/home/user/project")
	b := Hash("/home/user/project")
	require.Equal(t, a, b)
	require.Len(t, a, 16)
	for _, r := range a {
		require.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'))
	}
}

func TestHashDiffersByPath(t *testing.T) {
	require.NotEqual(t, Hash("/a"), Hash("/b"))
}

func TestNewComputesIndexDir(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root, "/data")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/data", "indexes", ws.ID), ws.IndexDir)
}

func TestIsIndexedRequiresWorkspaceJSON(t *testing.T) {
	root := t.TempDir()
	dataDir := t.TempDir()
	ws, err := New(root, dataDir)
	require.NoError(t, err)
	require.False(t, ws.IsIndexed())

	require.NoError(t, os.MkdirAll(ws.IndexDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.IndexDir, "workspace.json"), []byte("{}"), 0o644))
	require.True(t, ws.IsIndexed())
}

func TestResolveClimbsToIndexedAncestor(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	dataDir := t.TempDir()

	rootWs, err := New(root, dataDir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(rootWs.IndexDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootWs.IndexDir, "workspace.json"), []byte("{}"), 0o644))

	resolved, err := Resolve(nested, dataDir, "")
	require.NoError(t, err)
	require.Equal(t, rootWs.Root, resolved.Root)
}

func TestResolveFailsWhenNothingIndexed(t *testing.T) {
	_, err := Resolve(t.TempDir(), t.TempDir(), "")
	require.Error(t, err)
}

func TestResolveOverrideMustBeIndexed(t *testing.T) {
	_, err := Resolve(t.TempDir(), t.TempDir(), t.TempDir())
	require.Error(t, err)
}

func TestWriteMetaThenReadMetaRoundTrips(t *testing.T) {
	dataDir := t.TempDir()
	root := t.TempDir()
	ws, err := New(root, dataDir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(ws.IndexDir, 0o755))

	meta := Meta{Workspace: ws.Root, FilesIndexed: 42, Semantic: true}
	require.NoError(t, ws.WriteMeta(meta))
	require.True(t, ws.IsIndexed())

	got, err := ws.ReadMeta()
	require.NoError(t, err)
	require.Equal(t, meta.Workspace, got.Workspace)
	require.Equal(t, meta.FilesIndexed, got.FilesIndexed)
	require.True(t, got.Semantic)
}
