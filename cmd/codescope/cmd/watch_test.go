package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmdIndexesNewFile(t *testing.T) {
	testDir := t.TempDir()
	createTestProject(t, testDir)
	dataDir := t.TempDir()
	indexTestProject(t, testDir, dataDir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	watchCmd := NewRootCmd()
	watchBuf := new(bytes.Buffer)
	watchCmd.SetOut(watchBuf)
	watchCmd.SetErr(watchBuf)
	watchCmd.SetArgs([]string{"watch", testDir, "--data-dir", dataDir, "--no-semantic"})

	done := make(chan error, 1)
	go func() { done <- watchCmd.ExecuteContext(ctx) }()

	// Give the watcher time to register its directory watches before the
	// new file is created.
	time.Sleep(200 * time.Millisecond)

	newFile := filepath.Join(testDir, "extra.go")
	content := "package main\n\nconst widgetFactoryToken = \"unique-marker-token\"\n"
	require.NoError(t, os.WriteFile(newFile, []byte(content), 0o644))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch command did not stop after context cancellation")
	}

	searchCmd := NewRootCmd()
	searchBuf := new(bytes.Buffer)
	searchCmd.SetOut(searchBuf)
	searchCmd.SetErr(searchBuf)
	searchCmd.SetArgs([]string{"search", "unique-marker-token", "--mode", "literal", "--data-dir", dataDir, "--workspace", testDir})

	require.NoError(t, searchCmd.Execute())
	assert.Contains(t, searchBuf.String(), "extra.go")
}
