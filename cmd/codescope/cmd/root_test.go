package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "codescope")
	assert.Contains(t, output, "Usage:")
}

func TestRootCmdShowsVersion(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	err := cmd.Execute()

	require.NoError(t, err)
	output := buf.String()
	hasVersion := strings.Contains(output, "0.") || strings.Contains(output, "dev")
	assert.True(t, hasVersion, "version output should contain a version number or 'dev'")
	assert.Contains(t, output, "codescope")
}

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	subcommands := cmd.Commands()

	var names []string
	for _, sub := range subcommands {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "index")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "watch")
	assert.Contains(t, names, "workspace")
	assert.Contains(t, names, "version")
}

func TestRootCmdHasGlobalFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"data-dir", "workspace", "debug"} {
		flag := cmd.PersistentFlags().Lookup(name)
		assert.NotNil(t, flag, "expected persistent flag %q", name)
	}
}

func TestIndexCmdShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"index", "--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "index")
}

func TestSearchCmdShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"search", "--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "search")
}

func TestWatchCmdShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"watch", "--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "watch")
}

func TestWorkspaceInfoCmdShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"workspace", "info", "--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "workspace")
}
