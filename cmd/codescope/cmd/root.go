// Package cmd provides the CLI commands for codescope.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/logging"
	"github.com/codescope/codescope/pkg/version"
)

// Global flags shared by every subcommand via PersistentFlags.
var (
	dataDir      string
	workspaceArg string
	debugMode    bool
)

// NewRootCmd builds the root codescope command and wires its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "codescope",
		Short:   "Local hybrid code search over a workspace",
		Version: version.Version,
		Long: `codescope builds a local on-disk index over a directory of source
files and answers literal, regex, or hybrid (BM25 + semantic) queries
against it. It runs entirely offline; there is no server process.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level := "info"
			if debugMode {
				level = "debug"
			}
			slog.SetDefault(logging.Setup(logging.Config{Level: level}))
			return nil
		},
	}
	root.SetVersionTemplate("codescope version {{.Version}}\n")

	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the per-user data directory (default: ~/.codescope)")
	root.PersistentFlags().StringVar(&workspaceArg, "workspace", "", "Explicit workspace root (default: nearest indexed ancestor of the current directory)")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug-level logging")

	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newWorkspaceCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
