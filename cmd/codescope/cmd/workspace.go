package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/output"
	"github.com/codescope/codescope/internal/workspace"
)

func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Inspect workspace identity and index status",
	}
	cmd.AddCommand(newWorkspaceInfoCmd())
	return cmd
}

func newWorkspaceInfoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info [path]",
		Short: "Print the resolved workspace's identity and index metadata",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runWorkspaceInfo(cmd, path, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type workspaceInfo struct {
	Root     string          `json:"root"`
	ID       string          `json:"id"`
	IndexDir string          `json:"index_dir"`
	Indexed  bool            `json:"indexed"`
	Meta     *workspace.Meta `json:"meta,omitempty"`
}

func runWorkspaceInfo(cmd *cobra.Command, path string, asJSON bool) error {
	out := output.New(cmd.OutOrStdout())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	start := path
	if start == "." {
		start = cwd
	}

	ws, err := workspace.Resolve(start, dataDir, workspaceArg)
	info := workspaceInfo{}
	if err != nil {
		// Fall back to reporting the as-yet-unindexed workspace identity
		// for the given path, so `workspace info` is useful before the
		// first index pass too.
		unindexed, nerr := workspace.New(start, dataDir)
		if nerr != nil {
			return err
		}
		info.Root = unindexed.Root
		info.ID = unindexed.ID
		info.IndexDir = unindexed.IndexDir
		info.Indexed = false
	} else {
		info.Root = ws.Root
		info.ID = ws.ID
		info.IndexDir = ws.IndexDir
		info.Indexed = true
		if meta, merr := ws.ReadMeta(); merr == nil {
			info.Meta = &meta
		}
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	out.Statusf("", "Root:      %s", info.Root)
	out.Statusf("", "ID:        %s", info.ID)
	out.Statusf("", "Index dir: %s", info.IndexDir)
	out.Statusf("", "Indexed:   %t", info.Indexed)
	if info.Meta != nil {
		out.Statusf("", "Last pass: %s (%d files, semantic=%t)",
			info.Meta.IndexedAt.Format("2006-01-02 15:04:05"), info.Meta.FilesIndexed, info.Meta.Semantic)
	}
	return nil
}
