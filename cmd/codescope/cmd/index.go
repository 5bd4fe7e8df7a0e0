package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/embed"
	"github.com/codescope/codescope/internal/output"
	"github.com/codescope/codescope/internal/textindex"
	"github.com/codescope/codescope/internal/vectorindex"
	"github.com/codescope/codescope/internal/walker"
	"github.com/codescope/codescope/internal/workspace"
	"github.com/codescope/codescope/internal/writerlock"
	"github.com/codescope/codescope/pkg/indexer"
)

func newIndexCmd() *cobra.Command {
	var noSemantic bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Build or rebuild the index for a workspace",
		Long: `Walks path (default: the current directory), builds a BM25 text
index over every indexable file, and — unless --no-semantic is given —
embeds eligible file content into a vector index for hybrid search.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndex(cmd.Context(), cmd, path, noSemantic)
		},
	}

	cmd.Flags().BoolVar(&noSemantic, "no-semantic", false, "Skip embedding generation; build the text index only")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, noSemantic bool) error {
	out := output.New(cmd.OutOrStdout())

	root, cfg, err := loadRootAndConfig(path)
	if err != nil {
		return err
	}

	ws, err := workspace.New(root, dataDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(ws.IndexDir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	lock := writerlock.New(ws.IndexDir)
	ok, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("another writer already holds the index lock for %s", ws.Root)
	}
	defer func() { _ = lock.Unlock() }()

	textPath := filepath.Join(ws.IndexDir, "text")
	text, err := textindex.Open(textPath, textindex.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() { _ = text.Close() }()

	vecDir := filepath.Join(ws.IndexDir, "vectors")
	withEmbeddings := !noSemantic

	var embedder embed.Embedder
	var vectors *vectorindex.Store
	if withEmbeddings {
		embedder = embed.NewCachedEmbedderWithDefaults(embed.NewHashEmbedder(cfg.Indexer.EmbeddingDimensions))
		if vectorindex.Exists(vecDir) {
			vectors, err = vectorindex.Load(vecDir)
			if err != nil {
				return err
			}
		} else {
			vectors = vectorindex.New(cfg.Indexer.EmbeddingDimensions)
		}
		defer func() { _ = embedder.Close() }()
	}

	w, err := walker.New()
	if err != nil {
		return err
	}

	ix := indexer.New(ws, w, text, vectors, embedder, vecDir, cfg.Indexer)

	out.Statusf("", "Indexing %s...", ws.Root)
	report, err := ix.IndexAll(ctx, withEmbeddings)
	if err != nil {
		return err
	}

	out.Successf("Indexed %d files (workspace %s)", report.FilesIndexed, ws.ID)
	if report.Skipped > 0 {
		out.Statusf("", "Skipped %d files", report.Skipped)
	}
	for disposition, count := range report.Dispositions.Dispositions {
		if disposition == walker.DispositionIndexed || count == 0 {
			continue
		}
		out.Statusf("", "  %s: %d", disposition, count)
	}

	return nil
}

// loadRootAndConfig resolves path to an absolute directory and loads its
// project config, falling back to defaults when no .codescope.yaml exists.
func loadRootAndConfig(path string) (string, config.Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("access path: %w", err)
	}
	if !info.IsDir() {
		return "", config.Config{}, fmt.Errorf("%s is not a directory", abs)
	}

	cfg, err := config.Load(config.FindProjectConfig(abs))
	if err != nil {
		return "", config.Config{}, err
	}
	return abs, cfg, nil
}
