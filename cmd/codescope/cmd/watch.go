package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/embed"
	"github.com/codescope/codescope/internal/output"
	"github.com/codescope/codescope/internal/textindex"
	"github.com/codescope/codescope/internal/vectorindex"
	"github.com/codescope/codescope/internal/walker"
	"github.com/codescope/codescope/internal/watcher"
	"github.com/codescope/codescope/internal/workspace"
	"github.com/codescope/codescope/internal/writerlock"
	"github.com/codescope/codescope/pkg/indexer"
)

func newWatchCmd() *cobra.Command {
	var noSemantic bool

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a workspace and incrementally update its index",
		Long: `Watches path (default: the current directory) for filesystem changes
and updates the already-built index in place: new and modified files are
(re)indexed, deleted files are removed from the index. Runs until
interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runWatch(cmd, path, noSemantic)
		},
	}

	cmd.Flags().BoolVar(&noSemantic, "no-semantic", false, "Skip embedding updates for changed files")

	return cmd
}

func runWatch(cmd *cobra.Command, path string, noSemantic bool) error {
	out := output.New(cmd.OutOrStdout())

	root, cfg, err := loadRootAndConfig(path)
	if err != nil {
		return err
	}

	ws, err := workspace.New(root, dataDir)
	if err != nil {
		return err
	}
	if !ws.IsIndexed() {
		return fmt.Errorf("%s has no index yet; run 'codescope index' first", ws.Root)
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
	if meta, merr := ws.ReadMeta(); merr == nil && !meta.Semantic {
		withEmbeddings = false
	}

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

	walkOpts := walker.Options{
		Root:             ws.Root,
		MaxFileSize:      cfg.Indexer.MaxFileSize,
		RespectGitignore: cfg.Indexer.RespectGitignore,
		FollowSymlinks:   cfg.Indexer.FollowSymlinks,
	}

	wt, err := watcher.New(ws.Root, w, walkOpts, cfg.Indexer.WatchDebounce)
	if err != nil {
		return err
	}
	defer func() { _ = wt.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out.Statusf("", "Watching %s for changes (Ctrl-C to stop)...", ws.Root)

	if err := watcher.Run(ctx, wt.Events(), ix, withEmbeddings); err != nil && ctx.Err() == nil {
		return err
	}

	out.Status("", "Stopped.")
	return nil
}
