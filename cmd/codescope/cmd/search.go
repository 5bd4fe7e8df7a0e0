package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/embed"
	"github.com/codescope/codescope/internal/output"
	"github.com/codescope/codescope/internal/textindex"
	"github.com/codescope/codescope/internal/vectorindex"
	"github.com/codescope/codescope/internal/workspace"
	"github.com/codescope/codescope/pkg/searcher"
)

type searchOptions struct {
	limit     int
	mode      string // "hybrid", "literal", "regex"
	extension string
	scopes    []string
	format    string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed workspace",
		Long: `Search the indexed workspace.

By default this runs a hybrid search: a BM25 phrase match and, when a
vector index exists, a semantic nearest-neighbor match, fused with
Reciprocal Rank Fusion. --mode literal or --mode regex bypass fusion
for an exact or pattern match instead.

Examples:
  codescope search "authentication middleware"
  codescope search "handleRequest(" --mode literal --limit 5
  codescope search "func Handle\w+" --mode regex
  codescope search "error handling" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: config default_limit)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Search mode: hybrid, literal, regex")
	cmd.Flags().StringVarP(&opts.extension, "extension", "e", "", "Filter by file extension, without the dot (e.g. go)")
	cmd.Flags().StringSliceVarP(&opts.scopes, "scope", "s", nil, "Filter by path prefix/substring (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	ws, err := workspace.Resolve(cwd, dataDir, workspaceArg)
	if err != nil {
		return fmt.Errorf("%w (run 'codescope index' first)", err)
	}

	cfg, err := config.Load(config.FindProjectConfig(ws.Root))
	if err != nil {
		return err
	}

	limit := opts.limit
	if limit <= 0 {
		limit = cfg.Search.DefaultLimit
	}
	if limit > cfg.Search.MaxLimit {
		limit = cfg.Search.MaxLimit
	}

	textPath := filepath.Join(ws.IndexDir, "text")
	text, err := textindex.Open(textPath, textindex.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() { _ = text.Close() }()

	vecDir := filepath.Join(ws.IndexDir, "vectors")
	var vectors *vectorindex.Store
	var embedder embed.Embedder
	if opts.mode == "hybrid" && vectorindex.Exists(vecDir) {
		vectors, err = vectorindex.Load(vecDir)
		if err != nil {
			return err
		}
		embedder = embed.NewCachedEmbedderWithDefaults(embed.NewHashEmbedder(vectors.Dimension()))
		defer func() { _ = embedder.Close() }()
	}

	s := searcher.New(text, vectors, embedder, cfg.Search.BM25Weight, cfg.Search.VectorWeight)

	searchOpts := searcher.Options{
		Filter: searcher.Filter{
			Extension:    opts.extension,
			PathPatterns: opts.scopes,
		},
	}

	var result searcher.Result
	switch opts.mode {
	case "literal":
		result, err = s.Literal(ctx, query, limit, searchOpts)
	case "regex":
		result, err = s.Regex(ctx, query, limit, searchOpts)
	case "hybrid", "":
		result, err = s.Hybrid(ctx, query, limit, searchOpts)
	default:
		return fmt.Errorf("unknown search mode %q (want hybrid, literal, or regex)", opts.mode)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.format == "json" {
		return formatSearchJSON(cmd, result)
	}
	return formatSearchText(out, query, result)
}

func formatSearchText(out *output.Writer, query string, result searcher.Result) error {
	if len(result.Hits) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	out.Statusf("", "Found %d results for %q (%dms):", result.Total, query, result.QueryTimeMS)
	out.Newline()

	for i, h := range result.Hits {
		location := h.Path
		if h.LineStart > 0 {
			location = fmt.Sprintf("%s:%d", h.Path, h.LineStart)
		}
		out.Statusf("", "%d. %s (score: %.2f, %s)", i+1, location, h.Score, h.MatchType)
		if h.Snippet != "" {
			out.Snippet(h.Snippet)
		}
	}

	return nil
}

func formatSearchJSON(cmd *cobra.Command, result searcher.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
