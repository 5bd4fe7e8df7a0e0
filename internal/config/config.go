// Package config loads and validates codescope's project configuration:
// a single record with indexer and search sub-records, read from an
// optional YAML file and merged over hardcoded defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codescope/codescope/internal/cserrors"
)

// Config is the complete codescope configuration.
type Config struct {
	Indexer IndexerConfig `yaml:"indexer" json:"indexer"`
	Search  SearchConfig  `yaml:"search" json:"search"`
}

// IndexerConfig configures ingestion and the on-disk index location.
type IndexerConfig struct {
	// DataDir is parsed from the config file, but the CLI commands do not
	// read it: they place per-workspace index directories under the
	// --data-dir flag, or the workspace resolver's default (~/.codescope)
	// when that flag is empty.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// MaxFileSize is the byte ceiling above which a candidate file is
	// reported as skipped rather than indexed.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`

	// FollowSymlinks enables following symlinks that resolve inside the
	// canonicalized workspace root. Symlinks resolving outside the root
	// are never followed, regardless of this setting.
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`

	// RespectGitignore toggles .gitignore-based exclusion during the walk.
	RespectGitignore bool `yaml:"respect_gitignore" json:"respect_gitignore"`

	// WatchDebounce is the coalescing window the file watcher applies
	// before translating filesystem events into incremental updates.
	WatchDebounce time.Duration `yaml:"watch_debounce" json:"watch_debounce"`

	// EmbeddingDimensions is the vector width produced by the configured
	// embedding collaborator.
	EmbeddingDimensions int `yaml:"embedding_dimensions" json:"embedding_dimensions"`

	// EmbeddingBatchSize bounds how many documents are embedded per
	// Embedder.EmbedBatch call during the bulk-index embedding phase.
	EmbeddingBatchSize int `yaml:"embedding_batch_size" json:"embedding_batch_size"`
}

// SearchConfig configures result bounding and hybrid fusion weights.
type SearchConfig struct {
	// DefaultLimit is the result count used when a query does not specify
	// one.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	// MaxLimit is the upper bound a query's limit is clamped to.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`
	// BM25Weight is the RRF contribution weight for the text branch.
	BM25Weight float64 `yaml:"bm25_weight" json:"bm25_weight"`
	// VectorWeight is the RRF contribution weight for the semantic branch.
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`
	// MinScore is parsed from the config file, but no search path reads
	// it: pkg/searcher takes only the two RRF weights, so literal, regex
	// and hybrid results are not floored by this value.
	MinScore float64 `yaml:"min_score" json:"min_score"`
}

// Default returns codescope's hardcoded configuration defaults.
func Default() Config {
	return Config{
		Indexer: IndexerConfig{
			MaxFileSize:         1 << 20, // 1 MiB
			FollowSymlinks:      false,
			RespectGitignore:    true,
			WatchDebounce:       500 * time.Millisecond,
			EmbeddingDimensions: 384,
			EmbeddingBatchSize:  32,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxLimit:     200,
			BM25Weight:   0.4,
			VectorWeight: 0.6,
			MinScore:     0,
		},
	}
}

// Load reads a YAML config file at path and merges it over Default(). A
// missing file is not an error — Default() is returned unchanged, since a
// project config is optional.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, cserrors.Wrap(cserrors.Config, fmt.Sprintf("read config %s", path), err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, cserrors.Wrap(cserrors.Config, fmt.Sprintf("parse config %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// FindProjectConfig looks for a ".codescope.yaml" file starting at dir and
// walking up to the filesystem root, returning the first match or "" if
// none exists.
func FindProjectConfig(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".codescope.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Validate checks that numeric fields are within sane ranges.
func (c Config) Validate() error {
	if c.Indexer.MaxFileSize <= 0 {
		return cserrors.New(cserrors.Config, "indexer.max_file_size must be positive", nil)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit <= 0 {
		return cserrors.New(cserrors.Config, "search.default_limit and search.max_limit must be positive", nil)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return cserrors.New(cserrors.Config, "search.default_limit must not exceed search.max_limit", nil)
	}
	if c.Search.BM25Weight < 0 || c.Search.VectorWeight < 0 {
		return cserrors.New(cserrors.Config, "search weights must be non-negative", nil)
	}
	return nil
}
