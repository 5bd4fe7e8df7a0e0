package walker

import "time"

// Disposition classifies why a candidate path was or was not emitted as an
// indexable file.
type Disposition string

const (
	DispositionIndexed    Disposition = "indexed"
	DispositionSkippedBig Disposition = "skipped_too_large"
	DispositionSkippedBin Disposition = "skipped_binary"
	DispositionIgnored    Disposition = "ignored"
	DispositionSymlink    Disposition = "skipped_symlink"
)

// FileInfo describes one file the walker considers indexable.
type FileInfo struct {
	// Path is workspace-relative, slash-separated.
	Path    string
	AbsPath string
	Size    int64
	ModTime time.Time
}

// Result is one item from a Walk: either a discovered File or a non-fatal
// Error encountered while visiting a path.
type Result struct {
	File  *FileInfo
	Error error
}

// Options configures a Walk pass.
type Options struct {
	// Root is the workspace directory to walk.
	Root string
	// MaxFileSize is the byte ceiling above which a file is reported as
	// skipped rather than emitted.
	MaxFileSize int64
	// RespectGitignore toggles .gitignore-based exclusion.
	RespectGitignore bool
	// FollowSymlinks enables following symlinks that resolve inside Root.
	// Symlinks resolving outside Root are never followed.
	FollowSymlinks bool
	// ExcludePatterns are additional gitignore-syntax exclusions applied
	// regardless of RespectGitignore.
	ExcludePatterns []string
}

// Stats summarizes one completed Walk.
type Stats struct {
	VisitedPaths int
	Dispositions map[Disposition]int
}

func newStats() Stats {
	return Stats{Dispositions: make(map[Disposition]int)}
}

func (s *Stats) record(d Disposition) {
	s.VisitedPaths++
	s.Dispositions[d]++
}

// defaultExcludeDirs are always skipped regardless of gitignore content —
// directories no source-code search should ever descend into.
var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// IsExcludedDir reports whether name is a directory that is always skipped
// regardless of gitignore content. The file watcher uses this to avoid
// registering filesystem watches under directories no search should ever
// descend into.
func IsExcludedDir(name string) bool {
	return defaultExcludeDirs[name]
}
