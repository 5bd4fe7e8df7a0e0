// Package walker produces a lazy sequence of indexable files from a
// workspace root: a single filepath.WalkDir pass gated by gitignore rules,
// a configurable max file size, a binary-content heuristic, and a
// symlink policy that refuses to follow symlinks outside the
// canonicalized root.
package walker

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codescope/codescope/internal/cserrors"
)

// gitignoreCacheSize bounds the number of per-directory gitignore matchers
// kept in memory, so a workspace with many directories cannot grow this
// cache unbounded.
const gitignoreCacheSize = 1000

// Walker discovers indexable files under a workspace root.
type Walker struct {
	gitignoreCache *lru.Cache[string, *gitignoreMatcher]
	cacheMu        sync.RWMutex
}

// New constructs a Walker.
func New() (*Walker, error) {
	cache, err := lru.New[string, *gitignoreMatcher](gitignoreCacheSize)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Io, "create gitignore cache", err)
	}
	return &Walker{gitignoreCache: cache}, nil
}

// Walk streams Results for the files under opts.Root. The channel is
// closed when the walk completes or ctx is cancelled. The returned *Stats
// is updated concurrently as the walk progresses and is only safe to read
// once the channel is fully drained and closed.
func (w *Walker) Walk(ctx context.Context, opts Options) (<-chan Result, *Stats, error) {
	absRoot, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, nil, cserrors.Wrap(cserrors.Io, "resolve walk root", err)
	}
	canonicalRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, nil, cserrors.Wrap(cserrors.Io, "canonicalize walk root", err)
	}

	info, err := os.Stat(canonicalRoot)
	if err != nil {
		return nil, nil, cserrors.Wrap(cserrors.Io, "stat walk root", err)
	}
	if !info.IsDir() {
		return nil, nil, cserrors.New(cserrors.Io, fmt.Sprintf("%s is not a directory", canonicalRoot), nil)
	}

	stats := newStats()
	results := make(chan Result, 64)
	go func() {
		defer close(results)
		w.walk(ctx, canonicalRoot, opts, results, &stats)
	}()
	return results, &stats, nil
}

func (w *Walker) walk(ctx context.Context, root string, opts Options, results chan<- Result, stats *Stats) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if defaultExcludeDirs[d.Name()] {
				return fs.SkipDir
			}
			if opts.RespectGitignore && w.isGitignored(relPath, root, true) {
				stats.record(DispositionIgnored)
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !opts.FollowSymlinks || !w.symlinkInsideRoot(path, root) {
				stats.record(DispositionSymlink)
				return nil
			}
		}

		if w.matchesAnyPattern(relPath, opts.ExcludePatterns) {
			stats.record(DispositionIgnored)
			return nil
		}
		if opts.RespectGitignore && w.isGitignored(relPath, root, false) {
			stats.record(DispositionIgnored)
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}

		maxSize := opts.MaxFileSize
		if maxSize <= 0 {
			maxSize = 1 << 20
		}
		if fi.Size() > maxSize {
			stats.record(DispositionSkippedBig)
			return nil
		}

		if isBinary(path) {
			stats.record(DispositionSkippedBin)
			return nil
		}

		select {
		case results <- Result{File: &FileInfo{Path: relPath, AbsPath: path, Size: fi.Size(), ModTime: fi.ModTime()}}:
			stats.record(DispositionIndexed)
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

// symlinkInsideRoot reports whether path's resolved target lies within
// root, preventing cycles and escapes from the canonicalized workspace.
func (w *Walker) symlinkInsideRoot(path, root string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Walker) matchesAnyPattern(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	m := newGitignoreMatcher()
	for _, p := range patterns {
		m.addPattern(p, "")
	}
	return m.match(relPath, false)
}

// isBinary sniffs the first 512 bytes of path for a null byte.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) != -1
}

// isGitignored checks relPath against the root .gitignore plus every
// nested .gitignore along the path from root to relPath's directory.
func (w *Walker) isGitignored(relPath, root string, isDir bool) bool {
	if m := w.matcherFor(root, ""); m != nil && m.match(relPath, isDir) {
		return true
	}

	dir := relPath
	if !isDir {
		dir = filepath.Dir(relPath)
	}
	if dir == "." {
		return false
	}

	parts := strings.Split(dir, "/")
	currentDir := root
	currentBase := ""
	for _, part := range parts {
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = currentBase + "/" + part
		}
		if m := w.matcherFor(currentDir, currentBase); m != nil && m.match(relPath, isDir) {
			return true
		}
	}
	return false
}

func (w *Walker) matcherFor(dir, base string) *gitignoreMatcher {
	w.cacheMu.RLock()
	m, ok := w.gitignoreCache.Get(dir)
	w.cacheMu.RUnlock()
	if ok {
		return m
	}

	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	m = newGitignoreMatcher()
	if err := m.addFromFile(path, base); err != nil {
		return nil
	}

	w.cacheMu.Lock()
	w.gitignoreCache.Add(dir, m)
	w.cacheMu.Unlock()
	return m
}

// InvalidateGitignoreCache drops all cached gitignore matchers, forcing
// them to be re-parsed on next use. The watcher does not call it; a
// changed .gitignore is picked up only once its cached matcher is dropped.
func (w *Walker) InvalidateGitignoreCache() {
	w.cacheMu.Lock()
	defer w.cacheMu.Unlock()
	w.gitignoreCache.Purge()
}

// ShouldIndex applies the same exclude-dir, gitignore, exclude-pattern,
// symlink, size, and binary-content checks Walk applies, to a single
// workspace-relative path. The file watcher uses this to decide whether a
// changed-file event warrants an incremental index_file call, without
// paying for a full workspace walk.
func (w *Walker) ShouldIndex(root, relPath string, opts Options) bool {
	relPath = filepath.ToSlash(relPath)

	for _, part := range strings.Split(relPath, "/") {
		if defaultExcludeDirs[part] {
			return false
		}
	}
	if w.matchesAnyPattern(relPath, opts.ExcludePatterns) {
		return false
	}
	if opts.RespectGitignore && w.isGitignored(relPath, root, false) {
		return false
	}

	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	info, err := os.Lstat(absPath)
	if err != nil {
		return false
	}
	if info.Mode()&os.ModeSymlink != 0 {
		if !opts.FollowSymlinks || !w.symlinkInsideRoot(absPath, root) {
			return false
		}
		info, err = os.Stat(absPath)
		if err != nil {
			return false
		}
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = 1 << 20
	}
	if info.Size() > maxSize {
		return false
	}
	return !isBinary(absPath)
}
