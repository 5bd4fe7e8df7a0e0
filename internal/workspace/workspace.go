// Package workspace resolves a filesystem path to a codescope workspace:
// a canonicalized root directory identified by a stable 64-bit hash, with
// its on-disk index directory located under a shared per-user data root.
package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/codescope/codescope/internal/cserrors"
)

// metaFileName is the marker file whose presence signals a completed index
// pass and whose contents record that pass's summary.
const metaFileName = "workspace.json"

// Meta is the record written to workspace.json at the end of a bulk index
// pass, and consulted by the watcher to decide whether incremental updates
// should also compute embeddings.
type Meta struct {
	Workspace    string    `json:"workspace"`
	IndexedAt    time.Time `json:"indexed_at"`
	FilesIndexed int       `json:"files_indexed"`
	Semantic     bool      `json:"semantic"`
}

// WriteMeta marshals meta as JSON into ws's index directory.
func (ws Workspace) WriteMeta(meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return cserrors.Wrap(cserrors.Io, "marshal workspace metadata", err)
	}
	if err := os.WriteFile(filepath.Join(ws.IndexDir, metaFileName), data, 0o644); err != nil {
		return cserrors.Wrap(cserrors.Io, "write workspace metadata", err)
	}
	return nil
}

// ReadMeta loads the workspace.json record written by the last bulk index
// pass.
func (ws Workspace) ReadMeta() (Meta, error) {
	data, err := os.ReadFile(filepath.Join(ws.IndexDir, metaFileName))
	if err != nil {
		return Meta{}, cserrors.Wrap(cserrors.Io, "read workspace metadata", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, cserrors.Wrap(cserrors.Io, "parse workspace metadata", err)
	}
	return meta, nil
}

// maxAncestorClimb bounds how many parent directories the resolver will
// inspect while looking for an indexed ancestor.
const maxAncestorClimb = 10

// appName names the subdirectory under the user's data directory that
// holds all workspaces' index directories.
const appName = "codescope"

// Workspace identifies a canonicalized root directory and its on-disk
// index location.
type Workspace struct {
	// Root is the canonicalized absolute workspace directory.
	Root string
	// ID is the lowercase 16-hex-digit rendering of the 64-bit hash of
	// Root's UTF-8 bytes.
	ID string
	// IndexDir is "<data_dir>/indexes/<ID>/".
	IndexDir string
}

// Hash computes a workspace's stable identifier: the lowercase 16-hex
// rendering of a 64-bit hash of the canonicalized path's UTF-8 bytes.
func Hash(canonicalPath string) string {
	sum := xxhash.Sum64String(canonicalPath)
	return toHex16(sum)
}

func toHex16(v uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf)
}

// DefaultDataDir returns the platform-standard per-user data directory for
// codescope: $HOME/.codescope (or the equivalent on the current OS via
// os.UserHomeDir).
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", cserrors.Wrap(cserrors.Io, "resolve user home directory", err)
	}
	return filepath.Join(home, "."+appName), nil
}

// New canonicalizes root and computes its Workspace record under dataDir.
// If dataDir is empty, DefaultDataDir() is used.
func New(root, dataDir string) (Workspace, error) {
	canonical, err := canonicalize(root)
	if err != nil {
		return Workspace{}, err
	}
	if dataDir == "" {
		dataDir, err = DefaultDataDir()
		if err != nil {
			return Workspace{}, err
		}
	}
	id := Hash(canonical)
	return Workspace{
		Root:     canonical,
		ID:       id,
		IndexDir: filepath.Join(dataDir, "indexes", id),
	}, nil
}

// canonicalize resolves path to an absolute, symlink-evaluated directory.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", cserrors.Wrap(cserrors.Io, "resolve absolute path", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", cserrors.Wrap(cserrors.Io, "resolve workspace path", err)
	}
	return resolved, nil
}

// IsIndexed reports whether ws has a completed index pass, signaled by the
// presence of workspace.json in its index directory.
func (ws Workspace) IsIndexed() bool {
	_, err := os.Stat(filepath.Join(ws.IndexDir, metaFileName))
	return err == nil
}

// Resolve climbs from start up to maxAncestorClimb parent directories,
// returning the nearest ancestor (including start) that is indexed. If
// override is non-empty, it is used instead of start and must itself be
// indexed — otherwise WorkspaceNotIndexed is returned.
func Resolve(start, dataDir, override string) (Workspace, error) {
	if override != "" {
		ws, err := New(override, dataDir)
		if err != nil {
			return Workspace{}, err
		}
		if !ws.IsIndexed() {
			return Workspace{}, cserrors.New(cserrors.WorkspaceNotIndexed,
				"explicit workspace override is not indexed", nil).WithDetail("root", ws.Root)
		}
		return ws, nil
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return Workspace{}, cserrors.Wrap(cserrors.Io, "resolve start path", err)
	}

	for i := 0; i <= maxAncestorClimb; i++ {
		ws, err := New(dir, dataDir)
		if err == nil && ws.IsIndexed() {
			return ws, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return Workspace{}, cserrors.New(cserrors.WorkspaceNotIndexed,
		"no indexed workspace found at or above the given path", nil).WithDetail("start", start)
}
