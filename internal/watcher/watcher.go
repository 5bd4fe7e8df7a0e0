// Package watcher recursively watches a workspace for filesystem changes,
// debounces bursts of events per path, and translates the survivors into
// the small vocabulary (Changed, Deleted, DirCreated, DirDeleted, Error) an
// incremental indexing loop acts on.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codescope/codescope/internal/cserrors"
	"github.com/codescope/codescope/internal/walker"
)

// EventKind classifies one coalesced event a consumer loop acts on.
type EventKind string

const (
	// Changed means the file at Path should be (re)indexed.
	Changed EventKind = "changed"
	// Deleted means the file at Path should be removed from the index.
	Deleted EventKind = "deleted"
	// DirCreated means a new directory joined the watch set.
	DirCreated EventKind = "dir_created"
	// DirDeleted means a watched directory disappeared.
	DirDeleted EventKind = "dir_deleted"
	// ErrorEvent carries a non-fatal error surfaced by the underlying
	// filesystem notifier.
	ErrorEvent EventKind = "error"
)

// Event is one item a Watcher's consumer loop processes.
type Event struct {
	Kind EventKind
	Path string // workspace-relative, slash-separated; empty for ErrorEvent
	Err  error  // set only for ErrorEvent
}

// IndexUpdater is the subset of pkg/indexer.Indexer the watcher drives.
// Defined here, rather than imported, so this package stays independent of
// the indexer's own dependencies.
type IndexUpdater interface {
	IndexFile(ctx context.Context, relPath string, withEmbeddings bool) error
	DeleteFile(ctx context.Context, relPath string) error
}

// Watcher recursively watches a workspace root for filesystem changes and
// emits debounced, indexability-filtered Events. It owns no indexer: Run
// drives one, so callers can observe the raw Events channel independently
// (tests fake it without touching fsnotify).
type Watcher struct {
	root      string
	fsw       *fsnotify.Watcher
	walker    *walker.Walker
	walkOpts  walker.Options
	debouncer *Debouncer
	events    chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New starts watching root (recursively) for filesystem changes. opts
// governs which paths are considered indexable, the same as a bulk walk.
func New(root string, w *walker.Walker, opts walker.Options, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Io, "create filesystem watcher", err)
	}

	wt := &Watcher{
		root:      root,
		fsw:       fsw,
		walker:    w,
		walkOpts:  opts,
		debouncer: NewDebouncer(debounce),
		events:    make(chan Event, 64),
	}

	if err := wt.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	wt.wg.Add(2)
	go func() { defer wt.wg.Done(); wt.collectRaw() }()
	go func() { defer wt.wg.Done(); wt.translate() }()
	go func() {
		wt.wg.Wait()
		close(wt.events)
	}()

	return wt, nil
}

// Events returns the channel of debounced, filtered events. The channel is
// closed once both the raw-event collector and the translator have
// exited, so a plain `for ev := range w.Events()` loop terminates on its
// own and never races a send against the close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the underlying filesystem notifier and the debouncer and
// waits for both internal goroutines to exit before returning. Safe to
// call multiple times.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
		w.debouncer.Stop()
		w.wg.Wait()
	})
	return err
}

// addRecursive registers a watch on dir and every indexable subdirectory
// beneath it, skipping the same default-excluded directories a bulk walk
// skips.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && walker.IsExcludedDir(d.Name()) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("failed to watch directory", slog.String("path", path), slog.Any("error", err))
		}
		return nil
	})
}

// collectRaw drains the underlying fsnotify channels, translating raw
// events into FileEvents fed to the debouncer, and forwards notifier
// errors directly as ErrorEvents (those aren't subject to debouncing).
func (w *Watcher) collectRaw() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRaw(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.events <- Event{Kind: ErrorEvent, Err: err}:
			default:
				slog.Warn("watcher events channel full, dropping error", slog.Any("error", err))
			}
		}
	}
}

func (w *Watcher) handleRaw(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	info, statErr := os.Lstat(ev.Name)
	isDir := statErr == nil && info.IsDir()

	var op Operation
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
		if isDir {
			if err := w.addRecursive(ev.Name); err != nil {
				slog.Warn("failed to watch new directory", slog.String("path", ev.Name), slog.Any("error", err))
			}
		}
	case ev.Has(fsnotify.Write):
		op = OpModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      rel,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

func (w *Watcher) translate() {
	for batch := range w.debouncer.Output() {
		for _, fe := range batch {
			w.emit(fe)
		}
	}
}

func (w *Watcher) emit(fe FileEvent) {
	if fe.IsDir {
		kind := DirCreated
		if fe.Operation == OpDelete {
			kind = DirDeleted
		}
		select {
		case w.events <- Event{Kind: kind, Path: fe.Path}:
		default:
			slog.Warn("watcher events channel full, dropping directory event", slog.String("path", fe.Path))
		}
		return
	}

	if fe.Operation == OpDelete {
		select {
		case w.events <- Event{Kind: Deleted, Path: fe.Path}:
		default:
			slog.Warn("watcher events channel full, dropping delete event", slog.String("path", fe.Path))
		}
		return
	}

	if !w.walker.ShouldIndex(w.root, fe.Path, w.walkOpts) {
		return
	}
	select {
	case w.events <- Event{Kind: Changed, Path: fe.Path}:
	default:
		slog.Warn("watcher events channel full, dropping change event", slog.String("path", fe.Path))
	}
}

// Run drives ix from w's Events channel until it closes or ctx is
// cancelled. The loop is cooperative and single-threaded: it awaits the
// next event, applies it, and only then asks for the next one, so a slow
// embedder naturally backpressures the filesystem notifier instead of
// racing it.
func Run(ctx context.Context, events <-chan Event, ix IndexUpdater, semantic bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case Changed:
				if err := ix.IndexFile(ctx, ev.Path, semantic); err != nil {
					slog.Warn("incremental index failed", slog.String("path", ev.Path), slog.Any("error", err))
				}
			case Deleted:
				if err := ix.DeleteFile(ctx, ev.Path); err != nil {
					slog.Warn("incremental delete failed", slog.String("path", ev.Path), slog.Any("error", err))
				}
			case DirCreated, DirDeleted:
				// No index action: file-level Changed/Deleted events for
				// the directory's contents arrive as their own events.
			case ErrorEvent:
				slog.Warn("filesystem watcher error", slog.Any("error", ev.Err))
			}
		}
	}
}
