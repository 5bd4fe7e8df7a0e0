// Package writerlock enforces the single-writer invariant over an index
// directory using a cross-process file lock, the same mutual-exclusion
// idiom the teacher codebase applies to its model-download directory.
package writerlock

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/codescope/codescope/internal/cserrors"
)

// lockFileName is created inside the index directory solely to anchor the
// flock; its contents are never read.
const lockFileName = ".writer.lock"

// Lock guards a single index directory against concurrent writers, in or
// out of process. Readers (search) do not take this lock.
type Lock struct {
	fl *flock.Flock
}

// New returns a Lock for the given index directory. The directory must
// already exist.
func New(indexDir string) *Lock {
	return &Lock{fl: flock.New(filepath.Join(indexDir, lockFileName))}
}

// TryLock attempts to acquire the writer lock without blocking. ok is
// false if another writer currently holds it.
func (l *Lock) TryLock() (ok bool, err error) {
	ok, err = l.fl.TryLock()
	if err != nil {
		return false, cserrors.Wrap(cserrors.IndexWrite, "acquire writer lock", err)
	}
	return ok, nil
}

// Unlock releases the writer lock. Safe to call even if TryLock returned
// ok=false, in which case it is a no-op.
func (l *Lock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return cserrors.Wrap(cserrors.IndexWrite, "release writer lock", err)
	}
	return nil
}
