// Package lock provides the single-instance guard required so the
// GraphLinker never runs concurrently with an active build against the
// same index: both hold the same file lock for the duration of their run.
package lock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock wraps a file lock scoped to one index directory.
type Lock struct {
	fl *flock.Flock
}

// New returns a Lock backed by a lock file under storeDir. It does not
// acquire the lock; call TryLock for that.
func New(storeDir string) *Lock {
	return &Lock{fl: flock.New(storeDir + "/.codeindex.lock")}
}

// TryLock attempts to acquire the lock without blocking. ok is false if
// another process already holds it.
func (l *Lock) TryLock() (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return ok, nil
}

// Unlock releases the lock. Safe to call even if TryLock never succeeded.
func (l *Lock) Unlock() error {
	if !l.fl.Locked() {
		return nil
	}
	return l.fl.Unlock()
}
