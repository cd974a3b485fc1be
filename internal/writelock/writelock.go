// Package writelock provides the process-level advisory lock that keeps two
// ragmcp processes from holding the Store's write handle against the same
// database file concurrently, per §10.5.
package writelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock guards a sentinel file kept beside the database.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates a lock for dataDir's write sentinel, at <dataDir>/.write.lock.
func New(dataDir string) *Lock {
	path := filepath.Join(dataDir, ".write.lock")
	return &Lock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking, returning false if
// another process already holds it.
func (l *Lock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire write lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked Lock.
func (l *Lock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release write lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the sentinel file path.
func (l *Lock) Path() string {
	return l.path
}
