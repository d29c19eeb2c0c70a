package fileutils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside a locked directory and left behind on release.
const LockFileName = ".painpoints.lock"

// ErrDirLocked is returned by LockDir when another process holds the lock.
type ErrDirLocked struct {
	Dir string
}

func (e *ErrDirLocked) Error() string {
	return fmt.Sprintf("directory is locked by another run: %s", e.Dir)
}

// LockDir takes an exclusive, non-blocking lock on dir (creating it if needed).
// The returned func releases the lock.
func LockDir(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !ok {
		return nil, &ErrDirLocked{Dir: dir}
	}
	return lock.Unlock, nil
}
