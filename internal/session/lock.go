package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock keeps a second listener from running against the same session file.
type Lock struct {
	lock *flock.Flock
}

// AcquireLock takes the lock next to the session file without blocking.
func AcquireLock(sessionPath string) (*Lock, error) {
	lockPath := sessionPath + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f := flock.New(lockPath)
	locked, err := f.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &Lock{lock: f}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.lock == nil || !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock session lock: %w", err)
	}
	return nil
}
