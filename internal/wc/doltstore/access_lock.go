package doltstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aboseley/subversion/internal/lockfile"
)

// accessLock is a process-level advisory flock guarding the embedded
// database directory. Dolt's internal LOCK file gives confusing errors when
// two processes race for it; the flock fails fast with a clear message.
type accessLock struct {
	file *os.File
	path string
}

// acquireAccessLock takes an exclusive flock on the lock file next to the
// database directory, polling until timeout.
func acquireAccessLock(dbDir string, timeout time.Duration) (*accessLock, error) {
	lockPath := filepath.Join(filepath.Dir(dbDir), accessLockFile)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open access lock: %w", err)
	}

	if err := lockfile.FlockExclusiveNonBlocking(f); err == nil {
		return &accessLock{file: f, path: lockPath}, nil
	} else if !errors.Is(err, lockfile.ErrLocked) {
		_ = f.Close()
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(lockPollInterval)
		if err := lockfile.FlockExclusiveNonBlocking(f); err == nil {
			return &accessLock{file: f, path: lockPath}, nil
		} else if !errors.Is(err, lockfile.ErrLocked) {
			_ = f.Close()
			return nil, err
		}
	}

	_ = f.Close()
	return nil, fmt.Errorf("access lock timeout (%v): another process is using the store: %w",
		timeout, lockfile.ErrLocked)
}

// release unlocks and closes the lock file. Safe on nil and safe to call
// more than once.
func (l *accessLock) release() {
	if l == nil || l.file == nil {
		return
	}
	_ = lockfile.FlockUnlock(l.file)
	_ = l.file.Close()
	l.file = nil
}
