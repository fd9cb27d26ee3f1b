//go:build !unix

package lockfile

import (
	"errors"
	"os"
)

// ErrLocked is returned when the lock is already held by another process.
var ErrLocked = errors.New("lock already held by another process")

// Advisory file locks are a no-op on platforms without flock. The store's
// own locking still guards concurrent access within one process.

func FlockExclusiveNonBlocking(_ *os.File) error { return nil }

func FlockExclusiveBlocking(_ *os.File) error { return nil }

func FlockUnlock(_ *os.File) error { return nil }
