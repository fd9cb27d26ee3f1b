// Package memory provides an in-memory working-copy store.
//
// It backs the resolver's tests and the CLI demo mode. Besides implementing
// wc.Store it keeps counters and failure hooks so tests can verify the
// resolver's locking discipline.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc"
)

// Store is an in-memory wc.Store.
//
// The zero value is not usable; call New.
type Store struct {
	mu        sync.Mutex
	conflicts map[string][]types.Descriptor
	locks     map[string]bool
	moves     map[string]string // move source -> destination

	// AcquireCalls and ReleaseCalls count write-lock operations.
	AcquireCalls int
	ReleaseCalls int

	// Failure hooks. When non-nil, the corresponding mutation fails with
	// the given error after the lock bookkeeping has run.
	FailMarkText    error
	FailMarkProp    error
	FailDeleteTree  error
	FailBreakMoved  error
	FailAcquireLock error

	// Resolutions records every successful mark-resolved call as
	// "kind:path:prop:choice" in order.
	Resolutions []string
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		conflicts: make(map[string][]types.Descriptor),
		locks:     make(map[string]bool),
		moves:     make(map[string]string),
	}
}

// AddConflict records a conflict descriptor for its local path.
func (s *Store) AddConflict(desc types.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts[desc.LocalPath] = append(s.conflicts[desc.LocalPath], desc)
}

// AddMove records a move relationship from src to dst.
func (s *Store) AddMove(src, dst string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves[src] = dst
}

// HasMove reports whether a move with the given source is still recorded.
func (s *Store) HasMove(src string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.moves[src]
	return ok
}

// Locked reports whether the path currently holds a write lock.
func (s *Store) Locked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks[path]
}

func (s *Store) ReadConflicts(_ context.Context, localPath string) ([]types.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	descs := s.conflicts[localPath]
	out := make([]types.Descriptor, len(descs))
	copy(out, descs)
	return out, nil
}

func (s *Store) AcquireWriteLock(_ context.Context, localPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AcquireCalls++
	if s.FailAcquireLock != nil {
		return "", s.FailAcquireLock
	}
	if s.locks[localPath] {
		return "", fmt.Errorf("acquire write lock for %q: %w", localPath, wc.ErrLockHeld)
	}
	s.locks[localPath] = true
	return localPath, nil
}

func (s *Store) ReleaseWriteLock(_ context.Context, lockPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReleaseCalls++
	if !s.locks[lockPath] {
		return fmt.Errorf("release write lock for %q: %w", lockPath, wc.ErrNotLocked)
	}
	delete(s.locks, lockPath)
	return nil
}

func (s *Store) MarkTextResolved(_ context.Context, localPath string, choice types.LegacyChoice, notify wc.NotifyFunc) error {
	s.mu.Lock()
	if s.FailMarkText != nil {
		s.mu.Unlock()
		return s.FailMarkText
	}
	s.removeLocked(localPath, types.KindText, "")
	s.Resolutions = append(s.Resolutions, fmt.Sprintf("text:%s::%s", localPath, choice))
	s.mu.Unlock()
	if notify != nil {
		notify(wc.Notification{Path: localPath, Action: wc.NotifyResolved})
	}
	return nil
}

func (s *Store) MarkPropResolved(_ context.Context, localPath, propName string, choice types.LegacyChoice, notify wc.NotifyFunc) error {
	s.mu.Lock()
	if s.FailMarkProp != nil {
		s.mu.Unlock()
		return s.FailMarkProp
	}
	if propName == "" {
		// Resolve every conflicted property on the path.
		var kept []types.Descriptor
		for _, d := range s.conflicts[localPath] {
			if d.Kind == types.KindProperty {
				s.Resolutions = append(s.Resolutions,
					fmt.Sprintf("prop:%s:%s:%s", localPath, d.PropertyName, choice))
				continue
			}
			kept = append(kept, d)
		}
		s.conflicts[localPath] = kept
	} else {
		s.removeLocked(localPath, types.KindProperty, propName)
		s.Resolutions = append(s.Resolutions,
			fmt.Sprintf("prop:%s:%s:%s", localPath, propName, choice))
	}
	s.mu.Unlock()
	if notify != nil {
		notify(wc.Notification{Path: localPath, Action: wc.NotifyResolved})
	}
	return nil
}

func (s *Store) DeleteTreeConflict(_ context.Context, localPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeleteTree != nil {
		return s.FailDeleteTree
	}
	s.removeLocked(localPath, types.KindTree, "")
	s.Resolutions = append(s.Resolutions, fmt.Sprintf("tree:%s::", localPath))
	return nil
}

func (s *Store) BreakMovedAway(_ context.Context, localPath string, _ wc.NotifyFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailBreakMoved != nil {
		return s.FailBreakMoved
	}
	delete(s.moves, localPath)
	return nil
}

func (s *Store) RaiseMovedAway(_ context.Context, localPath string, notify wc.NotifyFunc) error {
	s.mu.Lock()
	s.removeLocked(localPath, types.KindTree, "")
	s.Resolutions = append(s.Resolutions, fmt.Sprintf("tree-raise:%s::", localPath))
	s.mu.Unlock()
	if notify != nil {
		notify(wc.Notification{Path: localPath, Action: wc.NotifyResolved})
	}
	return nil
}

func (s *Store) UpdateMovedAwayNode(_ context.Context, localPath string, notify wc.NotifyFunc) error {
	s.mu.Lock()
	s.removeLocked(localPath, types.KindTree, "")
	s.Resolutions = append(s.Resolutions, fmt.Sprintf("tree-update-moved:%s::", localPath))
	s.mu.Unlock()
	if notify != nil {
		notify(wc.Notification{Path: localPath, Action: wc.NotifyResolved})
	}
	return nil
}

// removeLocked drops the descriptor matching (kind, propName) from the path.
// Caller holds s.mu.
func (s *Store) removeLocked(localPath string, kind types.Kind, propName string) {
	var kept []types.Descriptor
	for _, d := range s.conflicts[localPath] {
		if d.Kind == kind && (kind != types.KindProperty || d.PropertyName == propName) {
			continue
		}
		kept = append(kept, d)
	}
	s.conflicts[localPath] = kept
}

var _ wc.Store = (*Store)(nil)
