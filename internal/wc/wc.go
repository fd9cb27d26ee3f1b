// Package wc defines the interface to the working-copy metadata store.
//
// The conflict resolver only consumes this interface; the store itself is an
// external collaborator. Two implementations ship with this module: an
// in-memory store (wc/memory) for tests and demos, and a SQL-backed store
// (wc/doltstore) modeled on the working copy's on-disk metadata database.
package wc

import (
	"context"
	"errors"

	"github.com/aboseley/subversion/internal/types"
)

// ErrNotLocked is returned when a lock release does not match an
// outstanding acquisition.
var ErrNotLocked = errors.New("path is not write-locked")

// ErrLockHeld is returned when a write lock is already held for the path.
var ErrLockHeld = errors.New("write lock already held")

// NotifyAction identifies a working-copy notification event.
type NotifyAction string

const (
	// NotifyResolved signals that a conflict on a path has been resolved.
	NotifyResolved NotifyAction = "resolved"
)

// Notification describes a working-copy event delivered to the client.
type Notification struct {
	Path   string
	Action NotifyAction
}

// NotifyFunc receives working-copy notifications.
type NotifyFunc func(Notification)

// Store is the working-copy metadata store consumed by the resolver.
//
// All mutating methods require the caller to hold the write lock for the
// path (or a parent) obtained from AcquireWriteLock. Methods taking a
// NotifyFunc deliver their own resolution notifications; DeleteTreeConflict
// does not, mirroring the store's historical split.
type Store interface {
	// ReadConflicts returns all conflict descriptors recorded for localPath,
	// in stable order: text first, then properties, then tree. An empty
	// slice means the path is not conflicted.
	ReadConflicts(ctx context.Context, localPath string) ([]types.Descriptor, error)

	// AcquireWriteLock obtains a scoped write lock covering localPath and
	// returns the path the lock was actually taken on (possibly a parent).
	AcquireWriteLock(ctx context.Context, localPath string) (lockPath string, err error)

	// ReleaseWriteLock releases a lock previously returned by
	// AcquireWriteLock. It must be called even if the guarded mutation
	// failed.
	ReleaseWriteLock(ctx context.Context, lockPath string) error

	// MarkTextResolved records the text conflict on localPath as resolved
	// with the given legacy choice and removes its conflict markers.
	MarkTextResolved(ctx context.Context, localPath string, choice types.LegacyChoice, notify NotifyFunc) error

	// MarkPropResolved records the named property conflict as resolved with
	// the given legacy choice. An empty propName resolves all conflicted
	// properties on the path.
	MarkPropResolved(ctx context.Context, localPath, propName string, choice types.LegacyChoice, notify NotifyFunc) error

	// DeleteTreeConflict removes the tree-conflict record from localPath.
	DeleteTreeConflict(ctx context.Context, localPath string) error

	// BreakMovedAway breaks the move relationship whose source is
	// localPath, leaving the destination as a plain copy.
	BreakMovedAway(ctx context.Context, localPath string, notify NotifyFunc) error

	// RaiseMovedAway raises tree conflicts on any children of localPath
	// that were moved away, so they can be resolved individually.
	RaiseMovedAway(ctx context.Context, localPath string, notify NotifyFunc) error

	// UpdateMovedAwayNode applies the incoming edits on localPath to its
	// move destination.
	UpdateMovedAwayNode(ctx context.Context, localPath string, notify NotifyFunc) error
}
