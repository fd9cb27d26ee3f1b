// Package subversion provides a minimal public API for embedding the
// conflict resolver in other tools.
//
// Most integrations should drive the svn-resolve CLI. This package exports
// only the types and constructors needed to use the resolver's storage and
// conflict machinery programmatically.
package subversion

import (
	"context"

	"github.com/aboseley/subversion/internal/conflict"
	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc"
	"github.com/aboseley/subversion/internal/wc/doltstore"
	"github.com/aboseley/subversion/internal/wc/memory"
)

// Core types for working with conflicts
type (
	Conflict    = conflict.Conflict
	Context     = conflict.Context
	Option      = conflict.Option
	TreeDetails = conflict.TreeDetails
	Descriptor  = types.Descriptor
	OptionID    = types.OptionID
	Notifier    = wc.NotifyFunc
)

// Resolution option identifiers
const (
	OptionPostpone                    = types.OptionPostpone
	OptionBaseText                    = types.OptionBaseText
	OptionIncomingText                = types.OptionIncomingText
	OptionWorkingText                 = types.OptionWorkingText
	OptionIncomingTextWhereConflicted = types.OptionIncomingTextWhereConflicted
	OptionWorkingTextWhereConflicted  = types.OptionWorkingTextWhereConflicted
	OptionMergedText                  = types.OptionMergedText
	OptionAcceptCurrentWCState        = types.OptionAcceptCurrentWCState
	OptionUpdateMoveDestination       = types.OptionUpdateMoveDestination
	OptionUpdateAnyMovedAwayChildren  = types.OptionUpdateAnyMovedAwayChildren
)

// Store is the working-copy metadata store consumed by the resolver.
type Store = wc.Store

// StoreConfig describes how to open the SQL-backed store.
type StoreConfig = doltstore.Config

// OpenStore opens (creating if needed) the SQL-backed working-copy store.
func OpenStore(ctx context.Context, cfg *StoreConfig) (*doltstore.Store, error) {
	return doltstore.New(ctx, cfg)
}

// NewMemoryStore returns an in-memory store, useful for tests and demos.
func NewMemoryStore() *memory.Store {
	return memory.New()
}

// Get builds the conflict aggregate for a working-copy path.
func Get(ctx context.Context, localPath string, cctx *Context) (*Conflict, error) {
	return conflict.Get(ctx, localPath, cctx)
}
