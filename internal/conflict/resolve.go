package conflict

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aboseley/subversion/internal/telemetry"
	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc"
)

var resolutionCounter metric.Int64Counter

func init() {
	resolutionCounter, _ = telemetry.Meter("").Int64Counter("svn.conflict.resolutions",
		metric.WithDescription("Conflicts resolved, by kind and option"),
	)
}

func countResolution(ctx context.Context, kind types.Kind, id types.OptionID) {
	if resolutionCounter == nil {
		return
	}
	resolutionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("conflict.kind", string(kind)),
		attribute.String("conflict.option", string(id)),
	))
}

// withWriteLock runs mutate under the scoped write lock for the conflicted
// path. The lock is released on every path; a release failure is joined
// with the mutation's error so neither is dropped.
func (c *Conflict) withWriteLock(ctx context.Context, mutate func(context.Context) error) error {
	lockPath, err := c.ctx.Store.AcquireWriteLock(ctx, c.localPath)
	if err != nil {
		return fmt.Errorf("acquire write lock for %q: %w", c.localPath, err)
	}
	mutErr := mutate(ctx)
	if relErr := c.ctx.Store.ReleaseWriteLock(ctx, lockPath); relErr != nil {
		mutErr = errors.Join(mutErr, relErr)
	}
	return mutErr
}

// sleepForTimestamps is stubbed out in tests; resolution paths that touch
// file content call it after releasing the lock.
var sleepForTimestamps = settleTimestamps

// settleTimestamps blocks until the wall clock has advanced past the
// filesystem timestamp granularity of path's mtime, so mtime-based change
// detection elsewhere cannot mistake a just-resolved file for unmodified.
func settleTimestamps(path string) {
	now := time.Now()
	if fi, err := os.Stat(path); err == nil {
		if fi.ModTime().Truncate(time.Second).Before(now.Truncate(time.Second)) {
			// mtime is already in an earlier second; nothing can race.
			return
		}
	}
	next := now.Truncate(time.Second).Add(time.Second + 10*time.Millisecond)
	time.Sleep(time.Until(next))
}

// ResolveText resolves the text conflict with the given option.
func (c *Conflict) ResolveText(ctx context.Context, option *Option) error {
	if err := c.assertText(); err != nil {
		return err
	}
	return c.runResolve(ctx, option)
}

// ResolveTextByID resolves the text conflict with the catalog option
// carrying the given id.
func (c *Conflict) ResolveTextByID(ctx context.Context, id types.OptionID) error {
	options, err := c.TextOptions()
	if err != nil {
		return err
	}
	option := FindOptionByID(options, id)
	if option == nil {
		return c.inapplicable(id)
	}
	return c.ResolveText(ctx, option)
}

// ResolveProp resolves the named property conflict ("" resolves all
// conflicted properties) with the given option.
func (c *Conflict) ResolveProp(ctx context.Context, propName string, option *Option) error {
	if err := c.assertProp(); err != nil {
		return err
	}
	option.propName = propName
	return c.runResolve(ctx, option)
}

// ResolvePropByID resolves the named property conflict with the catalog
// option carrying the given id.
func (c *Conflict) ResolvePropByID(ctx context.Context, propName string, id types.OptionID) error {
	options, err := c.PropOptions()
	if err != nil {
		return err
	}
	option := FindOptionByID(options, id)
	if option == nil {
		return c.inapplicable(id)
	}
	return c.ResolveProp(ctx, propName, option)
}

// ResolveTree resolves the tree conflict with the given option.
func (c *Conflict) ResolveTree(ctx context.Context, option *Option) error {
	if err := c.assertTree(); err != nil {
		return err
	}
	return c.runResolve(ctx, option)
}

// ResolveTreeByID resolves the tree conflict with the catalog option
// carrying the given id. Legacy coarse ids are remapped onto the modern
// option set before lookup.
func (c *Conflict) ResolveTreeByID(ctx context.Context, id types.OptionID) error {
	id = remapLegacyTreeOptionID(c, id)
	options, err := c.TreeOptions()
	if err != nil {
		return err
	}
	option := FindOptionByID(options, id)
	if option == nil {
		return c.inapplicable(id)
	}
	return c.ResolveTree(ctx, option)
}

func (c *Conflict) inapplicable(id types.OptionID) error {
	return fmt.Errorf("%w: option %q for conflicted path %q",
		ErrOptionNotApplicable, id, c.localPath)
}

// runResolve dispatches on the algorithm bound to the option at
// catalog-build time. Resolution state is updated only after the algorithm
// has fully succeeded; on failure the conflict stays unresolved and the
// call may be retried.
func (c *Conflict) runResolve(ctx context.Context, option *Option) error {
	switch option.algo {
	case algoPostpone:
		return nil
	case algoText:
		return c.resolveTextConflict(ctx, option)
	case algoProp:
		return c.resolvePropConflict(ctx, option)
	case algoAcceptCurrentWCState:
		return c.resolveAcceptCurrentWCState(ctx, option)
	case algoBreakMovedAway:
		return c.resolveBreakMovedAway(ctx, option)
	case algoRaiseMovedAway:
		return c.resolveRaiseMovedAway(ctx, option)
	case algoUpdateMovedAwayNode:
		return c.resolveUpdateMovedAwayNode(ctx, option)
	}
	return c.inapplicable(option.id)
}

func (c *Conflict) resolveTextConflict(ctx context.Context, option *Option) error {
	choice := option.id.LegacyChoice()
	err := c.withWriteLock(ctx, func(ctx context.Context) error {
		return c.ctx.Store.MarkTextResolved(ctx, c.localPath, choice, c.ctx.Notify)
	})
	sleepForTimestamps(c.localPath)
	if err != nil {
		return err
	}
	c.resolutionText = option.id
	countResolution(ctx, types.KindText, option.id)
	return nil
}

func (c *Conflict) resolvePropConflict(ctx context.Context, option *Option) error {
	choice := option.id.LegacyChoice()
	err := c.withWriteLock(ctx, func(ctx context.Context) error {
		return c.ctx.Store.MarkPropResolved(ctx, c.localPath, option.propName, choice, c.ctx.Notify)
	})
	sleepForTimestamps(c.localPath)
	if err != nil {
		return err
	}

	if option.propName == "" {
		// All conflicted properties were resolved to this one option.
		// Clear the mapping in one step rather than deleting during
		// traversal.
		for _, name := range c.propOrder {
			c.resolvedProps[name] = option
		}
		c.propConflicts = make(map[string]*types.Descriptor)
		c.propOrder = nil
	} else {
		c.resolvedProps[option.propName] = option
		delete(c.propConflicts, option.propName)
		for i, name := range c.propOrder {
			if name == option.propName {
				c.propOrder = append(c.propOrder[:i], c.propOrder[i+1:]...)
				break
			}
		}
	}
	countResolution(ctx, types.KindProperty, option.id)
	return nil
}

func (c *Conflict) resolveAcceptCurrentWCState(ctx context.Context, option *Option) error {
	if option.id != types.OptionAcceptCurrentWCState {
		return fmt.Errorf("tree conflict on %q can only be resolved to the current working copy state",
			c.localPath)
	}
	err := c.withWriteLock(ctx, func(ctx context.Context) error {
		if err := c.ctx.checkCancel(); err != nil {
			return err
		}
		if err := c.ctx.Store.DeleteTreeConflict(ctx, c.localPath); err != nil {
			return err
		}
		// The store's tree-conflict deletion does not notify on its own.
		if c.ctx.Notify != nil {
			c.ctx.Notify(wc.Notification{Path: c.localPath, Action: wc.NotifyResolved})
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.resolutionTree = option.id
	countResolution(ctx, types.KindTree, option.id)
	return nil
}

func (c *Conflict) resolveBreakMovedAway(ctx context.Context, option *Option) error {
	err := c.withWriteLock(ctx, func(ctx context.Context) error {
		if err := c.ctx.checkCancel(); err != nil {
			return err
		}
		if err := c.ctx.Store.BreakMovedAway(ctx, c.localPath, c.ctx.Notify); err != nil {
			return err
		}
		if err := c.ctx.checkCancel(); err != nil {
			return err
		}
		if err := c.ctx.Store.DeleteTreeConflict(ctx, c.localPath); err != nil {
			return err
		}
		if c.ctx.Notify != nil {
			c.ctx.Notify(wc.Notification{Path: c.localPath, Action: wc.NotifyResolved})
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.resolutionTree = option.id
	countResolution(ctx, types.KindTree, option.id)
	return nil
}

func (c *Conflict) resolveRaiseMovedAway(ctx context.Context, option *Option) error {
	err := c.withWriteLock(ctx, func(ctx context.Context) error {
		if err := c.ctx.checkCancel(); err != nil {
			return err
		}
		return c.ctx.Store.RaiseMovedAway(ctx, c.localPath, c.ctx.Notify)
	})
	if err != nil {
		return err
	}
	c.resolutionTree = option.id
	countResolution(ctx, types.KindTree, option.id)
	return nil
}

func (c *Conflict) resolveUpdateMovedAwayNode(ctx context.Context, option *Option) error {
	err := c.withWriteLock(ctx, func(ctx context.Context) error {
		if err := c.ctx.checkCancel(); err != nil {
			return err
		}
		return c.ctx.Store.UpdateMovedAwayNode(ctx, c.localPath, c.ctx.Notify)
	})
	sleepForTimestamps(c.localPath)
	if err != nil {
		return err
	}
	c.resolutionTree = option.id
	countResolution(ctx, types.KindTree, option.id)
	return nil
}
