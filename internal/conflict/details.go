package conflict

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aboseley/subversion/internal/debug"
	"github.com/aboseley/subversion/internal/ra"
	"github.com/aboseley/subversion/internal/types"
)

// TreeDetails explains an incoming-delete tree conflict: either the victim
// was deleted (or moved away) in DeletedRev, or its absence is the reverse
// of an addition in AddedRev. Exactly one of the two revisions is valid.
type TreeDetails struct {
	DeletedRev types.Revision
	AddedRev   types.Revision

	// RelPath is the repository path the explaining revision acted on.
	RelPath string

	// Author committed the explaining revision.
	Author string
}

// TreeDetails returns the cached historical details, or nil if they have
// not been (successfully) computed.
func (c *Conflict) TreeDetails() *TreeDetails { return c.treeDetails }

// GetTreeDetails contacts the repository to find out which revision, and
// whose commit, explains the tree conflict. It is a no-op for conflicts
// without a details strategy. An exhausted search is not an error: details
// simply stay absent and descriptions fall back to the generic form.
// Concurrent calls for the same aggregate are collapsed into one analysis.
func (c *Conflict) GetTreeDetails(ctx context.Context) error {
	if err := c.assertTree(); err != nil {
		return err
	}
	if c.computeDetails == detailsNone {
		return nil
	}
	_, err, _ := c.detailsGroup.Do("tree-details", func() (interface{}, error) {
		if c.treeDetails != nil {
			return nil, nil
		}
		return nil, c.computeIncomingDeleteDetails(ctx)
	})
	return err
}

// computeIncomingDeleteDetails finds the revision in which the victim was
// deleted (or first added, for backward operations) in the repository.
func (c *Conflict) computeIncomingDeleteDetails(ctx context.Context) error {
	if c.ctx.Repos == nil {
		return fmt.Errorf("no repository access configured for %q", c.localPath)
	}
	oldLoc := c.IncomingOldLocation()
	newLoc := c.IncomingNewLocation()
	if oldLoc == nil || newLoc == nil {
		return fmt.Errorf("tree conflict on %q lacks repository locations", c.localPath)
	}
	rootURL := c.ReposRootURL()

	switch c.Operation() {
	case types.OperationUpdate:
		if oldLoc.PegRev < newLoc.PegRev {
			return c.findDeletedRevDirect(ctx, rootURL, oldLoc, newLoc)
		}
		return c.findAddedRev(ctx, rootURL, oldLoc, newLoc)
	case types.OperationSwitch:
		if oldLoc.PegRev < newLoc.PegRev {
			return c.scanLogForDeletedRev(ctx, rootURL, oldLoc, newLoc)
		}
		return c.findAddedRev(ctx, rootURL, oldLoc, newLoc)
	}
	return nil
}

// findDeletedRevDirect handles update-forward: the transport layer can
// answer "which revision in (old, new] deleted this path" in one query.
func (c *Conflict) findDeletedRevDirect(ctx context.Context, rootURL string, oldLoc, newLoc *types.ReposLocation) error {
	session, err := c.ctx.Repos.Open(ctx, joinURL(rootURL, newLoc.RelPath))
	if err != nil {
		return err
	}
	deletedRev, err := session.GetDeletedRev(ctx, "", oldLoc.PegRev, newLoc.PegRev)
	if err != nil {
		return err
	}
	author, err := session.RevProp(ctx, deletedRev, ra.PropRevisionAuthor)
	if err != nil {
		return err
	}
	c.treeDetails = &TreeDetails{
		DeletedRev: deletedRev,
		AddedRev:   types.RevisionInvalid,
		RelPath:    newLoc.RelPath,
		Author:     author,
	}
	return nil
}

// findAddedRev handles the backward branches: walk the old path's location
// segments from the old revision down to the new one; the first non-gap
// segment reported names the revision the node was added in. The incoming
// delete is the reverse application of that addition.
func (c *Conflict) findAddedRev(ctx context.Context, rootURL string, oldLoc, newLoc *types.ReposLocation) error {
	session, err := c.ctx.Repos.Open(ctx, joinURL(rootURL, oldLoc.RelPath))
	if err != nil {
		return err
	}

	addedRev := types.RevisionInvalid
	addedPath := ""
	err = session.GetLocationSegments(ctx, "", oldLoc.PegRev, oldLoc.PegRev, newLoc.PegRev,
		func(segment *ra.LocationSegment) error {
			if segment.Path != "" && !addedRev.Valid() {
				addedRev = segment.RangeStart
				addedPath = segment.Path
			}
			return nil
		})
	if err != nil {
		return err
	}
	if !addedRev.Valid() {
		debug.Logf("conflict: no addition found for %q in [%d, %d]",
			oldLoc.RelPath, newLoc.PegRev, oldLoc.PegRev)
		return nil
	}

	author, err := session.RevProp(ctx, addedRev, ra.PropRevisionAuthor)
	if err != nil {
		return err
	}
	c.treeDetails = &TreeDetails{
		DeletedRev: types.RevisionInvalid,
		AddedRev:   addedRev,
		RelPath:    addedPath,
		Author:     author,
	}
	return nil
}

// scanLogForDeletedRev handles switch-forward: the deletion happened on the
// branch switched to, and no revision where the node still existed is known
// there. Scan the new path's parent's log newest-to-oldest for an entry
// deleting or replacing the path, and confirm the candidate is the same
// node via a youngest-common-ancestor check against the old location.
// The scan stops at the first confirmed match.
func (c *Conflict) scanLogForDeletedRev(ctx context.Context, rootURL string, oldLoc, newLoc *types.ReposLocation) error {
	session, err := c.ctx.Repos.Open(ctx, joinURL(rootURL, relpathDirname(newLoc.RelPath)))
	if err != nil {
		return err
	}

	deletedRev := types.RevisionInvalid
	err = session.Log(ctx, []string{""}, newLoc.PegRev, 0, 0, true,
		func(entry *ra.LogEntry) (ra.LogAction, error) {
			for _, changed := range entry.ChangedPaths {
				if changed.Action != 'D' && changed.Action != 'R' {
					continue
				}
				if strings.TrimPrefix(changed.Path, "/") != newLoc.RelPath {
					continue
				}
				// A deletion occupies the right path. It is only our victim
				// if it is ancestrally related to the node we switched from.
				yca, ycaErr := session.YoungestCommonAncestor(ctx,
					ra.PathRev{RelPath: oldLoc.RelPath, Rev: oldLoc.PegRev},
					ra.PathRev{RelPath: newLoc.RelPath, Rev: entry.Revision - 1})
				if ycaErr != nil {
					return ra.LogContinue, ycaErr
				}
				if yca != nil {
					deletedRev = entry.Revision
					return ra.LogStop, nil
				}
			}
			return ra.LogContinue, nil
		})
	if err != nil {
		return err
	}
	if !deletedRev.Valid() {
		// The deleting revision could not be determined. Leave details
		// absent; descriptions fall back to the generic form.
		debug.Logf("conflict: log scan found no deletion of %q below r%d",
			newLoc.RelPath, newLoc.PegRev)
		return nil
	}

	author, err := session.RevProp(ctx, deletedRev, ra.PropRevisionAuthor)
	if err != nil {
		return err
	}
	c.treeDetails = &TreeDetails{
		DeletedRev: deletedRev,
		AddedRev:   types.RevisionInvalid,
		RelPath:    newLoc.RelPath,
		Author:     author,
	}
	return nil
}

// joinURL appends a repository relpath to a root URL.
func joinURL(rootURL, relPath string) string {
	rootURL = strings.TrimRight(rootURL, "/")
	relPath = strings.TrimLeft(relPath, "/")
	if relPath == "" {
		return rootURL
	}
	return rootURL + "/" + relPath
}

// relpathDirname returns the parent of a repository relpath, "" for a
// top-level path.
func relpathDirname(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
