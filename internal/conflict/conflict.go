// Package conflict implements the conflict-resolution core: the aggregate
// view of all conflicts on one versioned item, the per-kind resolution
// option catalogs, resolution dispatch under a scoped write lock, and the
// historical analysis that explains incoming-delete tree conflicts.
package conflict

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/aboseley/subversion/internal/ra"
	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc"
)

// Precondition violations: the caller asked for operations on a conflict
// kind the aggregate does not have. These signal programmer error.
var (
	ErrNoTextConflict = errors.New("no text conflict recorded")
	ErrNoPropConflict = errors.New("no property conflict recorded")
	ErrNoTreeConflict = errors.New("no tree conflict recorded")
)

// ErrOptionNotApplicable is returned when a resolution option id is not in
// the catalog for the conflict's current state.
var ErrOptionNotApplicable = errors.New("conflict resolution option not applicable")

// ErrPropNotConflicted is returned when a property-value query names a
// property that is not in conflict.
var ErrPropNotConflicted = errors.New("property is not in conflict")

// CancelFunc is a cooperative cancellation check supplied by the host
// environment. It returns a non-nil error to abort the current step.
type CancelFunc func() error

// Context carries the resolver's external collaborators. It corresponds to
// the client context the surrounding system threads through every call.
type Context struct {
	Store  wc.Store
	Repos  ra.Opener
	Notify wc.NotifyFunc

	// Cancel, when non-nil, is honored at each externally-visible step of
	// structural tree-conflict mutations.
	Cancel CancelFunc
}

func (cc *Context) checkCancel() error {
	if cc.Cancel != nil {
		return cc.Cancel()
	}
	return nil
}

// treeDescriptionKind selects the tree-conflict description strategy.
type treeDescriptionKind int

const (
	describeGeneric treeDescriptionKind = iota
	describeIncomingDelete
)

// treeDetailsKind selects the details-computation strategy. detailsNone
// means GetTreeDetails is a no-op for this conflict.
type treeDetailsKind int

const (
	detailsNone treeDetailsKind = iota
	detailsIncomingDelete
)

// Conflict is the aggregate view of all conflicts recorded on one local
// path. It is exclusively owned by its caller for the duration of one
// resolution workflow and is never persisted; the working-copy store
// remains the system of record.
type Conflict struct {
	localPath string
	ctx       *Context

	textConflict  *types.Descriptor
	propConflicts map[string]*types.Descriptor
	propOrder     []string
	treeConflict  *types.Descriptor

	resolutionText types.OptionID
	resolutionTree types.OptionID
	resolvedProps  map[string]*Option

	describeTree   treeDescriptionKind
	computeDetails treeDetailsKind
	treeDetails    *TreeDetails
	detailsGroup   singleflight.Group
}

// Get builds the conflict aggregate for localPath from all descriptors the
// working-copy store has recorded for it.
func Get(ctx context.Context, localPath string, cctx *Context) (*Conflict, error) {
	c := newConflict(localPath, cctx)
	descs, err := cctx.Store.ReadConflicts(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("read conflicts for %q: %w", localPath, err)
	}
	for i := range descs {
		c.addDescriptor(&descs[i])
	}
	c.typeSpecificSetup()
	return c, nil
}

// FromDescriptor builds an aggregate around a single descriptor, for
// compatibility call sites that already hold one.
func FromDescriptor(desc *types.Descriptor, cctx *Context) *Conflict {
	c := newConflict(desc.LocalPath, cctx)
	c.addDescriptor(desc)
	c.typeSpecificSetup()
	return c
}

func newConflict(localPath string, cctx *Context) *Conflict {
	return &Conflict{
		localPath:      localPath,
		ctx:            cctx,
		propConflicts:  make(map[string]*types.Descriptor),
		resolvedProps:  make(map[string]*Option),
		resolutionText: types.OptionUnspecified,
		resolutionTree: types.OptionUnspecified,
	}
}

func (c *Conflict) addDescriptor(desc *types.Descriptor) {
	switch desc.Kind {
	case types.KindText:
		c.textConflict = desc
	case types.KindProperty:
		if _, seen := c.propConflicts[desc.PropertyName]; !seen {
			c.propOrder = append(c.propOrder, desc.PropertyName)
		}
		c.propConflicts[desc.PropertyName] = desc
	case types.KindTree:
		c.treeConflict = desc
	}
}

// typeSpecificSetup selects the description and details strategies for a
// tree conflict. It must run once, eagerly, at construction time: later
// description and details requests dispatch on the strategies chosen here.
func (c *Conflict) typeSpecificSetup() {
	c.describeTree = describeGeneric
	if c.treeConflict == nil {
		return
	}
	op := c.Operation()
	if c.IncomingChange() == types.ActionDelete &&
		(op == types.OperationUpdate || op == types.OperationSwitch) {
		c.describeTree = describeIncomingDelete
		c.computeDetails = detailsIncomingDelete
	}
}

// firstDescriptor returns the descriptor classification queries read from:
// text, then tree, then the first recorded property conflict.
func (c *Conflict) firstDescriptor() *types.Descriptor {
	if c.textConflict != nil {
		return c.textConflict
	}
	if c.treeConflict != nil {
		return c.treeConflict
	}
	for _, name := range c.propOrder {
		if d, ok := c.propConflicts[name]; ok {
			return d
		}
	}
	return nil
}

// LocalPath returns the conflicted path in the working copy.
func (c *Conflict) LocalPath() string { return c.localPath }

// Operation returns the client operation that flagged the conflict.
func (c *Conflict) Operation() types.Operation {
	if d := c.firstDescriptor(); d != nil {
		return d.Operation
	}
	return types.OperationNone
}

// IncomingChange returns the incoming change that conflicted.
func (c *Conflict) IncomingChange() types.Action {
	if d := c.firstDescriptor(); d != nil {
		return d.Action
	}
	return ""
}

// LocalChange returns the local change that conflicted.
func (c *Conflict) LocalChange() types.Reason {
	if d := c.firstDescriptor(); d != nil {
		return d.Reason
	}
	return ""
}

// Conflicted reports which conflict kinds are recorded: whether a text
// conflict exists, the names of conflicted properties in recorded order,
// and whether a tree conflict exists.
func (c *Conflict) Conflicted() (text bool, props []string, tree bool) {
	props = make([]string, len(c.propOrder))
	copy(props, c.propOrder)
	return c.textConflict != nil, props, c.treeConflict != nil
}

func (c *Conflict) assertText() error {
	if c.textConflict == nil {
		return fmt.Errorf("%w on %q", ErrNoTextConflict, c.localPath)
	}
	return nil
}

func (c *Conflict) assertProp() error {
	if len(c.propConflicts) == 0 {
		return fmt.Errorf("%w on %q", ErrNoPropConflict, c.localPath)
	}
	return nil
}

func (c *Conflict) assertTree() error {
	if c.treeConflict == nil {
		return fmt.Errorf("%w on %q", ErrNoTreeConflict, c.localPath)
	}
	return nil
}

// VictimNodeKind returns the node kind of the tree-conflict victim, or
// NodeUnknown when there is no tree conflict.
func (c *Conflict) VictimNodeKind() types.NodeKind {
	if c.treeConflict == nil {
		return types.NodeUnknown
	}
	return c.treeConflict.NodeKind
}

// ReposRootURL returns the repository root URL, preferring the incoming
// old location over the new one.
func (c *Conflict) ReposRootURL() string {
	if d := c.firstDescriptor(); d != nil {
		if d.Left != nil {
			return d.Left.RootURL
		}
		if d.Right != nil {
			return d.Right.RootURL
		}
	}
	return ""
}

// ReposUUID returns the repository UUID, preferring the incoming old
// location over the new one.
func (c *Conflict) ReposUUID() string {
	if d := c.firstDescriptor(); d != nil {
		if d.Left != nil {
			return d.Left.UUID
		}
		if d.Right != nil {
			return d.Right.UUID
		}
	}
	return ""
}

// IncomingOldLocation returns the repository location of the incoming
// change's old side, or nil.
func (c *Conflict) IncomingOldLocation() *types.ReposLocation {
	if d := c.firstDescriptor(); d != nil {
		return d.Left
	}
	return nil
}

// IncomingNewLocation returns the repository location of the incoming
// change's new side, or nil.
func (c *Conflict) IncomingNewLocation() *types.ReposLocation {
	if d := c.firstDescriptor(); d != nil {
		return d.Right
	}
	return nil
}

// TextMimeType returns the stored MIME type of the text-conflicted file.
func (c *Conflict) TextMimeType() (string, error) {
	if err := c.assertText(); err != nil {
		return "", err
	}
	return c.textConflict.MimeType, nil
}

// TextContents returns the on-disk locations of the four content versions
// of a text conflict. The base version is unavailable for merge conflicts.
func (c *Conflict) TextContents() (base, working, incomingOld, incomingNew string, err error) {
	if err := c.assertText(); err != nil {
		return "", "", "", "", err
	}
	d := c.textConflict
	base = d.BaseFile
	if c.Operation() == types.OperationMerge {
		base = ""
	}
	return base, d.WorkingFile, d.BaseFile, d.IncomingFile, nil
}

// PropValues returns the four versions of the named conflicted property.
func (c *Conflict) PropValues(propName string) (*types.PropValues, error) {
	if err := c.assertProp(); err != nil {
		return nil, err
	}
	d, ok := c.propConflicts[propName]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", ErrPropNotConflicted, propName, c.localPath)
	}
	if d.PropValues == nil {
		return &types.PropValues{}, nil
	}
	vals := *d.PropValues
	return &vals, nil
}

// PropRejectFile returns the path of the property-conflict marker file.
func (c *Conflict) PropRejectFile() (string, error) {
	if err := c.assertProp(); err != nil {
		return "", err
	}
	for _, name := range c.propOrder {
		if d, ok := c.propConflicts[name]; ok {
			return d.RejectFile, nil
		}
	}
	return "", nil
}

// TextResolution returns the option that resolved the text conflict, or
// OptionUnspecified while it is unresolved.
func (c *Conflict) TextResolution() types.OptionID { return c.resolutionText }

// TreeResolution returns the option that resolved the tree conflict, or
// OptionUnspecified while it is unresolved.
func (c *Conflict) TreeResolution() types.OptionID { return c.resolutionTree }

// PropResolution returns the option that resolved the named property
// conflict, or OptionUnspecified.
func (c *Conflict) PropResolution(propName string) types.OptionID {
	if opt, ok := c.resolvedProps[propName]; ok {
		return opt.id
	}
	return types.OptionUnspecified
}
