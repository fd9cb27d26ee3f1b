package conflict

import (
	"github.com/aboseley/subversion/internal/types"
)

// resolveAlgorithm identifies the algorithm bound to an option at
// catalog-build time. Dispatch is a switch in resolve.go, keeping the
// legal-option/kind relationship visible in one place.
type resolveAlgorithm int

const (
	algoPostpone resolveAlgorithm = iota
	algoText
	algoProp
	algoAcceptCurrentWCState
	algoBreakMovedAway
	algoRaiseMovedAway
	algoUpdateMovedAwayNode
)

// Option is one entry of a resolution-option catalog. Options are bound to
// the conflict whose catalog produced them.
type Option struct {
	id          types.OptionID
	description string
	conflict    *Conflict
	algo        resolveAlgorithm

	// Property options only: the property to resolve ("" means all
	// conflicted properties) and an optional caller-supplied merged value.
	propName      string
	mergedPropVal *string
}

// ID returns the option's stable identifier.
func (o *Option) ID() types.OptionID { return o.id }

// Describe returns the option's human-readable description.
func (o *Option) Describe() string { return o.description }

// SetMergedPropVal supplies a merged property value for property options.
func (o *Option) SetMergedPropVal(val *string) { o.mergedPropVal = val }

// textOptionTemplates is the catalog for non-binary text conflicts.
var textOptionTemplates = []Option{
	{id: types.OptionPostpone, description: "skip this conflict and leave it unresolved", algo: algoPostpone},
	{id: types.OptionBaseText, description: "discard local and incoming changes for this file", algo: algoText},
	{id: types.OptionIncomingText, description: "accept incoming version of entire file", algo: algoText},
	{id: types.OptionWorkingText, description: "reject all incoming changes for this file", algo: algoText},
	{id: types.OptionIncomingTextWhereConflicted, description: "accept changes only where they conflict", algo: algoText},
	{id: types.OptionWorkingTextWhereConflicted, description: "reject changes which conflict and accept the rest", algo: algoText},
	{id: types.OptionMergedText, description: "accept the file as it appears in the working copy", algo: algoText},
}

// binaryOptionTemplates is the catalog for binary text conflicts. Line-level
// merging is undefined for binary content, so the partial-acceptance and
// discard-both options are omitted.
var binaryOptionTemplates = []Option{
	{id: types.OptionPostpone, description: "skip this conflict and leave it unresolved", algo: algoPostpone},
	{id: types.OptionIncomingText, description: "accept incoming version of binary file", algo: algoText},
	{id: types.OptionWorkingText, description: "accept working copy version of binary file", algo: algoText},
	{id: types.OptionMergedText, description: "accept the file as it appears in the working copy", algo: algoText},
}

// propOptionTemplates is the catalog for property conflicts.
var propOptionTemplates = []Option{
	{id: types.OptionPostpone, description: "skip this conflict and leave it unresolved", algo: algoPostpone},
	{id: types.OptionBaseText, description: "discard local and incoming changes for this property", algo: algoProp},
	{id: types.OptionIncomingText, description: "accept incoming version of entire property value", algo: algoProp},
	{id: types.OptionWorkingText, description: "accept working copy version of entire property value", algo: algoProp},
	{id: types.OptionIncomingTextWhereConflicted, description: "accept changes only where they conflict", algo: algoProp},
	{id: types.OptionWorkingTextWhereConflicted, description: "reject changes which conflict and accept the rest", algo: algoProp},
	{id: types.OptionMergedText, description: "accept merged version of property value", algo: algoProp},
}

// TextOptions returns the legal resolution options for the text conflict.
// Binary files, determined by the stored MIME type, get the reduced catalog.
// The returned slice is fresh; callers may localize or reorder it.
func (c *Conflict) TextOptions() ([]*Option, error) {
	if err := c.assertText(); err != nil {
		return nil, err
	}
	templates := textOptionTemplates
	if types.IsBinaryMimeType(c.textConflict.MimeType) {
		templates = binaryOptionTemplates
	}
	return c.instantiate(templates), nil
}

// PropOptions returns the legal resolution options for property conflicts
// on this item.
func (c *Conflict) PropOptions() ([]*Option, error) {
	if err := c.assertProp(); err != nil {
		return nil, err
	}
	return c.instantiate(propOptionTemplates), nil
}

// TreeOptions returns the legal resolution options for the tree conflict.
// Postpone and accept-current-wc-state are always present; move-aware
// options are added for the conflict states they can handle.
func (c *Conflict) TreeOptions() ([]*Option, error) {
	if err := c.assertTree(); err != nil {
		return nil, err
	}

	operation := c.Operation()
	localChange := c.LocalChange()
	incomingChange := c.IncomingChange()

	options := []*Option{
		{
			id:          types.OptionPostpone,
			description: "skip this conflict and leave it unresolved",
			conflict:    c,
			algo:        algoPostpone,
		},
	}

	accept := &Option{
		id:          types.OptionAcceptCurrentWCState,
		description: "accept current working copy state",
		conflict:    c,
		algo:        algoAcceptCurrentWCState,
	}
	if (operation == types.OperationUpdate || operation == types.OperationSwitch) &&
		(localChange == types.ReasonMovedAway ||
			localChange == types.ReasonDeleted ||
			localChange == types.ReasonReplaced) &&
		incomingChange == types.ActionEdit {
		// Accepting the current state here abandons the move source, so
		// any outstanding move record must be broken or it would be left
		// dangling.
		accept.algo = algoBreakMovedAway
	}
	options = append(options, accept)

	if operation == types.OperationUpdate || operation == types.OperationSwitch {
		if localChange == types.ReasonMovedAway && incomingChange == types.ActionEdit {
			options = append(options, &Option{
				id:          types.OptionUpdateMoveDestination,
				description: "apply incoming changes to move destination",
				conflict:    c,
				algo:        algoUpdateMovedAwayNode,
			})
		} else if localChange == types.ReasonDeleted || localChange == types.ReasonReplaced {
			if incomingChange == types.ActionEdit && c.VictimNodeKind() == types.NodeDir {
				options = append(options, &Option{
					id:          types.OptionUpdateAnyMovedAwayChildren,
					description: "prepare for updating moved-away children, if any",
					conflict:    c,
					algo:        algoRaiseMovedAway,
				})
			}
		}
	}

	return options, nil
}

// instantiate copies catalog templates into fresh options bound to c.
func (c *Conflict) instantiate(templates []Option) []*Option {
	options := make([]*Option, len(templates))
	for i := range templates {
		opt := templates[i]
		opt.conflict = c
		options[i] = &opt
	}
	return options
}

// FindOptionByID returns the option with the given id, or nil.
func FindOptionByID(options []*Option, id types.OptionID) *Option {
	for _, opt := range options {
		if opt.id == id {
			return opt
		}
	}
	return nil
}

// remapLegacyTreeOptionID translates the coarse pre-existing resolution
// vocabulary onto the richer tree option set, so old callers keep working.
// The first matching pattern wins; unmatched ids pass through unchanged.
func remapLegacyTreeOptionID(c *Conflict, id types.OptionID) types.OptionID {
	switch id {
	case types.OptionWorkingTextWhereConflicted:
		operation := c.Operation()
		if operation == types.OperationUpdate || operation == types.OperationSwitch {
			switch reason := c.LocalChange(); {
			case reason == types.ReasonMovedAway:
				return types.OptionUpdateMoveDestination
			case reason == types.ReasonDeleted || reason == types.ReasonReplaced:
				if c.IncomingChange() == types.ActionEdit &&
					c.VictimNodeKind() == types.NodeDir {
					return types.OptionUpdateAnyMovedAwayChildren
				}
			}
		}
	case types.OptionMergedText:
		return types.OptionAcceptCurrentWCState
	}
	return id
}
