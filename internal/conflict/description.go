package conflict

import (
	"fmt"

	"github.com/aboseley/subversion/internal/types"
)

// operationStr renders the operation clause of a conflict description.
func operationStr(operation types.Operation) string {
	switch operation {
	case types.OperationUpdate:
		return "upon update"
	case types.OperationSwitch:
		return "upon switch"
	case types.OperationMerge:
		return "upon merge"
	case types.OperationNone:
		return "upon none"
	}
	return "upon " + string(operation)
}

// localReasonStr renders the local part of a conflict, or "" for
// combinations without a fixed phrase.
func localReasonStr(kind types.NodeKind, reason types.Reason, operation types.Operation) string {
	var noun string
	switch kind {
	case types.NodeFile, types.NodeSymlink:
		noun = "file "
	case types.NodeDir:
		noun = "dir "
	case types.NodeNone, types.NodeUnknown:
		noun = ""
	default:
		return ""
	}

	switch reason {
	case types.ReasonEdited:
		return "local " + noun + "edit"
	case types.ReasonObstructed:
		return "local " + noun + "obstruction"
	case types.ReasonDeleted:
		return "local " + noun + "delete"
	case types.ReasonMissing:
		if operation == types.OperationMerge {
			return "local " + noun + "missing or deleted or moved away"
		}
		return "local " + noun + "missing"
	case types.ReasonUnversioned:
		return "local " + noun + "unversioned"
	case types.ReasonAdded:
		return "local " + noun + "add"
	case types.ReasonReplaced:
		return "local " + noun + "replace"
	case types.ReasonMovedAway:
		return "local " + noun + "moved away"
	case types.ReasonMovedHere:
		return "local " + noun + "moved here"
	}
	return ""
}

// incomingActionStr renders the incoming part of a conflict, or "" for
// combinations without a fixed phrase.
func incomingActionStr(kind types.NodeKind, action types.Action) string {
	switch kind {
	case types.NodeFile, types.NodeSymlink:
		switch action {
		case types.ActionEdit:
			return "incoming file edit"
		case types.ActionAdd:
			return "incoming file add"
		case types.ActionDelete:
			return "incoming file delete or move"
		case types.ActionReplace:
			return "incoming replace with file"
		}
	case types.NodeDir:
		switch action {
		case types.ActionEdit:
			return "incoming dir edit"
		case types.ActionAdd:
			return "incoming dir add"
		case types.ActionDelete:
			return "incoming dir delete or move"
		case types.ActionReplace:
			return "incoming replace with dir"
		}
	case types.NodeNone, types.NodeUnknown:
		switch action {
		case types.ActionEdit:
			return "incoming edit"
		case types.ActionAdd:
			return "incoming add"
		case types.ActionDelete:
			return "incoming delete or move"
		case types.ActionReplace:
			return "incoming replace"
		}
	}
	return ""
}

// PropDescription summarizes the property conflict in one sentence.
func (c *Conflict) PropDescription() (string, error) {
	if err := c.assertProp(); err != nil {
		return "", err
	}

	var reason string
	switch r := c.LocalChange(); r {
	case types.ReasonEdited:
		reason = "local edit"
	case types.ReasonAdded:
		reason = "local add"
	case types.ReasonDeleted:
		reason = "local delete"
	case types.ReasonObstructed:
		reason = "local obstruction"
	default:
		reason = "local " + string(r)
	}

	var action string
	switch a := c.IncomingChange(); a {
	case types.ActionEdit:
		action = "incoming edit"
	case types.ActionAdd:
		action = "incoming add"
	case types.ActionDelete:
		action = "incoming delete"
	default:
		action = "incoming " + string(a)
	}

	return fmt.Sprintf("%s, %s %s", reason, action, operationStr(c.Operation())), nil
}

// TreeDescription summarizes the tree conflict in one sentence, using the
// description strategy selected at construction time. When historical
// details are cached the incoming clause names the explaining revision and
// its author.
func (c *Conflict) TreeDescription() (string, error) {
	if err := c.assertTree(); err != nil {
		return "", err
	}
	if c.describeTree == describeIncomingDelete {
		return c.treeDescriptionIncomingDelete()
	}
	return c.treeDescriptionGeneric()
}

func (c *Conflict) treeDescriptionGeneric() (string, error) {
	conflictAction := c.IncomingChange()
	conflictReason := c.LocalChange()
	operation := c.Operation()
	victimKind := c.VictimNodeKind()

	// The incoming node kind comes from the side of history the change
	// acted on: edits and deletes act on the old side, adds and replaces
	// on the new side.
	incomingKind := types.NodeUnknown
	switch conflictAction {
	case types.ActionEdit, types.ActionDelete:
		if loc := c.IncomingOldLocation(); loc != nil {
			incomingKind = loc.NodeKind
		}
	case types.ActionAdd, types.ActionReplace:
		if loc := c.IncomingNewLocation(); loc != nil {
			incomingKind = loc.NodeKind
		}
	}

	reason := localReasonStr(victimKind, conflictReason, operation)
	action := incomingActionStr(incomingKind, conflictAction)
	if reason != "" && action != "" {
		return fmt.Sprintf("%s, %s %s", reason, action, operationStr(operation)), nil
	}

	// Catch-all for nominally impossible combinations; closer to an
	// internal error than an ordinary user-facing string.
	return fmt.Sprintf("local: %s %s incoming: %s %s %s",
		victimKind, conflictReason, incomingKind, conflictAction,
		operationStr(operation)), nil
}

func (c *Conflict) treeDescriptionIncomingDelete() (string, error) {
	details := c.treeDetails
	if details == nil {
		return c.treeDescriptionGeneric()
	}

	victimKind := c.VictimNodeKind()
	reason := localReasonStr(victimKind, c.LocalChange(), c.Operation())
	if reason == "" {
		return c.treeDescriptionGeneric()
	}
	oldLoc := c.IncomingOldLocation()
	newLoc := c.IncomingNewLocation()
	if oldLoc == nil || newLoc == nil {
		return c.treeDescriptionGeneric()
	}

	noun := "item"
	switch victimKind {
	case types.NodeDir:
		noun = "dir"
	case types.NodeFile, types.NodeSymlink:
		noun = "file"
	}

	var action string
	switch c.Operation() {
	case types.OperationUpdate:
		if details.DeletedRev.Valid() {
			action = fmt.Sprintf("%s updated to r%d was deleted or moved by %s in r%d",
				noun, newLoc.PegRev, details.Author, details.DeletedRev)
		} else {
			// This deletion is really the reverse change of an addition.
			action = fmt.Sprintf("%s updated to r%d did not exist before it was added by %s in r%d",
				noun, newLoc.PegRev, details.Author, details.AddedRev)
		}
	case types.OperationSwitch:
		if details.DeletedRev.Valid() {
			action = fmt.Sprintf("%s switched from %s@r%d to %s@r%d was deleted or moved by %s in r%d",
				noun, oldLoc.RelPath, oldLoc.PegRev, newLoc.RelPath, newLoc.PegRev,
				details.Author, details.DeletedRev)
		} else {
			action = fmt.Sprintf("%s switched from %s@r%d to %s@r%d did not exist before it was added by %s in r%d",
				noun, oldLoc.RelPath, oldLoc.PegRev, newLoc.RelPath, newLoc.PegRev,
				details.Author, details.AddedRev)
		}
	default:
		return c.treeDescriptionGeneric()
	}

	return fmt.Sprintf("%s, %s", reason, action), nil
}
