// Package types defines the core data structures shared by the conflict
// resolver: conflict descriptors, the enums that classify them, and the
// mapping onto the legacy resolution-choice vocabulary.
package types

import "strings"

// Revision numbers a repository commit. RevisionInvalid marks "no revision".
type Revision int64

// RevisionInvalid is the sentinel for an unknown or absent revision.
const RevisionInvalid Revision = -1

// Valid reports whether r refers to an actual revision.
func (r Revision) Valid() bool { return r >= 0 }

// Kind classifies a conflict recorded on a versioned item.
type Kind string

const (
	KindText     Kind = "text"
	KindProperty Kind = "property"
	KindTree     Kind = "tree"
)

// IsValid returns true if the kind is one of the known conflict kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindText, KindProperty, KindTree:
		return true
	}
	return false
}

// Operation identifies the client operation that flagged the conflict.
type Operation string

const (
	OperationNone   Operation = "none"
	OperationUpdate Operation = "update"
	OperationSwitch Operation = "switch"
	OperationMerge  Operation = "merge"
)

// IsValid returns true if the operation is one of the known operations.
func (o Operation) IsValid() bool {
	switch o {
	case OperationNone, OperationUpdate, OperationSwitch, OperationMerge:
		return true
	}
	return false
}

// Action describes the incoming change that conflicted.
type Action string

const (
	ActionEdit    Action = "edit"
	ActionAdd     Action = "add"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
)

// IsValid returns true if the action is one of the known incoming changes.
func (a Action) IsValid() bool {
	switch a {
	case ActionEdit, ActionAdd, ActionDelete, ActionReplace:
		return true
	}
	return false
}

// Reason describes the local change that conflicted with the incoming one.
type Reason string

const (
	ReasonEdited      Reason = "edit"
	ReasonDeleted     Reason = "delete"
	ReasonMissing     Reason = "missing"
	ReasonObstructed  Reason = "obstruction"
	ReasonAdded       Reason = "add"
	ReasonReplaced    Reason = "replace"
	ReasonUnversioned Reason = "unversioned"
	ReasonMovedAway   Reason = "moved-away"
	ReasonMovedHere   Reason = "moved-here"
)

// IsValid returns true if the reason is one of the known local changes.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonEdited, ReasonDeleted, ReasonMissing, ReasonObstructed,
		ReasonAdded, ReasonReplaced, ReasonUnversioned,
		ReasonMovedAway, ReasonMovedHere:
		return true
	}
	return false
}

// NodeKind is the filesystem kind of a versioned node.
type NodeKind string

const (
	NodeNone    NodeKind = "none"
	NodeFile    NodeKind = "file"
	NodeDir     NodeKind = "dir"
	NodeSymlink NodeKind = "symlink"
	NodeUnknown NodeKind = "unknown"
)

// IsValid returns true if the node kind is one of the known kinds.
func (n NodeKind) IsValid() bool {
	switch n {
	case NodeNone, NodeFile, NodeDir, NodeSymlink, NodeUnknown:
		return true
	}
	return false
}

// ReposLocation pins a repository path to a peg revision. The left location
// of a descriptor is the incoming change's old side, the right location its
// new side.
type ReposLocation struct {
	// RootURL is the repository root, UUID its identity.
	RootURL string `json:"root_url" yaml:"root_url"`
	UUID    string `json:"uuid,omitempty" yaml:"uuid,omitempty"`

	// RelPath is the path inside the repository, without leading slash.
	RelPath string   `json:"relpath" yaml:"relpath"`
	PegRev  Revision `json:"peg_rev" yaml:"peg_rev"`

	NodeKind NodeKind `json:"node_kind,omitempty" yaml:"node_kind,omitempty"`
}

// PropValues carries the four versions of a conflicted property value.
// A nil pointer means the value does not exist on that side.
type PropValues struct {
	Base        *string `json:"base,omitempty" yaml:"base,omitempty"`
	Working     *string `json:"working,omitempty" yaml:"working,omitempty"`
	IncomingOld *string `json:"incoming_old,omitempty" yaml:"incoming_old,omitempty"`
	IncomingNew *string `json:"incoming_new,omitempty" yaml:"incoming_new,omitempty"`
}

// Descriptor is one raw conflict record as stored by the working copy.
// An item may carry at most one text descriptor, one tree descriptor, and
// one property descriptor per conflicted property name.
type Descriptor struct {
	Kind      Kind      `json:"kind" yaml:"kind"`
	LocalPath string    `json:"local_path" yaml:"local_path"`
	NodeKind  NodeKind  `json:"node_kind" yaml:"node_kind"`
	Operation Operation `json:"operation" yaml:"operation"`
	Action    Action    `json:"action" yaml:"action"`
	Reason    Reason    `json:"reason" yaml:"reason"`

	// Left/Right are the repository-side sources of the incoming change.
	// Either may be nil, e.g. Left is nil for an incoming add.
	Left  *ReposLocation `json:"left,omitempty" yaml:"left,omitempty"`
	Right *ReposLocation `json:"right,omitempty" yaml:"right,omitempty"`

	// Text conflict fields.
	MimeType     string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	BaseFile     string `json:"base_file,omitempty" yaml:"base_file,omitempty"`
	WorkingFile  string `json:"working_file,omitempty" yaml:"working_file,omitempty"`
	IncomingFile string `json:"incoming_file,omitempty" yaml:"incoming_file,omitempty"`

	// Property conflict fields. RejectFile is the ".prej" marker path.
	PropertyName string      `json:"property_name,omitempty" yaml:"property_name,omitempty"`
	PropValues   *PropValues `json:"prop_values,omitempty" yaml:"prop_values,omitempty"`
	RejectFile   string      `json:"reject_file,omitempty" yaml:"reject_file,omitempty"`
}

// IsBinaryMimeType reports whether a MIME type denotes binary content.
// Anything outside text/* is treated as binary; an empty type is text.
func IsBinaryMimeType(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	return !strings.HasPrefix(mimeType, "text/")
}
