package types

// OptionID identifies a conflict resolution option. The text/property ids
// form a superset of the legacy choice vocabulary; the tree-specific ids
// were introduced later and have no direct legacy counterpart.
type OptionID string

const (
	OptionUnspecified OptionID = "unspecified"
	OptionPostpone    OptionID = "postpone"

	// Text and property options.
	OptionBaseText                    OptionID = "base-text"
	OptionIncomingText                OptionID = "incoming-text"
	OptionWorkingText                 OptionID = "working-text"
	OptionIncomingTextWhereConflicted OptionID = "incoming-text-where-conflicted"
	OptionWorkingTextWhereConflicted  OptionID = "working-text-where-conflicted"
	OptionMergedText                  OptionID = "merged-text"

	// Tree options.
	OptionAcceptCurrentWCState       OptionID = "accept-current-wc-state"
	OptionUpdateMoveDestination      OptionID = "update-move-destination"
	OptionUpdateAnyMovedAwayChildren OptionID = "update-any-moved-away-children"
)

// IsValid returns true if the id is one of the known option ids.
func (id OptionID) IsValid() bool {
	switch id {
	case OptionUnspecified, OptionPostpone, OptionBaseText,
		OptionIncomingText, OptionWorkingText,
		OptionIncomingTextWhereConflicted, OptionWorkingTextWhereConflicted,
		OptionMergedText, OptionAcceptCurrentWCState,
		OptionUpdateMoveDestination, OptionUpdateAnyMovedAwayChildren:
		return true
	}
	return false
}

// LegacyChoice is the older, coarser resolution vocabulary still understood
// by the working-copy store's mark-resolved operations.
type LegacyChoice string

const (
	ChoiceUndefined      LegacyChoice = "undefined"
	ChoicePostpone       LegacyChoice = "postpone"
	ChoiceBase           LegacyChoice = "base"
	ChoiceTheirsFull     LegacyChoice = "theirs-full"
	ChoiceMineFull       LegacyChoice = "mine-full"
	ChoiceTheirsConflict LegacyChoice = "theirs-conflict"
	ChoiceMineConflict   LegacyChoice = "mine-conflict"
	ChoiceMerged         LegacyChoice = "merged"
	ChoiceUnspecified    LegacyChoice = "unspecified"
)

// LegacyChoice maps a resolution option onto the store's older choice
// vocabulary. Ids without a legacy counterpart map to ChoiceUndefined.
func (id OptionID) LegacyChoice() LegacyChoice {
	switch id {
	case OptionUnspecified:
		return ChoiceUnspecified
	case OptionPostpone:
		return ChoicePostpone
	case OptionBaseText:
		return ChoiceBase
	case OptionIncomingText:
		return ChoiceTheirsFull
	case OptionWorkingText:
		return ChoiceMineFull
	case OptionIncomingTextWhereConflicted:
		return ChoiceTheirsConflict
	case OptionWorkingTextWhereConflicted:
		return ChoiceMineConflict
	case OptionMergedText:
		return ChoiceMerged
	}
	return ChoiceUndefined
}
