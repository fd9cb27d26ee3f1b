package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc/memory"
)

func optionIDs(options []*Option) []types.OptionID {
	ids := make([]types.OptionID, len(options))
	for i, o := range options {
		ids[i] = o.ID()
	}
	return ids
}

func TestTextOptionsNonBinary(t *testing.T) {
	store := memory.New()
	store.AddConflict(textDesc("/wc/foo.c", "text/plain"))
	c := newAggregate(t, store, "/wc/foo.c")

	options, err := c.TextOptions()
	require.NoError(t, err)
	assert.Equal(t, []types.OptionID{
		types.OptionPostpone,
		types.OptionBaseText,
		types.OptionIncomingText,
		types.OptionWorkingText,
		types.OptionIncomingTextWhereConflicted,
		types.OptionWorkingTextWhereConflicted,
		types.OptionMergedText,
	}, optionIDs(options))
}

func TestTextOptionsBinary(t *testing.T) {
	store := memory.New()
	store.AddConflict(textDesc("/wc/logo.png", "image/png"))
	c := newAggregate(t, store, "/wc/logo.png")

	options, err := c.TextOptions()
	require.NoError(t, err)
	assert.Equal(t, []types.OptionID{
		types.OptionPostpone,
		types.OptionIncomingText,
		types.OptionWorkingText,
		types.OptionMergedText,
	}, optionIDs(options))
}

func TestPropOptions(t *testing.T) {
	store := memory.New()
	store.AddConflict(propDesc("/wc/foo.c", "svn:eol-style"))
	c := newAggregate(t, store, "/wc/foo.c")

	options, err := c.PropOptions()
	require.NoError(t, err)
	require.Len(t, options, 7)
	assert.Equal(t, types.OptionPostpone, options[0].ID())
	assert.Equal(t, types.OptionMergedText, options[6].ID())
}

func TestTreeOptions(t *testing.T) {
	tests := []struct {
		name string
		desc types.Descriptor
		want []types.OptionID
	}{
		{
			"incoming delete offers only the base options",
			treeDesc("/wc/a", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile),
			[]types.OptionID{types.OptionPostpone, types.OptionAcceptCurrentWCState},
		},
		{
			"moved away with incoming edit offers move destination update",
			treeDesc("/wc/a", types.OperationUpdate, types.ActionEdit, types.ReasonMovedAway, types.NodeFile),
			[]types.OptionID{
				types.OptionPostpone,
				types.OptionAcceptCurrentWCState,
				types.OptionUpdateMoveDestination,
			},
		},
		{
			"deleted dir with incoming edit offers moved-away children prep",
			treeDesc("/wc/a", types.OperationSwitch, types.ActionEdit, types.ReasonDeleted, types.NodeDir),
			[]types.OptionID{
				types.OptionPostpone,
				types.OptionAcceptCurrentWCState,
				types.OptionUpdateAnyMovedAwayChildren,
			},
		},
		{
			"deleted file with incoming edit stays with the base options",
			treeDesc("/wc/a", types.OperationUpdate, types.ActionEdit, types.ReasonDeleted, types.NodeFile),
			[]types.OptionID{types.OptionPostpone, types.OptionAcceptCurrentWCState},
		},
		{
			"merge operations never offer move-aware options",
			treeDesc("/wc/a", types.OperationMerge, types.ActionEdit, types.ReasonMovedAway, types.NodeFile),
			[]types.OptionID{types.OptionPostpone, types.OptionAcceptCurrentWCState},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			store.AddConflict(tt.desc)
			c := newAggregate(t, store, "/wc/a")

			options, err := c.TreeOptions()
			require.NoError(t, err)
			assert.Equal(t, tt.want, optionIDs(options))
		})
	}
}

func TestCatalogsRequireConflictKind(t *testing.T) {
	store := memory.New()
	store.AddConflict(textDesc("/wc/foo.c", "text/plain"))
	c := newAggregate(t, store, "/wc/foo.c")

	_, err := c.PropOptions()
	assert.ErrorIs(t, err, ErrNoPropConflict)
	_, err = c.TreeOptions()
	assert.ErrorIs(t, err, ErrNoTreeConflict)

	store2 := memory.New()
	store2.AddConflict(treeDesc("/wc/a", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile))
	c2 := newAggregate(t, store2, "/wc/a")
	_, err = c2.TextOptions()
	assert.ErrorIs(t, err, ErrNoTextConflict)
}

func TestCatalogReturnsFreshCopies(t *testing.T) {
	store := memory.New()
	store.AddConflict(textDesc("/wc/foo.c", "text/plain"))
	c := newAggregate(t, store, "/wc/foo.c")

	first, err := c.TextOptions()
	require.NoError(t, err)
	first[0].description = "localized"

	second, err := c.TextOptions()
	require.NoError(t, err)
	assert.NotEqual(t, "localized", second[0].Describe())
}

func TestRemapLegacyTreeOptionID(t *testing.T) {
	tests := []struct {
		name string
		desc types.Descriptor
		in   types.OptionID
		want types.OptionID
	}{
		{
			"mine-conflict maps to move destination for moved-away",
			treeDesc("/wc/a", types.OperationUpdate, types.ActionEdit, types.ReasonMovedAway, types.NodeFile),
			types.OptionWorkingTextWhereConflicted,
			types.OptionUpdateMoveDestination,
		},
		{
			"mine-conflict maps to moved-away children for deleted dir",
			types.Descriptor{
				Kind: types.KindTree, LocalPath: "/wc/a", NodeKind: types.NodeDir,
				Operation: types.OperationSwitch, Action: types.ActionEdit, Reason: types.ReasonReplaced,
			},
			types.OptionWorkingTextWhereConflicted,
			types.OptionUpdateAnyMovedAwayChildren,
		},
		{
			"mine-conflict passes through for merges",
			treeDesc("/wc/a", types.OperationMerge, types.ActionEdit, types.ReasonMovedAway, types.NodeFile),
			types.OptionWorkingTextWhereConflicted,
			types.OptionWorkingTextWhereConflicted,
		},
		{
			"merged maps unconditionally to accept current state",
			treeDesc("/wc/a", types.OperationMerge, types.ActionEdit, types.ReasonEdited, types.NodeFile),
			types.OptionMergedText,
			types.OptionAcceptCurrentWCState,
		},
		{
			"modern ids pass through",
			treeDesc("/wc/a", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile),
			types.OptionAcceptCurrentWCState,
			types.OptionAcceptCurrentWCState,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			store.AddConflict(tt.desc)
			c := newAggregate(t, store, "/wc/a")
			assert.Equal(t, tt.want, remapLegacyTreeOptionID(c, tt.in))
		})
	}
}
