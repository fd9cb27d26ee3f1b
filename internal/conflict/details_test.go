package conflict

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aboseley/subversion/internal/ra"
	"github.com/aboseley/subversion/internal/ra/ratest"
	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc/memory"
)

func newDetailsAggregate(t *testing.T, desc types.Descriptor, opener ra.Opener) *Conflict {
	t.Helper()
	store := memory.New()
	store.AddConflict(desc)
	c, err := Get(context.Background(), desc.LocalPath, &Context{Store: store, Repos: opener})
	require.NoError(t, err)
	return c
}

func TestGetTreeDetailsUpdateForward(t *testing.T) {
	ctx := context.Background()
	session := &ratest.Session{
		DeletedRev: 8,
		RevProps:   map[types.Revision]map[string]string{8: {ra.PropRevisionAuthor: "alice"}},
	}
	opener := &ratest.Opener{Session: session}

	desc := treeDesc("/wc/foo", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile)
	c := newDetailsAggregate(t, desc, opener)

	require.NoError(t, c.GetTreeDetails(ctx))

	details := c.TreeDetails()
	require.NotNil(t, details)
	assert.Equal(t, types.Revision(8), details.DeletedRev)
	assert.False(t, details.AddedRev.Valid())
	assert.Equal(t, "trunk/foo", details.RelPath)
	assert.Equal(t, "alice", details.Author)

	// Update-forward is a single deleted-rev query against the new location.
	assert.Equal(t, []string{repoRoot + "/trunk/foo"}, opener.URLs)
	assert.Equal(t, []string{"@5-10"}, session.DeletedRevCalls)

	text, err := c.TreeDescription()
	require.NoError(t, err)
	assert.Contains(t, text, "r8")
	assert.Contains(t, text, "alice")
	assert.Equal(t, "local file edit, file updated to r10 was deleted or moved by alice in r8", text)
}

func TestGetTreeDetailsCachesResult(t *testing.T) {
	ctx := context.Background()
	session := &ratest.Session{
		DeletedRev: 8,
		RevProps:   map[types.Revision]map[string]string{8: {ra.PropRevisionAuthor: "alice"}},
	}
	opener := &ratest.Opener{Session: session}
	desc := treeDesc("/wc/foo", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile)
	c := newDetailsAggregate(t, desc, opener)

	require.NoError(t, c.GetTreeDetails(ctx))
	require.NoError(t, c.GetTreeDetails(ctx))

	assert.Len(t, session.DeletedRevCalls, 1)
	assert.Len(t, opener.URLs, 1)
}

func TestGetTreeDetailsUpdateBackward(t *testing.T) {
	ctx := context.Background()
	session := &ratest.Session{
		Segments: []ra.LocationSegment{
			{RangeStart: 7, RangeEnd: 10, Path: "trunk/foo"},
			{RangeStart: 3, RangeEnd: 6, Path: "old/foo"},
		},
		RevProps: map[types.Revision]map[string]string{7: {ra.PropRevisionAuthor: "bob"}},
	}
	opener := &ratest.Opener{Session: session}

	// Updating backward: the node exists at the old revision but not the new
	// one, so its absence is the reverse of the addition.
	desc := treeDesc("/wc/foo", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile)
	desc.Left.PegRev = 10
	desc.Right.PegRev = 5
	c := newDetailsAggregate(t, desc, opener)

	require.NoError(t, c.GetTreeDetails(ctx))

	details := c.TreeDetails()
	require.NotNil(t, details)
	assert.False(t, details.DeletedRev.Valid())
	assert.Equal(t, types.Revision(7), details.AddedRev)
	assert.Equal(t, "trunk/foo", details.RelPath)
	assert.Equal(t, "bob", details.Author)

	// The segment trace runs against the old location.
	assert.Equal(t, []string{repoRoot + "/trunk/foo"}, opener.URLs)

	text, err := c.TreeDescription()
	require.NoError(t, err)
	assert.Equal(t, "local file edit, file updated to r5 did not exist before it was added by bob in r7", text)
}

func TestGetTreeDetailsBackwardSkipsGapSegments(t *testing.T) {
	ctx := context.Background()
	session := &ratest.Session{
		Segments: []ra.LocationSegment{
			{RangeStart: 9, RangeEnd: 10, Path: ""},
			{RangeStart: 4, RangeEnd: 8, Path: "trunk/foo"},
			{RangeStart: 2, RangeEnd: 3, Path: "old/foo"},
		},
		RevProps: map[types.Revision]map[string]string{4: {ra.PropRevisionAuthor: "bob"}},
	}
	opener := &ratest.Opener{Session: session}

	desc := treeDesc("/wc/foo", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile)
	desc.Left.PegRev = 10
	desc.Right.PegRev = 5
	c := newDetailsAggregate(t, desc, opener)

	require.NoError(t, c.GetTreeDetails(ctx))

	details := c.TreeDetails()
	require.NotNil(t, details)
	assert.Equal(t, types.Revision(4), details.AddedRev)
}

func TestGetTreeDetailsBackwardNoHistory(t *testing.T) {
	ctx := context.Background()
	session := &ratest.Session{
		Segments: []ra.LocationSegment{{RangeStart: 6, RangeEnd: 10, Path: ""}},
	}
	opener := &ratest.Opener{Session: session}

	desc := treeDesc("/wc/foo", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile)
	desc.Left.PegRev = 10
	desc.Right.PegRev = 5
	c := newDetailsAggregate(t, desc, opener)

	// An empty trace is not an error: details stay absent and the
	// description falls back to the generic form.
	require.NoError(t, c.GetTreeDetails(ctx))
	assert.Nil(t, c.TreeDetails())

	text, err := c.TreeDescription()
	require.NoError(t, err)
	assert.Equal(t, "local file edit, incoming file delete or move upon update", text)
}

func switchDesc() types.Descriptor {
	desc := treeDesc("/wc/foo", types.OperationSwitch, types.ActionDelete, types.ReasonEdited, types.NodeFile)
	desc.Right = &types.ReposLocation{
		RootURL: repoRoot, UUID: "uuid-1",
		RelPath: "branches/b/foo", PegRev: 20, NodeKind: types.NodeFile,
	}
	return desc
}

func switchLogEntries() []ra.LogEntry {
	return []ra.LogEntry{
		{Revision: 20, ChangedPaths: []ra.ChangedPath{{Path: "/branches/b/other", Action: 'M'}}},
		{Revision: 18, ChangedPaths: []ra.ChangedPath{{Path: "/branches/b/bar", Action: 'D'}}},
		{Revision: 16, ChangedPaths: []ra.ChangedPath{{Path: "/branches/b/foo", Action: 'M'}}},
		{Revision: 14, ChangedPaths: []ra.ChangedPath{{Path: "/branches/b/foo", Action: 'D'}}},
		{Revision: 12, ChangedPaths: []ra.ChangedPath{{Path: "/branches/b/foo", Action: 'D'}}},
		{Revision: 10, ChangedPaths: []ra.ChangedPath{{Path: "/branches/b/foo", Action: 'A'}}},
	}
}

func TestGetTreeDetailsSwitchForwardStopsAtMatch(t *testing.T) {
	ctx := context.Background()
	session := &ratest.Session{
		Entries:  switchLogEntries(),
		RevProps: map[types.Revision]map[string]string{14: {ra.PropRevisionAuthor: "carol"}},
		Related:  func(a, b ra.PathRev) bool { return true },
	}
	opener := &ratest.Opener{Session: session}
	c := newDetailsAggregate(t, switchDesc(), opener)

	require.NoError(t, c.GetTreeDetails(ctx))

	details := c.TreeDetails()
	require.NotNil(t, details)
	assert.Equal(t, types.Revision(14), details.DeletedRev)
	assert.Equal(t, "carol", details.Author)

	// The scan runs on the new location's parent and stops at the first
	// confirmed deletion; no older entries may be requested.
	assert.Equal(t, []string{repoRoot + "/branches/b"}, opener.URLs)
	assert.Equal(t, []types.Revision{20, 18, 16, 14}, session.LogSeen)

	text, err := c.TreeDescription()
	require.NoError(t, err)
	assert.Equal(t, "local file edit, file switched from trunk/foo@r5 to branches/b/foo@r20 was deleted or moved by carol in r14", text)
}

func TestGetTreeDetailsSwitchForwardAncestryCheck(t *testing.T) {
	ctx := context.Background()
	var checked []ra.PathRev
	session := &ratest.Session{
		Entries:  switchLogEntries(),
		RevProps: map[types.Revision]map[string]string{12: {ra.PropRevisionAuthor: "dave"}},
		Related: func(a, b ra.PathRev) bool {
			checked = append(checked, b)
			// r14 deleted an unrelated node that briefly occupied the path;
			// only the r12 deletion concerns our victim.
			return b.Rev == 11
		},
	}
	opener := &ratest.Opener{Session: session}
	c := newDetailsAggregate(t, switchDesc(), opener)

	require.NoError(t, c.GetTreeDetails(ctx))

	details := c.TreeDetails()
	require.NotNil(t, details)
	assert.Equal(t, types.Revision(12), details.DeletedRev)

	// Ancestry is probed against the revision just below each candidate
	// deletion, where the victim still existed.
	require.Len(t, checked, 2)
	assert.Equal(t, ra.PathRev{RelPath: "branches/b/foo", Rev: 13}, checked[0])
	assert.Equal(t, ra.PathRev{RelPath: "branches/b/foo", Rev: 11}, checked[1])
}

func TestGetTreeDetailsSwitchForwardNoMatch(t *testing.T) {
	ctx := context.Background()
	session := &ratest.Session{
		Entries: switchLogEntries(),
		Related: func(a, b ra.PathRev) bool { return false },
	}
	opener := &ratest.Opener{Session: session}
	c := newDetailsAggregate(t, switchDesc(), opener)

	require.NoError(t, c.GetTreeDetails(ctx))
	assert.Nil(t, c.TreeDetails())

	// The whole scan ran without finding the victim's deletion.
	assert.Equal(t, []types.Revision{20, 18, 16, 14, 12, 10}, session.LogSeen)

	text, err := c.TreeDescription()
	require.NoError(t, err)
	assert.Equal(t, "local file edit, incoming file delete or move upon switch", text)
}

func TestGetTreeDetailsNoStrategyIsNoOp(t *testing.T) {
	ctx := context.Background()
	// Merge conflicts carry no details strategy; no repository access must
	// happen (Repos is nil and would panic if touched).
	desc := treeDesc("/wc/foo", types.OperationMerge, types.ActionDelete, types.ReasonEdited, types.NodeFile)
	c := newDetailsAggregate(t, desc, nil)

	require.NoError(t, c.GetTreeDetails(ctx))
	assert.Nil(t, c.TreeDetails())
}

func TestGetTreeDetailsRequiresTreeConflict(t *testing.T) {
	store := memory.New()
	store.AddConflict(textDesc("/wc/foo.c", "text/plain"))
	c := newAggregate(t, store, "/wc/foo.c")

	err := c.GetTreeDetails(context.Background())
	assert.ErrorIs(t, err, ErrNoTreeConflict)
}

func TestGetTreeDetailsPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	errRA := errors.New("connection reset")

	t.Run("deleted-rev query", func(t *testing.T) {
		opener := &ratest.Opener{Session: &ratest.Session{DeletedRevErr: errRA}}
		desc := treeDesc("/wc/foo", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile)
		c := newDetailsAggregate(t, desc, opener)
		assert.ErrorIs(t, c.GetTreeDetails(ctx), errRA)
		assert.Nil(t, c.TreeDetails())
	})

	t.Run("session open", func(t *testing.T) {
		opener := &ratest.Opener{OpenErr: errRA}
		desc := treeDesc("/wc/foo", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile)
		c := newDetailsAggregate(t, desc, opener)
		assert.ErrorIs(t, c.GetTreeDetails(ctx), errRA)
	})

	t.Run("missing author prop", func(t *testing.T) {
		opener := &ratest.Opener{Session: &ratest.Session{DeletedRev: 8}}
		desc := treeDesc("/wc/foo", types.OperationUpdate, types.ActionDelete, types.ReasonEdited, types.NodeFile)
		c := newDetailsAggregate(t, desc, opener)
		assert.Error(t, c.GetTreeDetails(ctx))
		assert.Nil(t, c.TreeDetails())
	})

	t.Run("log scan", func(t *testing.T) {
		opener := &ratest.Opener{Session: &ratest.Session{LogErr: errRA}}
		c := newDetailsAggregate(t, switchDesc(), opener)
		assert.ErrorIs(t, c.GetTreeDetails(ctx), errRA)
	})
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://host/repos/trunk", joinURL("https://host/repos/", "/trunk"))
	assert.Equal(t, "https://host/repos", joinURL("https://host/repos", ""))
}

func TestRelpathDirname(t *testing.T) {
	assert.Equal(t, "branches/b", relpathDirname("branches/b/foo"))
	assert.Equal(t, "", relpathDirname("trunk"))
}
