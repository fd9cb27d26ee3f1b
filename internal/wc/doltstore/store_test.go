package doltstore

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc"
)

const testTimeout = 30 * time.Second

func testContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), testTimeout)
}

// skipIfNoDolt skips the test if Dolt is not installed.
func skipIfNoDolt(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("dolt"); err != nil {
		t.Skip("Dolt not installed, skipping test")
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	skipIfNoDolt(t)

	ctx, cancel := testContext(t)
	defer cancel()

	store, err := New(ctx, &Config{
		Path:           t.TempDir(),
		Database:       "testwc",
		CommitterName:  "test",
		CommitterEmail: "test@example.com",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func textDesc(path string) types.Descriptor {
	return types.Descriptor{
		Kind:      types.KindText,
		LocalPath: path,
		NodeKind:  types.NodeFile,
		Operation: types.OperationUpdate,
		Action:    types.ActionEdit,
		Reason:    types.ReasonEdited,
		MimeType:  "text/plain",
	}
}

func TestRecordAndReadConflicts(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := testContext(t)
	defer cancel()

	require.NoError(t, store.RecordConflict(ctx, textDesc("/wc/foo.c")))
	require.NoError(t, store.RecordConflict(ctx, types.Descriptor{
		Kind: types.KindTree, LocalPath: "/wc/foo.c", NodeKind: types.NodeFile,
		Operation: types.OperationUpdate, Action: types.ActionDelete, Reason: types.ReasonEdited,
	}))
	require.NoError(t, store.RecordConflict(ctx, types.Descriptor{
		Kind: types.KindProperty, LocalPath: "/wc/foo.c", NodeKind: types.NodeFile,
		Operation: types.OperationUpdate, Action: types.ActionEdit, Reason: types.ReasonEdited,
		PropertyName: "svn:eol-style",
	}))

	descs, err := store.ReadConflicts(ctx, "/wc/foo.c")
	require.NoError(t, err)
	require.Len(t, descs, 3)

	// Stable order: text, properties, tree.
	assert.Equal(t, types.KindText, descs[0].Kind)
	assert.Equal(t, types.KindProperty, descs[1].Kind)
	assert.Equal(t, "svn:eol-style", descs[1].PropertyName)
	assert.Equal(t, types.KindTree, descs[2].Kind)

	paths, err := store.ConflictedPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/wc/foo.c"}, paths)
}

func TestWriteLockLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := testContext(t)
	defer cancel()

	lockPath, err := store.AcquireWriteLock(ctx, "/wc/foo.c")
	require.NoError(t, err)

	_, err = store.AcquireWriteLock(ctx, "/wc/foo.c")
	assert.ErrorIs(t, err, wc.ErrLockHeld)

	require.NoError(t, store.ReleaseWriteLock(ctx, lockPath))
	assert.ErrorIs(t, store.ReleaseWriteLock(ctx, lockPath), wc.ErrNotLocked)

	_, err = store.AcquireWriteLock(ctx, "/wc/foo.c")
	assert.NoError(t, err)
}

func TestMarkTextResolved(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := testContext(t)
	defer cancel()

	require.NoError(t, store.RecordConflict(ctx, textDesc("/wc/foo.c")))

	var notified []wc.Notification
	notify := func(n wc.Notification) { notified = append(notified, n) }
	require.NoError(t, store.MarkTextResolved(ctx, "/wc/foo.c", types.ChoiceTheirsFull, notify))

	descs, err := store.ReadConflicts(ctx, "/wc/foo.c")
	require.NoError(t, err)
	assert.Empty(t, descs)
	require.Len(t, notified, 1)
	assert.Equal(t, wc.NotifyResolved, notified[0].Action)
}

func TestMarkAllPropsResolved(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := testContext(t)
	defer cancel()

	for _, name := range []string{"svn:eol-style", "svn:mime-type"} {
		require.NoError(t, store.RecordConflict(ctx, types.Descriptor{
			Kind: types.KindProperty, LocalPath: "/wc/foo.c", NodeKind: types.NodeFile,
			Operation: types.OperationUpdate, Action: types.ActionEdit, Reason: types.ReasonEdited,
			PropertyName: name,
		}))
	}
	require.NoError(t, store.RecordConflict(ctx, textDesc("/wc/foo.c")))

	require.NoError(t, store.MarkPropResolved(ctx, "/wc/foo.c", "", types.ChoiceMineFull, nil))

	descs, err := store.ReadConflicts(ctx, "/wc/foo.c")
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, types.KindText, descs[0].Kind)
}

func TestBreakMovedAway(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := testContext(t)
	defer cancel()

	require.NoError(t, store.RecordMove(ctx, "/wc/a", "/wc/b"))
	require.NoError(t, store.BreakMovedAway(ctx, "/wc/a", nil))

	// Breaking again is a no-op, not an error.
	require.NoError(t, store.BreakMovedAway(ctx, "/wc/a", nil))
}

func TestRaiseMovedAwayChildren(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := testContext(t)
	defer cancel()

	require.NoError(t, store.RecordConflict(ctx, types.Descriptor{
		Kind: types.KindTree, LocalPath: "/wc/dir", NodeKind: types.NodeDir,
		Operation: types.OperationUpdate, Action: types.ActionEdit, Reason: types.ReasonDeleted,
	}))
	require.NoError(t, store.RecordMove(ctx, "/wc/dir/child.c", "/wc/elsewhere/child.c"))

	require.NoError(t, store.RaiseMovedAway(ctx, "/wc/dir", nil))

	parent, err := store.ReadConflicts(ctx, "/wc/dir")
	require.NoError(t, err)
	assert.Empty(t, parent)

	child, err := store.ReadConflicts(ctx, "/wc/dir/child.c")
	require.NoError(t, err)
	require.Len(t, child, 1)
	assert.Equal(t, types.KindTree, child[0].Kind)
	assert.Equal(t, types.ReasonMovedAway, child[0].Reason)
	assert.Equal(t, types.ActionEdit, child[0].Action)
}
