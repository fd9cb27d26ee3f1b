package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc"
)

func TestLockLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	lockPath, err := s.AcquireWriteLock(ctx, "/wc/foo.c")
	require.NoError(t, err)

	_, err = s.AcquireWriteLock(ctx, "/wc/foo.c")
	assert.ErrorIs(t, err, wc.ErrLockHeld)

	require.NoError(t, s.ReleaseWriteLock(ctx, lockPath))
	assert.ErrorIs(t, s.ReleaseWriteLock(ctx, lockPath), wc.ErrNotLocked)
	assert.Equal(t, 2, s.AcquireCalls)
	assert.Equal(t, 2, s.ReleaseCalls)
}

func TestMarkPropResolvedAll(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddConflict(types.Descriptor{Kind: types.KindProperty, LocalPath: "/wc/a", PropertyName: "svn:eol-style"})
	s.AddConflict(types.Descriptor{Kind: types.KindProperty, LocalPath: "/wc/a", PropertyName: "svn:mime-type"})
	s.AddConflict(types.Descriptor{Kind: types.KindText, LocalPath: "/wc/a"})

	var notified []wc.Notification
	err := s.MarkPropResolved(ctx, "/wc/a", "", types.ChoiceMineFull, func(n wc.Notification) {
		notified = append(notified, n)
	})
	require.NoError(t, err)

	descs, err := s.ReadConflicts(ctx, "/wc/a")
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, types.KindText, descs[0].Kind)
	assert.Len(t, notified, 1)
	assert.Len(t, s.Resolutions, 2)
}

func TestBreakMovedAway(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddMove("/wc/old", "/wc/new")
	require.True(t, s.HasMove("/wc/old"))
	require.NoError(t, s.BreakMovedAway(ctx, "/wc/old", nil))
	assert.False(t, s.HasMove("/wc/old"))
}
