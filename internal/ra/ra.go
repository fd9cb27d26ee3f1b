// Package ra defines the repository-access interfaces the conflict resolver
// needs: log retrieval, location-segment tracing, deleted-revision lookup,
// revision properties and ancestry queries.
//
// A session is rooted at a URL; path arguments are relative to that root,
// with "" meaning the root itself.
package ra

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aboseley/subversion/internal/types"
)

// PropRevisionAuthor is the revision property holding the commit author.
const PropRevisionAuthor = "svn:author"

// LogAction is the control value a LogReceiver returns to the scan driver.
type LogAction int

const (
	// LogContinue requests the next (older) log entry.
	LogContinue LogAction = iota
	// LogStop terminates the scan successfully; no older entries are read.
	LogStop
)

// ChangedPath describes one path touched by a revision.
type ChangedPath struct {
	// Path is relative to the repository root. Log servers historically
	// report it with a leading slash; receivers must tolerate both forms.
	Path string

	// Action is 'A', 'D', 'R' or 'M'.
	Action byte

	CopyFromPath string
	CopyFromRev  types.Revision
}

// LogEntry is one revision reported by a log scan.
type LogEntry struct {
	Revision     types.Revision
	ChangedPaths []ChangedPath
	RevProps     map[string]string
}

// LogReceiver is invoked once per log entry, newest to oldest. Returning
// LogStop ends the scan without error; returning an error aborts it.
type LogReceiver func(*LogEntry) (LogAction, error)

// LocationSegment is a revision range over which a path mapped to one node.
// An empty Path marks a gap in the node's history.
type LocationSegment struct {
	RangeStart types.Revision
	RangeEnd   types.Revision
	Path       string
}

// SegmentReceiver is invoked once per location segment, youngest to oldest.
type SegmentReceiver func(*LocationSegment) error

// PathRev is a repository path pinned at a revision, used for ancestry
// queries.
type PathRev struct {
	RelPath string
	Rev     types.Revision
}

// Session is an open connection to a repository, rooted at the URL it was
// opened with.
type Session interface {
	// GetDeletedRev returns the revision in (start, end] that deleted
	// relPath, or RevisionInvalid if it was not deleted in that range.
	GetDeletedRev(ctx context.Context, relPath string, start, end types.Revision) (types.Revision, error)

	// GetLocationSegments reports the location history of relPath pegged at
	// pegRev, covering revisions [end, start] youngest-first.
	GetLocationSegments(ctx context.Context, relPath string, pegRev, start, end types.Revision, recv SegmentReceiver) error

	// Log scans revisions of the given paths from start down to end,
	// newest-first. When discoverChangedPaths is set each entry carries its
	// changed-path list. limit of 0 means no limit.
	Log(ctx context.Context, paths []string, start, end types.Revision, limit int, discoverChangedPaths bool, recv LogReceiver) error

	// RevProp returns the named revision property of rev.
	RevProp(ctx context.Context, rev types.Revision, name string) (string, error)

	// YoungestCommonAncestor returns the most recent location at which the
	// two given locations share ancestry, or nil if they are unrelated.
	YoungestCommonAncestor(ctx context.Context, a, b PathRev) (*PathRev, error)
}

// Opener opens repository sessions. The URL names the session root, which
// need not be the repository root.
type Opener interface {
	Open(ctx context.Context, url string) (Session, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, url string) (Session, error)

func (f OpenerFunc) Open(ctx context.Context, url string) (Session, error) {
	return f(ctx, url)
}

const openMaxElapsed = 30 * time.Second

// RetryOpener wraps an Opener with exponential backoff on Open failures.
// Transport-level session opening is the flakiest part of repository access;
// queries on an established session are not retried.
type RetryOpener struct {
	Inner Opener
}

func (r RetryOpener) Open(ctx context.Context, url string) (Session, error) {
	var session Session
	op := func() error {
		s, err := r.Inner.Open(ctx, url)
		if err != nil {
			return err
		}
		session = s
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = openMaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return session, nil
}
