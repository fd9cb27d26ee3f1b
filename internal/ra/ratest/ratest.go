// Package ratest provides a scripted repository-access session for tests.
// The session replays canned responses and records which queries were made,
// so tests can assert scan bounds and early termination.
package ratest

import (
	"context"
	"fmt"

	"github.com/aboseley/subversion/internal/ra"
	"github.com/aboseley/subversion/internal/types"
)

// Session is a scripted ra.Session.
type Session struct {
	// DeletedRev is returned by GetDeletedRev unless DeletedRevErr is set.
	DeletedRev    types.Revision
	DeletedRevErr error

	// Segments are replayed youngest-first by GetLocationSegments.
	Segments    []ra.LocationSegment
	SegmentsErr error

	// Entries are replayed in order by Log. Tests supply them newest-first.
	Entries []ra.LogEntry
	LogErr  error

	// RevProps maps revision -> property name -> value.
	RevProps map[types.Revision]map[string]string

	// Related decides YoungestCommonAncestor: when it returns true the
	// ancestor is reported at b, otherwise the locations are unrelated.
	Related func(a, b ra.PathRev) bool

	// LogSeen records the revision of every log entry delivered to a
	// receiver, in delivery order.
	LogSeen []types.Revision

	// DeletedRevCalls records "relpath@start-end" per GetDeletedRev call.
	DeletedRevCalls []string
}

func (s *Session) GetDeletedRev(_ context.Context, relPath string, start, end types.Revision) (types.Revision, error) {
	s.DeletedRevCalls = append(s.DeletedRevCalls,
		fmt.Sprintf("%s@%d-%d", relPath, start, end))
	if s.DeletedRevErr != nil {
		return types.RevisionInvalid, s.DeletedRevErr
	}
	return s.DeletedRev, nil
}

func (s *Session) GetLocationSegments(_ context.Context, _ string, _, _, _ types.Revision, recv ra.SegmentReceiver) error {
	if s.SegmentsErr != nil {
		return s.SegmentsErr
	}
	for i := range s.Segments {
		if err := recv(&s.Segments[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Log(_ context.Context, _ []string, _, _ types.Revision, limit int, _ bool, recv ra.LogReceiver) error {
	if s.LogErr != nil {
		return s.LogErr
	}
	for i := range s.Entries {
		if limit > 0 && i >= limit {
			break
		}
		s.LogSeen = append(s.LogSeen, s.Entries[i].Revision)
		action, err := recv(&s.Entries[i])
		if err != nil {
			return err
		}
		if action == ra.LogStop {
			return nil
		}
	}
	return nil
}

func (s *Session) RevProp(_ context.Context, rev types.Revision, name string) (string, error) {
	props, ok := s.RevProps[rev]
	if !ok {
		return "", fmt.Errorf("no properties recorded for r%d", rev)
	}
	val, ok := props[name]
	if !ok {
		return "", fmt.Errorf("revision property %q not set on r%d", name, rev)
	}
	return val, nil
}

func (s *Session) YoungestCommonAncestor(_ context.Context, a, b ra.PathRev) (*ra.PathRev, error) {
	if s.Related != nil && s.Related(a, b) {
		yca := b
		return &yca, nil
	}
	return nil, nil
}

var _ ra.Session = (*Session)(nil)

// Opener returns the same session for every URL and records the URLs opened.
type Opener struct {
	Session ra.Session
	OpenErr error

	URLs []string
}

func (o *Opener) Open(_ context.Context, url string) (ra.Session, error) {
	o.URLs = append(o.URLs, url)
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	return o.Session, nil
}

var _ ra.Opener = (*Opener)(nil)
