// Package generator implements the event-generator sources (NDJSON
// file/stdin, NDJSON over HTTP, SQLite) and the deterministic ordering
// law their output must obey.
package generator

import (
	"io"
	"net/url"
	"strings"

	"github.com/insilica/srvc-go/internal/event"
)

// Source is the polymorphic abstraction every generator backend
// implements: pull one event at a time, io.EOF when exhausted.
type Source interface {
	Next() (*event.Event, error)
	Close() error
}

// sliceSource replays a fixed, pre-ordered slice of events as given,
// without applying the ordering law.
type sliceSource struct {
	events []*event.Event
	pos    int
}

// NewSliceSource wraps an already-ordered slice of events as a Source.
func NewSliceSource(events []*event.Event) Source {
	return &sliceSource{events: events}
}

func (s *sliceSource) Next() (*event.Event, error) {
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	e := s.events[s.pos]
	s.pos++
	return e, nil
}

func (s *sliceSource) Close() error { return nil }

// hasSQLiteExt reports whether filename looks like a SQLite database
// path, matching the original CLI's file-vs-db dispatch rule.
func hasSQLiteExt(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite")
}

// isURL reports whether fileOrURL parses as an absolute URL, matching
// the dispatch rule in Open.
func isURL(fileOrURL string) bool {
	u, err := url.Parse(fileOrURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Open dispatches fileOrURL to the matching Source backend: an
// absolute URL goes to the HTTP source, a .db/.sqlite path goes to the
// SQLite source, anything else (including "-" for stdin) is read as
// NDJSON.
func Open(fileOrURL string, labelEvents []*event.Event) (Source, error) {
	switch {
	case isURL(fileOrURL):
		return newHTTPSource(fileOrURL, labelEvents)
	case hasSQLiteExt(fileOrURL):
		return newSQLiteSource(fileOrURL, labelEvents)
	default:
		return newFileSource(fileOrURL, labelEvents)
	}
}
