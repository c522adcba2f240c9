package sink

import (
	"github.com/insilica/srvc-go/internal/event"
	"github.com/insilica/srvc-go/internal/sqlitestore"
)

// sqliteSink writes through to internal/sqlitestore, which already
// implements the dedup-by-hash insert and legacy-schema rejection.
// Put reports true for every successful insert, including one the
// store ignored as a duplicate hash; it never reports false.
type sqliteSink struct {
	store *sqlitestore.Store
}

func newSQLiteSink(path string) (Sink, error) {
	store, err := sqlitestore.Open(path)
	if err != nil {
		return nil, err
	}
	return &sqliteSink{store: store}, nil
}

func (s *sqliteSink) Put(e *event.Event) (bool, error) {
	if err := s.store.InsertEvent(*e); err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteSink) Close() error { return s.store.Close() }
