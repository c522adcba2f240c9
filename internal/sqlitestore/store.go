// Package sqlitestore is the SQLite-backed content store shared by the
// SQLite sink backend and the SQLite generator source: schema
// creation/verification, insertion with hash dedup, and the four
// ordering-law read statements.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/insilica/srvc-go/internal/event"
	"github.com/insilica/srvc-go/internal/srerr"
)

const schema = `
CREATE TABLE IF NOT EXISTS srvc_event (
	hash TEXT PRIMARY KEY,
	data TEXT,
	extra TEXT,
	type TEXT NOT NULL,
	uri TEXT
);
CREATE INDEX IF NOT EXISTS idx_srvc_event_type ON srvc_event(type);
CREATE INDEX IF NOT EXISTS idx_srvc_event_uri ON srvc_event(uri);
`

// legacyTriggerName is the trigger a pre-H2 database still carries;
// its presence means the label-answer/document constraint has not
// been upgraded, and the database must be rejected rather than
// silently corrupted by writes using the new "event" key.
const legacyTriggerName = "srvc_event_label_answer_document_constraint"

// Store wraps a SQLite connection holding one srvc_event table.
type Store struct {
	db *sql.DB
}

// Open creates or opens a read/write SQLite database at path, ensures
// the schema exists, and rejects databases still carrying the legacy
// label-answer/document constraint trigger.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	if err := rejectLegacySchema(db, path); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenRO opens path read-only, for use as a generator source.
func OpenRO(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s read-only: %w", path, err)
	}
	if err := rejectLegacySchema(db, path); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func rejectLegacySchema(db *sql.DB, path string) error {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name = ?`,
		legacyTriggerName,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("sqlitestore: checking schema version: %w", err)
	}
	if count > 0 {
		return &srerr.DbFormatTooOld{Path: path}
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertEvent writes e, which must already be hashed, deduplicating by
// hash (H4): a row with the same hash is silently ignored.
func (s *Store) InsertEvent(e event.Event) error {
	if e.Hash == nil {
		return fmt.Errorf("sqlitestore: cannot insert event without a hash")
	}

	var dataText sql.NullString
	if e.Data != nil {
		dataText = sql.NullString{String: string(e.Data), Valid: true}
	}

	var extraText sql.NullString
	if len(e.Extra) > 0 {
		b, err := json.Marshal(e.Extra)
		if err != nil {
			return fmt.Errorf("sqlitestore: serializing extra for %s: %w", *e.Hash, err)
		}
		extraText = sql.NullString{String: string(b), Valid: true}
	}

	var uriText sql.NullString
	if e.URI != nil {
		uriText = sql.NullString{String: *e.URI, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO srvc_event (hash, data, extra, type, uri) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(hash) DO NOTHING`,
		*e.Hash, dataText, extraText, e.Type, uriText,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: inserting event %s: %w", *e.Hash, err)
	}
	return nil
}

func scanEvent(row rowScanner) (*event.Event, error) {
	var (
		dataText  sql.NullString
		extraText sql.NullString
		hash      string
		typ       string
		uriText   sql.NullString
	)
	if err := row.Scan(&dataText, &extraText, &hash, &typ, &uriText); err != nil {
		return nil, err
	}

	e := &event.Event{Type: typ, Hash: &hash}
	if dataText.Valid {
		e.Data = json.RawMessage(dataText.String)
	}
	if extraText.Valid {
		var extra map[string]json.RawMessage
		if err := json.Unmarshal([]byte(extraText.String), &extra); err != nil {
			return nil, fmt.Errorf("sqlitestore: decoding extra for %s: %w", hash, err)
		}
		e.Extra = extra
	}
	if uriText.Valid {
		uri := uriText.String
		e.URI = &uri
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = "data, extra, hash, type, uri"

// Documents returns every document event, ordered per the ordering
// law's (uri NULLS LAST, hash) rule.
func (s *Store) Documents() ([]*event.Event, error) {
	rows, err := s.db.Query(
		`SELECT ` + selectColumns + ` FROM srvc_event WHERE type = 'document'
		 ORDER BY uri IS NULL, uri, hash`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: querying documents: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// Labels returns every label event, ordered by hash ascending (§4.3
// step 1).
func (s *Store) Labels() ([]*event.Event, error) {
	rows, err := s.db.Query(
		`SELECT ` + selectColumns + ` FROM srvc_event WHERE type = 'label' ORDER BY hash`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: querying labels: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// LabelAnswersForEvent returns label-answer events whose data.event
// equals hash, ordered by (timestamp, hash) per the ordering law.
func (s *Store) LabelAnswersForEvent(hash string) ([]*event.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+selectColumns+` FROM srvc_event
		 WHERE type = 'label-answer' AND json_extract(data, '$.event') = ?
		 ORDER BY json_extract(data, '$.timestamp'), hash`,
		hash,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: querying label-answers for %s: %w", hash, err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// OtherEvents returns every event that is neither document, label, nor
// label-answer, in a stable (hash) order (§4.3 step 3).
func (s *Store) OtherEvents() ([]*event.Event, error) {
	rows, err := s.db.Query(
		`SELECT ` + selectColumns + ` FROM srvc_event
		 WHERE type NOT IN ('document', 'label', 'label-answer')
		 ORDER BY hash`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: querying other events: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]*event.Event, error) {
	var out []*event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: scanning event row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
