// Package sink implements the content-addressed store's write side: an
// event is ensure-hashed, checked against its label's JSON schema (for
// label-answers) and the control-event policy, deduplicated by hash,
// and persisted to one of three backends selected from the configured
// db target.
package sink

import (
	"strings"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/event"
	"github.com/insilica/srvc-go/internal/generator"
	"github.com/insilica/srvc-go/internal/schema"
	"github.com/insilica/srvc-go/internal/srerr"
)

// Sink is the backend-agnostic write target: file, SQLite, or HTTP.
type Sink interface {
	// Put persists e, returning false if e was already seen (H4) and
	// therefore not written.
	Put(e *event.Event) (bool, error)
	Close() error
}

// Writer wraps a Sink with the label-schema validation and
// control-event policy spec.md §4.5 describes, independent of which
// backend is in play.
type Writer struct {
	sink              Sink
	schemas           *schema.Service
	sinkControlEvents bool
	labels            map[string]config.Label // by label hash
}

// NewWriter opens the backend named by cfg.DB and wraps it with the
// shared validation policy. The full project label set (cfg.Labels) is
// indexed by label hash, used to resolve a label-answer's schema by the
// hash in its "label" field.
func NewWriter(cfg *config.Config, schemas *schema.Service) (*Writer, error) {
	backend, err := Open(cfg.DB)
	if err != nil {
		return nil, err
	}

	labelsByHash := make(map[string]config.Label, len(cfg.Labels))
	for _, l := range cfg.Labels {
		events, err := generator.LabelEvents([]config.Label{l})
		if err != nil {
			backend.Close()
			return nil, err
		}
		labelsByHash[*events[0].Hash] = l
	}

	return &Writer{
		sink:              backend,
		schemas:           schemas,
		sinkControlEvents: cfg.SinkControlEvents,
		labels:            labelsByHash,
	}, nil
}

// Put ensure-hashes e, applies the control-event and label-answer
// validation policy, and forwards it to the backend unless it should
// be silently dropped.
func (w *Writer) Put(e *event.Event) error {
	if err := event.EnsureHash(e); err != nil {
		return err
	}

	if e.Type == "control" && !w.sinkControlEvents {
		return nil
	}

	if e.Type == "label-answer" {
		if err := w.validateAnswer(e); err != nil {
			return err
		}
	}

	_, err := w.sink.Put(e)
	return err
}

func (w *Writer) validateAnswer(e *event.Event) error {
	data, err := event.ParseLabelAnswerData(e.Data)
	if err != nil {
		return err
	}
	label, ok := w.labels[data.Label]
	if !ok {
		return &srerr.MissingLabel{Hash: data.Label}
	}
	if len(label.JSONSchema) == 0 {
		return nil
	}
	failures, err := w.schemas.Validate(label.JSONSchema, data.Answer)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		return &srerr.SchemaValidation{Path: failures[0].Path, Message: failures[0].Message}
	}
	return nil
}

func (w *Writer) Close() error { return w.sink.Close() }

// Open dispatches db to the matching Sink backend: an absolute HTTP(S)
// URL goes to the HTTP backend, a .db/.sqlite path goes to SQLite,
// anything else (including "-" for stdout) is the NDJSON file backend.
func Open(db string) (Sink, error) {
	switch {
	case isHTTPTarget(db):
		return newHTTPSink(db)
	case hasSQLiteExt(db):
		return newSQLiteSink(db)
	default:
		return newFileSink(db)
	}
}

func isHTTPTarget(db string) bool {
	lower := strings.ToLower(db)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func hasSQLiteExt(db string) bool {
	lower := strings.ToLower(db)
	return strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite")
}
