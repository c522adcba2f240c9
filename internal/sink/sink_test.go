package sink

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/event"
	"github.com/insilica/srvc-go/internal/generator"
	"github.com/insilica/srvc-go/internal/schema"
	"github.com/insilica/srvc-go/internal/srerr"
)

func newTestWriter(t *testing.T, cfg *config.Config) (*Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sink.ndjson")
	cfg.DB = path
	w, err := NewWriter(cfg, schema.NewService(nil, ""))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, path
}

func TestWriterDedupesByHash(t *testing.T) {
	w, path := newTestWriter(t, &config.Config{})

	doc := &event.Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`)}
	if err := w.Put(doc); err != nil {
		t.Fatalf("Put: %v", err)
	}
	again := &event.Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`)}
	if err := w.Put(again); err != nil {
		t.Fatalf("Put (duplicate): %v", err)
	}
	w.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := countLines(string(raw))
	if lines != 1 {
		t.Fatalf("expected exactly 1 line after deduping, got %d: %s", lines, raw)
	}
}

func TestWriterDropsControlEventsByDefault(t *testing.T) {
	w, path := newTestWriter(t, &config.Config{SinkControlEvents: false})

	ctrl := &event.Event{Type: "control", Data: json.RawMessage(`{}`)}
	if err := w.Put(ctrl); err != nil {
		t.Fatalf("Put: %v", err)
	}
	w.Close()

	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if countLines(string(raw)) != 0 {
		t.Fatalf("expected control event to be dropped, got: %s", raw)
	}
}

func TestWriterKeepsControlEventsWhenConfigured(t *testing.T) {
	w, path := newTestWriter(t, &config.Config{SinkControlEvents: true})

	ctrl := &event.Event{Type: "control", Data: json.RawMessage(`{}`)}
	if err := w.Put(ctrl); err != nil {
		t.Fatalf("Put: %v", err)
	}
	w.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if countLines(string(raw)) != 1 {
		t.Fatalf("expected control event to be kept, got: %s", raw)
	}
}

func TestWriterValidatesLabelAnswerAgainstSchema(t *testing.T) {
	label := config.Label{ID: "smoker", JSONSchema: json.RawMessage(`"boolean"`)}
	labelEvents, err := generator.LabelEvents([]config.Label{label})
	if err != nil {
		t.Fatal(err)
	}
	labelHash := *labelEvents[0].Hash

	w, _ := newTestWriter(t, &config.Config{Labels: map[string]config.Label{"smoker": label}})

	goodAnswer := &event.Event{
		Type: "label-answer",
		Data: json.RawMessage(`{"event":"doc1","label":"` + labelHash + `","reviewer":"alice","timestamp":1,"answer":true}`),
	}
	if err := w.Put(goodAnswer); err != nil {
		t.Fatalf("expected a boolean answer to validate, got %v", err)
	}

	badAnswer := &event.Event{
		Type: "label-answer",
		Data: json.RawMessage(`{"event":"doc1","label":"` + labelHash + `","reviewer":"alice","timestamp":1,"answer":"not-a-boolean"}`),
	}
	if err := w.Put(badAnswer); err == nil {
		t.Fatal("expected a schema validation error for a non-boolean answer")
	}
}

func TestWriterRejectsLabelAnswerForUnknownLabel(t *testing.T) {
	w, _ := newTestWriter(t, &config.Config{})

	answer := &event.Event{
		Type: "label-answer",
		Data: json.RawMessage(`{"event":"doc1","label":"not-a-real-label-hash","reviewer":"alice","timestamp":1,"answer":true}`),
	}
	err := w.Put(answer)
	if err == nil {
		t.Fatal("expected an error for a label-answer referencing an unknown label")
	}
	var missing *srerr.MissingLabel
	if !errors.As(err, &missing) {
		t.Fatalf("expected a *srerr.MissingLabel, got %T: %v", err, err)
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
