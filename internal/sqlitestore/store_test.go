package sqlitestore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insilica/srvc-go/internal/event"
)

func mustHash(t *testing.T, e event.Event) event.Event {
	t.Helper()
	require.NoError(t, event.EnsureHash(&e))
	return e
}

func TestInsertAndDedup(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer s.Close()

	e := mustHash(t, event.Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`)})
	require.NoError(t, s.InsertEvent(e))
	require.NoError(t, s.InsertEvent(e)) // idempotent (H4)

	docs, err := s.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestOrderingHelpers(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer s.Close()

	l1 := mustHash(t, event.Event{Type: "label", Data: json.RawMessage(`{"id":"L1"}`)})
	require.NoError(t, s.InsertEvent(l1))

	doc := mustHash(t, event.Event{Type: "document", Data: json.RawMessage(`{"title":"x"}`)})
	require.NoError(t, s.InsertEvent(doc))

	answer := mustHash(t, event.Event{
		Type: "label-answer",
		Data: json.RawMessage(fmt.Sprintf(`{"event":%q,"label":%q,"reviewer":"bob","timestamp":1,"answer":true}`, *doc.Hash, *l1.Hash)),
	})
	require.NoError(t, s.InsertEvent(answer))

	labels, err := s.Labels()
	require.NoError(t, err)
	require.Len(t, labels, 1)

	answers, err := s.LabelAnswersForEvent(*doc.Hash)
	require.NoError(t, err)
	require.Len(t, answers, 1)

	other, err := s.OtherEvents()
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestLegacyTriggerRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.db")
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.db.Exec(`CREATE TRIGGER srvc_event_label_answer_document_constraint
		BEFORE INSERT ON srvc_event BEGIN SELECT 1; END`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
}
