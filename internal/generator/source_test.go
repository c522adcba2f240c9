package generator

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insilica/srvc-go/internal/event"
)

func TestNewFileSourceOrdersNDJSON(t *testing.T) {
	l1 := hashed(t, event.Event{Type: "label", Data: json.RawMessage(`{"id":"L1"}`)})
	doc := hashed(t, event.Event{Type: "document", Data: json.RawMessage(`{"title":"x"}`)})
	ans := answer(t, *doc.Hash, *l1.Hash, 1)

	var lines []byte
	for _, e := range []*event.Event{doc, ans} { // deliberately out of law order on disk
		b, err := json.Marshal(e)
		require.NoError(t, err)
		lines = append(lines, b...)
		lines = append(lines, '\n')
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "events.ndjson")
	require.NoError(t, os.WriteFile(path, lines, 0o644))

	src, err := newFileSource(path, []*event.Event{l1})
	require.NoError(t, err)
	defer src.Close()

	var got []*event.Event
	for {
		e, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, e)
	}
	require.Len(t, got, 3)
	require.Equal(t, "label", got[0].Type)
	require.Equal(t, "document", got[1].Type)
	require.Equal(t, "label-answer", got[2].Type)
}

func TestOpenDispatchesByExtensionAndScheme(t *testing.T) {
	require.True(t, hasSQLiteExt("foo.db"))
	require.True(t, hasSQLiteExt("foo.sqlite"))
	require.False(t, hasSQLiteExt("foo.ndjson"))

	require.True(t, isURL("https://example.com/events.ndjson"))
	require.False(t, isURL("events.ndjson"))
	require.False(t, isURL("-"))
}

func TestSliceSource(t *testing.T) {
	e := hashed(t, event.Event{Type: "document", Data: json.RawMessage(`{}`)})
	src := NewSliceSource([]*event.Event{e})
	defer src.Close()

	got, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, e, got)

	_, err = src.Next()
	require.Equal(t, io.EOF, err)
}
