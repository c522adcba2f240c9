package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_BlankLine(t *testing.T) {
	e, err := Parse("   \t  ")
	require.NoError(t, err)
	require.Nil(t, e)
}

func TestParse_RoundTrip(t *testing.T) {
	line := `{"type":"document","data":{"title":"x"},"uri":"https://example.com/a","zzz":1,"aaa":2}`
	e, err := Parse(line)
	require.NoError(t, err)
	require.Equal(t, "document", e.Type)
	require.NotNil(t, e.URI)
	require.Equal(t, "https://example.com/a", *e.URI)

	out, err := json.Marshal(e)
	require.NoError(t, err)

	// Extra keys must come out sorted (H3): aaa before zzz.
	aaaIdx := indexOf(string(out), `"aaa"`)
	zzzIdx := indexOf(string(out), `"zzz"`)
	require.Greater(t, aaaIdx, 0)
	require.Greater(t, zzzIdx, 0)
	require.Less(t, aaaIdx, zzzIdx)

	e2, err := Parse(string(out))
	require.NoError(t, err)
	require.Equal(t, e.Type, e2.Type)
	require.Equal(t, e.Extra, e2.Extra)
}

func TestHash_Idempotent(t *testing.T) {
	e := Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`)}
	h1, err := Hash(e)
	require.NoError(t, err)
	h2, err := Hash(e)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestHash_IgnoresDeclaredHash(t *testing.T) {
	h := "whatever"
	e := Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`), Hash: &h}
	computed, err := Hash(e)
	require.NoError(t, err)
	require.NotEqual(t, h, computed)
}

func TestEnsureHash_FillsMissing(t *testing.T) {
	e := Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`)}
	err := EnsureHash(&e)
	require.NoError(t, err)
	require.NotNil(t, e.Hash)
	require.NotEmpty(t, *e.Hash)
}

func TestEnsureHash_RejectsMismatch(t *testing.T) {
	bad := "not-the-real-hash"
	e := Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`), Hash: &bad}
	err := EnsureHash(&e)
	require.Error(t, err)
	var mismatch interface {
		Error() string
	}
	require.ErrorAs(t, err, &mismatch)
}

func TestEnsureHash_AcceptsCorrect(t *testing.T) {
	e := Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`)}
	require.NoError(t, EnsureHash(&e))
	h := *e.Hash

	e2 := Event{Type: "document", Data: json.RawMessage(`{"title":"a"}`), Hash: &h}
	require.NoError(t, EnsureHash(&e2))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
