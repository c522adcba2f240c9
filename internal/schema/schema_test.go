package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_ShortAlias(t *testing.T) {
	s := NewService(nil, "")
	raw, err := json.Marshal("boolean")
	require.NoError(t, err)

	resolved, err := s.Resolve(raw)
	require.NoError(t, err)
	require.Contains(t, string(resolved), "boolean")
}

func TestValidate_BooleanAnswerPasses(t *testing.T) {
	s := NewService(nil, "")
	raw, _ := json.Marshal("boolean")

	failures, err := s.Validate(raw, json.RawMessage(`true`))
	require.NoError(t, err)
	require.Empty(t, failures)
}

func TestValidate_BooleanAnswerFails(t *testing.T) {
	s := NewService(nil, "")
	raw, _ := json.Marshal("label-answer/boolean-v1")

	failures, err := s.Validate(raw, json.RawMessage(`"not a bool"`))
	require.NoError(t, err)
	require.NotEmpty(t, failures)
}

func TestValidate_InlineSchema(t *testing.T) {
	s := NewService(nil, "")
	inline := json.RawMessage(`{"type":"integer","minimum":0}`)

	failures, err := s.Validate(inline, json.RawMessage(`5`))
	require.NoError(t, err)
	require.Empty(t, failures)

	failures, err = s.Validate(inline, json.RawMessage(`-1`))
	require.NoError(t, err)
	require.NotEmpty(t, failures)
}

func TestCompile_CachesSchema(t *testing.T) {
	s := NewService(nil, "")
	raw, _ := json.Marshal("boolean")

	c1, err := s.Compile(raw)
	require.NoError(t, err)
	c2, err := s.Compile(raw)
	require.NoError(t, err)
	require.Same(t, c1, c2)
}
