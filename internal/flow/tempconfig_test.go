package flow

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insilica/srvc-go/internal/config"
)

func TestWriteStepConfigIsUniquePerCall(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Reviewer: "bob"}

	p1, err := writeStepConfig(dir, cfg)
	require.NoError(t, err)
	p2, err := writeStepConfig(dir, cfg)
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)

	b, err := os.ReadFile(p1)
	require.NoError(t, err)
	var decoded config.Config
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "bob", decoded.Reviewer)
}
