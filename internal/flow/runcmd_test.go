package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insilica/srvc-go/internal/config"
)

func TestResolveRunCommandVariants(t *testing.T) {
	program, args, err := resolveRunCommand(config.Step{RunEmbedded: "sink"}, "/usr/bin/sr")
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/sr", program)
	require.Equal(t, []string{"run-embedded-step", "sink"}, args)

	program, args, err = resolveRunCommand(config.Step{Uses: "github:org/flake#step"}, "/usr/bin/sr")
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/sr", program)
	require.Equal(t, []string{"run-embedded-step", "run-using", "github:org/flake#step"}, args)

	program, args, err = resolveRunCommand(config.Step{Run: "python3 -m reviewer --flag 'two words'"}, "/usr/bin/sr")
	require.NoError(t, err)
	require.Equal(t, "python3", program)
	require.Equal(t, []string{"-m", "reviewer", "--flag", "two words"}, args)

	_, _, err = resolveRunCommand(config.Step{}, "/usr/bin/sr")
	require.Error(t, err)
}

// TestResolveRunCommandFromParsedYAML guards against a Step.Run type that
// cannot actually unmarshal the documented scalar `run: "cmd --flag"` form.
func TestResolveRunCommandFromParsedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sr.yaml")
	content := "flows:\n  review:\n    - run: python3 foo.py --flag\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Flows["review"], 1)

	program, args, err := resolveRunCommand(cfg.Flows["review"][0], "/usr/bin/sr")
	require.NoError(t, err)
	require.Equal(t, "python3", program)
	require.Equal(t, []string{"foo.py", "--flag"}, args)
}
