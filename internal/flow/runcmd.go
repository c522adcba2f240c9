package flow

import (
	"fmt"
	"os"

	"github.com/google/shlex"

	"github.com/insilica/srvc-go/internal/config"
)

// resolveRunCommand turns a step's Run/RunEmbedded/Uses field into a
// program path and argument list. run-embedded and uses steps both
// re-exec the current binary's cmd/sr entrypoint, asking it to dispatch
// to the named embedded step or to "run-using <flake>".
func resolveRunCommand(step config.Step, exePath string) (string, []string, error) {
	switch {
	case step.RunEmbedded != "":
		return exePath, []string{"run-embedded-step", step.RunEmbedded}, nil
	case step.Uses != "":
		return exePath, []string{"run-embedded-step", "run-using", step.Uses}, nil
	case step.Run != "":
		return splitRun(step.Run)
	default:
		return "", nil, fmt.Errorf("flow: step has no run, run-embedded, or uses")
	}
}

func splitRun(runLine string) (string, []string, error) {
	args, err := shlex.Split(runLine)
	if err != nil {
		return "", nil, fmt.Errorf("flow: parsing run command %q: %w", runLine, err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("flow: empty run command")
	}
	return args[0], args[1:], nil
}

// exePath returns the path to the currently-running binary, used so
// run-embedded/uses steps re-exec this same program. Go's
// os.Executable already returns a clean, symlink-resolved path on both
// Unix and Windows, so unlike the original's #[cfg(windows)] special
// case, no platform branch is needed here.
func exePath() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("flow: resolving executable path: %w", err)
	}
	return p, nil
}
