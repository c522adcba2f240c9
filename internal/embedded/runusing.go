package embedded

import (
	"fmt"
	"os"
	"os/exec"
)

// RunUsing implements the "run-using" embedded step: a step declared
// with `uses: <flake>` is translated into this target, which shells
// out to `nix run <flake>` and inherits stdio (and, by extension, the
// SR_CONFIG/SR_INPUT/SR_OUTPUT environment the supervisor already set
// for this process) so the flake-built step sees the same child
// protocol a native run step would.
func RunUsing(flake string) error {
	cmd := exec.Command("nix", "run", flake)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run-using: %w", err)
	}
	return nil
}
