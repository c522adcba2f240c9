package embedded

import "fmt"

// Dispatch runs the named embedded step, passing the remaining
// positional arguments (only "http-map", "run-using", "add-hashes" and
// "generator-file" take one; the rest take none). It mirrors the original CLI's
// EmbeddedSteps subcommand enum.
func Dispatch(name string, args []string) error {
	switch name {
	case "sink":
		return RunSink()
	case "label-cli":
		return RunLabelCLI()
	case "skip-reviewed":
		return RunSkipReviewed()
	case "http-map":
		if len(args) != 1 {
			return fmt.Errorf("embedded: http-map requires exactly one URL argument")
		}
		return RunHTTPMap(args[0])
	case "run-using":
		if len(args) != 1 {
			return fmt.Errorf("embedded: run-using requires exactly one flake reference argument")
		}
		return RunUsing(args[0])
	case "add-hashes":
		if len(args) != 1 {
			return fmt.Errorf("embedded: add-hashes requires exactly one file argument")
		}
		return RunAddHashes(args[0])
	case "generator-file":
		if len(args) != 1 {
			return fmt.Errorf("embedded: generator-file requires exactly one file or URL argument")
		}
		return RunGeneratorFile(args[0])
	default:
		return fmt.Errorf("embedded: unknown embedded step %q", name)
	}
}
