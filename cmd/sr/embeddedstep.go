package main

import (
	"github.com/spf13/cobra"

	"github.com/insilica/srvc-go/internal/embedded"
)

func newRunEmbeddedStepCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:                "run-embedded-step <name> [args...]",
		Short:              "Run one of the built-in embedded steps (sink, label-cli, skip-reviewed, http-map, run-using, add-hashes, generator-file)",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return embedded.Dispatch(args[0], args[1:])
		},
	}
}
