package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// rootFlags holds the persistent flags every subcommand reads from,
// resolved once in PersistentPreRunE.
type rootFlags struct {
	configPath string
	dev        bool
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "sr",
		Short:         "Content-addressed event pipeline runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			flags.logger = configureLogger(flags.dev)
			slog.SetDefault(flags.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "sr.yaml", "path to the project's sr.yaml")
	cmd.PersistentFlags().BoolVar(&flags.dev, "dev", false, "use text log format (default is JSON)")

	cmd.AddCommand(newFlowCommand(flags))
	cmd.AddCommand(newPullCommand(flags))
	cmd.AddCommand(newRunEmbeddedStepCommand(flags))
	cmd.AddCommand(newHashCommand())
	cmd.AddCommand(newPrintConfigCommand(flags))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sr version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("sr (srvc-go)\n"))
			return err
		},
	}
}
