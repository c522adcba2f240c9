package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/flow"
)

func newFlowCommand(root *rootFlags) *cobra.Command {
	var db string
	var def string
	var reviewer string
	var sinkControlEvents bool
	var useFreePorts bool

	cmd := &cobra.Command{
		Use:   "flow <name>",
		Short: "Run a named flow to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flowName := args[0]

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if db != "" {
				cfg.DB = db
			}
			cfg.SinkControlEvents = sinkControlEvents

			if def != "" {
				flowDef, err := config.ParseFlowDef(def)
				if err != nil {
					return err
				}
				if cfg.Flows == nil {
					cfg.Flows = make(map[string]config.Flow, 1)
				}
				cfg.Flows[flowName] = flowDef
			}

			if reviewer == "" {
				reviewer = cfg.Reviewer
			}
			if reviewer == "" {
				return fmt.Errorf("\"reviewer\" not set in config")
			}
			if err := config.ValidateReviewer(reviewer); err != nil {
				return err
			}
			cfg.Reviewer = reviewer

			if _, ok := cfg.Flows[flowName]; !ok {
				return fmt.Errorf("no flow named %q in %q", flowName, root.configPath)
			}

			// useFreePorts is accepted for CLI compatibility: this
			// supervisor always binds relay listeners to 127.0.0.1:0,
			// so there is no fixed-port mode to opt out of.
			_ = useFreePorts

			root.logger.Info("running flow", "flow", flowName, "db", cfg.DB)
			return flow.Run(cfg, flowName)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "override the config's db target")
	cmd.Flags().StringVar(&def, "def", "", "ad hoc flow definition as a JSON array of steps, inserted under <name>")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "override the config's reviewer URI")
	cmd.Flags().BoolVar(&sinkControlEvents, "sink-control-events", false, "forward control events to the sink")
	cmd.Flags().BoolVar(&useFreePorts, "use-free-ports", true, "always true: relay listeners always bind ephemeral ports")

	return cmd
}
