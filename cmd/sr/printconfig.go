package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/insilica/srvc-go/internal/config"
)

func newPrintConfigCommand(root *rootFlags) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "print-config",
		Short: "Resolve sr.yaml and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}

			var b []byte
			if pretty {
				b, err = json.MarshalIndent(cfg, "", "  ")
			} else {
				b, err = json.Marshal(cfg)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(b, '\n'))
			return err
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the output JSON")
	return cmd
}
