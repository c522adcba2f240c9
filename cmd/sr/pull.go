package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/generator"
	"github.com/insilica/srvc-go/internal/schema"
	"github.com/insilica/srvc-go/internal/sink"
)

func newPullCommand(root *rootFlags) *cobra.Command {
	var db string
	var sinkControlEvents bool

	cmd := &cobra.Command{
		Use:   "pull <target>",
		Short: "Read events from a generator target straight into the sink, bypassing any flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if db != "" {
				cfg.DB = db
			}
			cfg.SinkControlEvents = sinkControlEvents

			labels := labelSlice(cfg)
			labelEvents, err := generator.LabelEvents(labels)
			if err != nil {
				return err
			}

			src, err := generator.Open(target, labelEvents)
			if err != nil {
				return err
			}
			defer src.Close()

			writer, err := sink.NewWriter(cfg, schema.NewService(nil, ""))
			if err != nil {
				return err
			}
			defer writer.Close()

			count := 0
			for {
				e, err := src.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				if err := writer.Put(e); err != nil {
					return err
				}
				count++
			}

			root.logger.Info("pull complete", "target", target, "events", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "override the config's db target")
	cmd.Flags().BoolVar(&sinkControlEvents, "sink-control-events", false, "forward control events to the sink")

	return cmd
}

func labelSlice(cfg *config.Config) []config.Label {
	out := make([]config.Label, 0, len(cfg.Labels))
	for _, l := range cfg.Labels {
		out = append(out, l)
	}
	return out
}
