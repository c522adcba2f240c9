package main

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insilica/srvc-go/internal/event"
)

func newHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Read NDJSON from stdin, ensure-hash every event, write NDJSON to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()

			line := 0
			for scanner.Scan() {
				line++
				e, err := event.Parse(scanner.Text())
				if err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				if e == nil {
					continue
				}
				if err := event.EnsureHash(e); err != nil {
					return err
				}
				b, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("serializing event: %w", err)
				}
				if _, err := out.Write(append(b, '\n')); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
}
