package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"subforge/internal/api"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			out := cmd.OutOrStdout()

			resp, err := client.Logs(cmd.Context(), api.LogsQuery{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			for _, line := range resp.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			offset := resp.Offset
			for {
				resp, err := client.Logs(cmd.Context(), api.LogsQuery{Offset: offset, Follow: true})
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(cmd.Context().Err(), context.Canceled) {
						return nil
					}
					return err
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(out, line)
				}
				offset = resp.Offset
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of trailing lines to show first")
	return cmd
}
