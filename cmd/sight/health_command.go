package main

import (
	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the history backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.backendClient()
			health, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Backend", client.BaseURL()},
				{"Status", health.Status},
				{"Timestamp", health.Timestamp},
			}
			return ctx.render(cmd, health, []string{"Check", "Value"}, rows, nil)
		},
	}
}
