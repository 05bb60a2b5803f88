package main

import (
	"fmt"
	"strings"

	"github.com/artbeyondsight/sight/pkg/mcp"
	"github.com/spf13/cobra"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve analysis, history and settings tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history := ctx.backendClient()
			runner, err := ctx.orchestrator(cmd.Context(), history, nil)
			if err != nil {
				return err
			}
			service, err := ctx.accessibilityService(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer service.Close()

			srv := mcp.NewServer(mcp.Deps{
				Analyzer: runner,
				History:  history,
				Settings: service,
				Capture:  ctx.captureOptions(),
			})
			if !list {
				return mcp.Serve(cmd.Context(), srv, cmd.InOrStdin(), cmd.OutOrStdout())
			}

			tools, err := mcp.DescribeTools(cmd.Context(), srv)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(tools))
			for _, tool := range tools {
				rows = append(rows, []string{tool.Name, strings.Join(tool.Arguments, ", "), tool.Description})
			}
			if err := ctx.render(cmd, tools, []string{"Tool", "Arguments", "Description"}, rows, nil); err != nil {
				return fmt.Errorf("render tools: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "Print the advertised tools and exit")
	return cmd
}
