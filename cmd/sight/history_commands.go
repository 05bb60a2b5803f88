package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artbeyondsight/sight/pkg/backend"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "Browse stored analyses",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistorySearchCommand(ctx))
	historyCmd.AddCommand(newHistoryDeleteCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			analysisType := ""
			if strings.TrimSpace(modeFlag) != "" {
				mode, err := model.ParseMode(modeFlag)
				if err != nil {
					return err
				}
				analysisType = string(mode)
			}
			records, err := ctx.backendClient().List(cmd.Context(), analysisType)
			if err != nil {
				return err
			}
			return ctx.renderRecords(cmd, records)
		},
	}
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Only list one mode")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := ctx.backendClient().Get(cmd.Context(), args[0])
			if errors.Is(err, backend.ErrNotFound) {
				return fmt.Errorf("analysis %s not found", args[0])
			}
			if err != nil {
				return err
			}
			result := record.Result()
			return ctx.render(cmd, result, []string{"Field", "Value"}, resultRows(result), nil)
		},
	}
}

func newHistorySearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <name>",
		Short: "Find stored analyses by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ctx.backendClient().Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return ctx.renderRecords(cmd, records)
		},
	}
}

func newHistoryDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.backendClient().Delete(cmd.Context(), args[0])
			if errors.Is(err, backend.ErrNotFound) {
				return fmt.Errorf("analysis %s not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis %s\n", args[0])
			return nil
		},
	}
}

func (c *commandContext) renderRecords(cmd *cobra.Command, records []backend.Record) error {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.ID,
			record.ImageName,
			record.AnalysisType,
			record.Metadata.Creator,
			record.Metadata.Year,
			record.UpdatedAt,
		})
	}
	return c.render(cmd, records, []string{"ID", "Name", "Mode", "Creator", "Year", "Updated"}, rows, []columnAlignment{alignRight})
}
