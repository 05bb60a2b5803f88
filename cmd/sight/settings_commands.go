package main

import (
	"fmt"

	"github.com/artbeyondsight/sight/pkg/accessibility"
	"github.com/spf13/cobra"
)

type settingsView struct {
	Settings            accessibility.Settings `json:"settings"`
	ScreenReaderEnabled bool                   `json:"screenReaderEnabled"`
	StorePath           string                 `json:"storePath"`
}

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change speech and accessibility settings",
	}
	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.accessibilityService(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer service.Close()
			return ctx.renderSettings(cmd, service)
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var rate float64
	var pitch float64
	var tts bool
	var sync bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Persist new settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.accessibilityService(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer service.Close()

			settings := service.Settings()
			flags := cmd.Flags()
			if flags.Changed("rate") {
				settings.Rate = rate
			}
			if flags.Changed("pitch") {
				settings.Pitch = pitch
			}
			if flags.Changed("tts") {
				settings.TTSEnabled = tts
			}
			if flags.Changed("sync") {
				settings.SyncWithVoiceOver = sync
			}
			if err := service.SaveSettings(cmd.Context(), settings); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			return ctx.renderSettings(cmd, service)
		},
	}

	cmd.Flags().Float64Var(&rate, "rate", 0, "Default speech rate")
	cmd.Flags().Float64Var(&pitch, "pitch", 0, "Default speech pitch")
	cmd.Flags().BoolVar(&tts, "tts", true, "Enable text-to-speech")
	cmd.Flags().BoolVar(&sync, "sync", false, "Use screen reader speech defaults while it is on")
	return cmd
}

func (c *commandContext) renderSettings(cmd *cobra.Command, service *accessibility.Service) error {
	view := settingsView{
		Settings:            service.Settings(),
		ScreenReaderEnabled: service.ScreenReaderEnabled(),
		StorePath:           c.settingsStore().Path(),
	}
	rows := [][]string{
		{"Rate", fmt.Sprintf("%.2f", view.Settings.Rate)},
		{"Pitch", fmt.Sprintf("%.2f", view.Settings.Pitch)},
		{"Text-to-speech", fmt.Sprintf("%t", view.Settings.TTSEnabled)},
		{"Sync with screen reader", fmt.Sprintf("%t", view.Settings.SyncWithVoiceOver)},
		{"Screen reader", fmt.Sprintf("%t", view.ScreenReaderEnabled)},
		{"Stored at", view.StorePath},
	}
	return c.render(cmd, view, []string{"Setting", "Value"}, rows, nil)
}
