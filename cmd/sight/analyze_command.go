package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/artbeyondsight/sight/pkg/capture"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/orchestrator"
	"github.com/spf13/cobra"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var name string
	var speak bool
	var progress bool

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze an image file (or data URL) and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := model.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			image, err := loadImage(args[0], ctx.captureOptions())
			if err != nil {
				return err
			}

			var observer orchestrator.StageObserver
			if progress {
				errOut := cmd.ErrOrStderr()
				observer = orchestrator.StageObserverFunc(func(_ context.Context, event orchestrator.StageEvent) {
					fmt.Fprintf(errOut, "[%s] %s\n", event.Mode, event.Stage)
				})
			}
			runner, err := ctx.orchestrator(cmd.Context(), ctx.backendClient(), observer)
			if err != nil {
				return err
			}

			result, err := runner.Orchestrate(cmd.Context(), orchestrator.Request{Image: image, Mode: mode, Name: name})
			if err != nil {
				return err
			}
			if err := ctx.render(cmd, result, []string{"Field", "Value"}, resultRows(result), nil); err != nil {
				return err
			}

			if speak {
				service, err := ctx.accessibilityService(cmd.Context(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer service.Close()
				service.AnnounceOrSpeak(cmd.Context(), narration(result), speechDefaults(ctx))
				service.WaitForSpeech(cmd.Context(), speechPollInterval)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", string(model.ModeMuseum), "Analysis mode: museum, monuments or landscape")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Known subject name; used as cache key and title")
	cmd.Flags().BoolVar(&speak, "speak", false, "Read the result aloud (or announce it when a screen reader is on)")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print pipeline stages to stderr")
	return cmd
}

func loadImage(source string, opts capture.Options) (model.Image, error) {
	if strings.HasPrefix(strings.TrimSpace(source), "data:") {
		return capture.FromDataURL(source)
	}
	return capture.FromFile(source, opts)
}

// narration is the text read to the user after an analysis.
func narration(result model.AnalysisResult) string {
	for _, text := range []string{result.HistoricalPrompt, result.ImmersivePrompt, result.Description} {
		if strings.TrimSpace(text) != "" {
			return result.Name + ". " + text
		}
	}
	return result.Name
}

func resultRows(result model.AnalysisResult) [][]string {
	audioURI := ""
	if result.AudioURI != nil {
		audioURI = *result.AudioURI
	}
	return [][]string{
		{"ID", result.ID},
		{"Name", result.Name},
		{"Creator", result.Creator},
		{"Category", result.Category},
		{"Year", result.Year},
		{"Mode", string(result.Mode)},
		{"Emotions", strings.Join(result.Emotions, ", ")},
		{"Historical", result.HistoricalPrompt},
		{"Immersive", result.ImmersivePrompt},
		{"Audio", audioURI},
		{"Cached", fmt.Sprintf("%t", result.Cached)},
	}
}
