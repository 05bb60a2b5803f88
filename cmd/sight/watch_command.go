package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artbeyondsight/sight/pkg/accessibility"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/orchestrator"
	"github.com/artbeyondsight/sight/pkg/vision"
	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var framePath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream camera frames for realtime detection and analyze what is found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config.Vision
			if strings.TrimSpace(framePath) == "" {
				framePath = cfg.FramePath
			}
			if strings.TrimSpace(framePath) == "" {
				return errors.New("a frame path is required (--frames or vision.framePath)")
			}

			service, err := ctx.accessibilityService(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer service.Close()
			runner, err := ctx.orchestrator(cmd.Context(), ctx.backendClient(), nil)
			if err != nil {
				return err
			}

			frames := vision.FileFrameSource{Path: framePath, Options: ctx.captureOptions()}
			stream := vision.NewStream(vision.StreamConfig{URL: cfg.URL, APIKey: cfg.APIKey, Model: cfg.Model}, frames)
			detector := vision.NewDetector(func(runCtx context.Context, detection vision.Detection) error {
				return analyzeDetection(runCtx, cmd, ctx, runner, service, frames, detection)
			}, vision.WithCooldown(cfg.Cooldown))
			defer detector.Close()

			service.AnnounceOrSpeak(cmd.Context(), "Camera ready. Point at an artwork, monument or landscape.", speechDefaults(ctx))

			results := make(chan vision.StreamResult, 8)
			streamErr := make(chan error, 1)
			go func() {
				defer close(results)
				streamErr <- stream.Run(cmd.Context(), results)
			}()

			runErr := detector.Run(cmd.Context(), results)
			err = <-streamErr
			if errors.Is(runErr, context.Canceled) && errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&framePath, "frames", "", "Image file a camera tool keeps overwriting with the latest frame")
	return cmd
}

func analyzeDetection(
	ctx context.Context,
	cmd *cobra.Command,
	cli *commandContext,
	runner *orchestrator.Orchestrator,
	service *accessibility.Service,
	frames vision.FileFrameSource,
	detection vision.Detection,
) error {
	log := logging.NewLogger(ctx)
	service.HapticImpact(ctx, accessibility.HapticMedium)
	service.Announce(ctx, fmt.Sprintf("%s detected, analyzing", detection.Type))

	image, err := frames.Frame(ctx)
	if err != nil {
		log.Errorf("error: %v", err)
		return err
	}
	result, err := runner.Orchestrate(ctx, orchestrator.Request{Image: image, Mode: detection.Type})
	if err != nil {
		service.Announce(ctx, "Analysis failed")
		return err
	}
	if err := writeJSON(cmd, result); err != nil {
		log.Warnf("result output failed: %v", err)
	}
	service.AnnounceOrSpeak(ctx, narration(result), speechDefaults(cli))
	service.WaitForSpeech(ctx, speechPollInterval)
	return nil
}
