package main

import (
	"errors"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/spf13/cobra"
)

const speechPollInterval = 100 * time.Millisecond

func newSpeakCommand(ctx *commandContext) *cobra.Command {
	var rate float64
	var pitch float64
	var language string
	var voice string
	var announce bool

	cmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Read text aloud with the configured speech provider",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("nothing to say")
			}
			service, err := ctx.accessibilityService(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer service.Close()

			opts := model.SpeechOptions{Language: language, Voice: voice}
			if opts.Voice == "" {
				opts.Voice = ctx.config.Speech.Voice
			}
			if cmd.Flags().Changed("rate") {
				opts = opts.WithRate(rate)
			}
			if cmd.Flags().Changed("pitch") {
				opts = opts.WithPitch(pitch)
			}

			if announce {
				service.AnnounceOrSpeak(cmd.Context(), text, opts)
			} else {
				service.Speak(cmd.Context(), text, opts)
			}
			service.WaitForSpeech(cmd.Context(), speechPollInterval)
			return nil
		},
	}

	cmd.Flags().Float64Var(&rate, "rate", 0, "Speech rate override")
	cmd.Flags().Float64Var(&pitch, "pitch", 0, "Speech pitch override")
	cmd.Flags().StringVar(&language, "language", "", "BCP-47 language tag (default en-US)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice name for providers that support it")
	cmd.Flags().BoolVar(&announce, "announce", false, "Announce through the screen reader when it is on")
	return cmd
}

func speechDefaults(ctx *commandContext) model.SpeechOptions {
	return model.SpeechOptions{Voice: ctx.config.Speech.Voice}
}
