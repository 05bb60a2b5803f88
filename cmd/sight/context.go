package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/artbeyondsight/sight/pkg/accessibility"
	"github.com/artbeyondsight/sight/pkg/analysis"
	"github.com/artbeyondsight/sight/pkg/audio"
	"github.com/artbeyondsight/sight/pkg/backend"
	"github.com/artbeyondsight/sight/pkg/capture"
	"github.com/artbeyondsight/sight/pkg/config"
	"github.com/artbeyondsight/sight/pkg/llms/anthropic"
	"github.com/artbeyondsight/sight/pkg/llms/bedrock"
	"github.com/artbeyondsight/sight/pkg/llms/gemini"
	"github.com/artbeyondsight/sight/pkg/llms/openai"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/music/suno"
	"github.com/artbeyondsight/sight/pkg/orchestrator"
	"github.com/artbeyondsight/sight/pkg/speech/device"
	"github.com/artbeyondsight/sight/pkg/speech/unrealspeech"
)

type commandContext struct {
	configFlag *string
	jsonOutput bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) configureLogging(out io.Writer) {
	logging.SetLoggerFactory(logging.NewLogrusFactory(c.config.Log.Level, c.config.Log.Format, out))
}

func (c *commandContext) captureOptions() capture.Options {
	return capture.Options{
		MaxDimension: c.config.Capture.MaxDimension,
		JPEGQuality:  c.config.Capture.Quality,
	}
}

func (c *commandContext) backendClient() *backend.Client {
	return backend.New(c.config.Backend.ProviderOptions()...)
}

// analysisProvider builds the configured remote analyzer. A nil provider with
// a nil error means every analysis uses canned content.
func (c *commandContext) analysisProvider(ctx context.Context) (*analysis.Remote, error) {
	cfg := c.config.Analysis
	opts := cfg.ProviderOptions()

	var analyzer model.VisionAnalyzer
	var err error
	switch cfg.Provider {
	case config.AnalysisOffline:
		return nil, nil
	case config.AnalysisNavigator, "":
		analyzer, err = openai.NewVisionAnalyzer(opts...)
	case config.AnalysisGemini:
		analyzer, err = gemini.NewVisionAnalyzer(opts...)
	case config.AnalysisBedrock:
		analyzer, err = bedrock.NewVisionAnalyzer(opts...)
	case config.AnalysisAnthropic:
		analyzer, err = anthropic.NewVisionAnalyzer(opts...)
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", cfg.Provider)
	}
	if err != nil {
		if model.IsMissingCredential(err) && !c.config.Orchestrator.StrictCredentials {
			logging.NewLogger(ctx).Warnf("analysis provider unavailable, using canned content: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return analysis.NewRemote(analyzer), nil
}

func (c *commandContext) musicProvider() model.MusicProvider {
	cfg := c.config.Music
	return suno.New(suno.Config{
		Enabled:      cfg.Enabled,
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
		CallbackURL:  cfg.CallbackURL,
	}, cfg.ProviderOptions()...)
}

func (c *commandContext) speaker() (model.SpeechProvider, error) {
	cfg := c.config.Speech
	switch cfg.Provider {
	case config.SpeechDevice, "":
		return device.New(device.WithEngine(cfg.Engine)), nil
	case config.SpeechUnrealSpeech:
		playerOpts := make([]audio.PlayerOption, 0, 1)
		if fields := strings.Fields(cfg.PlayerCommand); len(fields) > 0 {
			playerOpts = append(playerOpts, audio.WithCommand(fields[0], fields[1:]...))
		}
		tuning := unrealspeech.Tuning{Bitrate: cfg.Bitrate, Speed: cfg.Speed, Pitch: cfg.Pitch}
		return unrealspeech.New(audio.NewPlayer(playerOpts...), tuning, cfg.ProviderOptions()...), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Provider)
	}
}

func (c *commandContext) settingsStore() *accessibility.FileStore {
	path := strings.TrimSpace(c.config.Accessibility.SettingsPath)
	if path == "" {
		path = accessibility.DefaultStorePath()
	}
	return accessibility.NewFileStore(path)
}

// accessibilityService returns an initialized service. Callers close it.
func (c *commandContext) accessibilityService(ctx context.Context, out io.Writer) (*accessibility.Service, error) {
	speaker, err := c.speaker()
	if err != nil {
		return nil, err
	}
	service := accessibility.New(speaker, c.settingsStore(), accessibility.DesktopPlatform(c.config.Accessibility.ScreenReader, out))
	service.Initialize(ctx)
	return service, nil
}

func (c *commandContext) orchestrator(ctx context.Context, history *backend.Client, observer orchestrator.StageObserver) (*orchestrator.Orchestrator, error) {
	provider, err := c.analysisProvider(ctx)
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithMusic(c.musicProvider()),
		orchestrator.WithStrictCredentials(c.config.Orchestrator.StrictCredentials),
	}
	if observer != nil {
		opts = append(opts, orchestrator.WithObserver(observer))
	}
	if provider == nil {
		return orchestrator.New(nil, history, opts...), nil
	}
	if c.config.Orchestrator.QuickLookup {
		opts = append(opts, orchestrator.WithQuickLookup(provider))
	}
	return orchestrator.New(provider, history, opts...), nil
}
