package suno

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

const (
	DisabledTaskID      = "music-generation-disabled"
	DefaultStyle        = "Classical"
	DefaultNegativeTags = "Heavy Metal, Upbeat Drums, Rock"
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 60
)

var (
	ErrGenerationFailed  = errors.New("music generation failed")
	ErrGenerationTimeout = errors.New("music generation timeout")
)

type Config struct {
	// Enabled turns on the remote generate-and-poll flow. When false Generate
	// returns a completed result without audio and makes no network call.
	Enabled      bool
	PollInterval time.Duration
	MaxAttempts  int
	CallbackURL  string
}

type Generator struct {
	cfg      Config
	provider model.ProviderConfig
}

func New(cfg Config, opts ...model.ProviderOption) *Generator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Generator{cfg: cfg, provider: model.ResolveProviderOpts(opts...)}
}

func (g *Generator) Generate(ctx context.Context, req model.MusicRequest) (model.MusicResult, error) {
	log := logging.NewLogger(ctx)
	if !g.cfg.Enabled {
		log.Warnf("music generation disabled, returning empty result")
		return model.MusicResult{ID: DisabledTaskID, Status: model.MusicStatusCompleted}, nil
	}

	client, err := newAPIClient(g.provider)
	if err != nil {
		return model.MusicResult{}, utils.WrapIfNotNil(err)
	}

	request := generateRequest{
		Prompt:       req.Prompt,
		CustomMode:   false,
		Instrumental: req.Instrumental,
		Style:        firstNonEmpty(req.Style, DefaultStyle),
		NegativeTags: firstNonEmpty(req.NegativeTags, DefaultNegativeTags),
		Model:        defaultModel,
		AudioWeight:  defaultAudioWeight,
		CallBackURL:  g.cfg.CallbackURL,
	}
	log.Infof("music_request style=%q instrumental=%t", request.Style, request.Instrumental)

	taskID, err := client.submit(ctx, request)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.MusicResult{}, utils.WrapIfNotNil(err)
	}

	result, err := g.poll(ctx, client, taskID)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.MusicResult{ID: taskID, Status: model.MusicStatusFailed}, utils.WrapIfNotNil(err)
	}
	return result, nil
}

// poll checks the task on a fixed interval. Transport errors on a single
// attempt are logged and retried; a failed status or exhausting the attempts
// is terminal.
func (g *Generator) poll(ctx context.Context, client *apiClient, taskID string) (model.MusicResult, error) {
	log := logging.NewLogger(ctx)
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if !utils.SleepWithContext(ctx, g.cfg.PollInterval) {
			return model.MusicResult{}, ctx.Err()
		}

		task, err := client.task(ctx, taskID)
		if err != nil {
			log.Warnf("music poll attempt %d failed: %v", attempt, err)
			continue
		}

		switch model.MusicStatus(strings.ToLower(task.Status)) {
		case model.MusicStatusCompleted:
			return model.MusicResult{
				ID:       firstNonEmpty(task.ID, taskID),
				AudioURI: firstNonEmpty(task.AudioURL, task.URL),
				Status:   model.MusicStatusCompleted,
				Duration: task.Duration,
			}, nil
		case model.MusicStatusFailed:
			return model.MusicResult{}, ErrGenerationFailed
		}
	}
	return model.MusicResult{}, fmt.Errorf("%w after %d attempts", ErrGenerationTimeout, g.cfg.MaxAttempts)
}

// CreateMusicPrompt builds a generation prompt from analysis output.
func CreateMusicPrompt(title string, emotions []string, genre string) string {
	return fmt.Sprintf(
		"Create an %s instrumental piece that evokes %s feelings, inspired by %s. The music should be contemplative and immersive.",
		firstNonEmpty(genre, "ambient"), strings.Join(emotions, ", "), title,
	)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var _ model.MusicProvider = (*Generator)(nil)
