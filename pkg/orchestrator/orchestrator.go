// Package orchestrator turns one captured image into a persisted analysis
// result: cache lookup, analysis, optional music and persistence, in that
// order.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/artbeyondsight/sight/pkg/analysis"
	"github.com/artbeyondsight/sight/pkg/backend"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/music/suno"
	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/google/uuid"
)

const musicGenre = "ambient classical"

// Store is the persistence collaborator. *backend.Client implements it.
type Store interface {
	FindByName(ctx context.Context, name string, mode model.Mode) *backend.Record
	FindByImageURI(ctx context.Context, imageURI string, mode model.Mode) *backend.Record
	Save(ctx context.Context, record backend.Record) (backend.Record, error)
}

// Identifier gives a cheap subject name used as the cache key when the
// caller did not provide one. *analysis.Remote implements it.
type Identifier interface {
	QuickMetadata(ctx context.Context, image model.Image) model.QuickMetadata
}

type Request struct {
	Image model.Image
	Mode  model.Mode
	// Name is the human-assigned subject name. When set it is the primary
	// cache key and overrides the analyzed title.
	Name string
}

type Option func(*Orchestrator)

func WithMusic(provider model.MusicProvider) Option {
	return func(o *Orchestrator) {
		o.music = provider
	}
}

func WithObserver(observer StageObserver) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// WithStrictCredentials makes a missing analysis credential fail the capture
// event instead of producing canned content.
func WithStrictCredentials(strict bool) Option {
	return func(o *Orchestrator) {
		o.strictCredentials = strict
	}
}

// WithQuickLookup derives a cache name from quick identification before the
// full analysis runs.
func WithQuickLookup(identifier Identifier) Option {
	return func(o *Orchestrator) {
		o.identifier = identifier
	}
}

type Orchestrator struct {
	analyzer          model.AnalysisProvider
	store             Store
	music             model.MusicProvider
	observer          StageObserver
	identifier        Identifier
	strictCredentials bool
}

// New wires the pipeline. primary may be nil, in which case every analysis
// uses the canned content for its mode.
func New(primary model.AnalysisProvider, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: store}
	for _, opt := range opts {
		opt(o)
	}
	o.analyzer = analysis.NewResilient(primary, analysis.WithStrictCredentials(o.strictCredentials))
	return o
}

// Orchestrate runs one capture event. Only a missing image, a missing
// credential in strict mode or a persistence failure return an error;
// analysis and music failures degrade to fallback content.
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request) (model.AnalysisResult, error) {
	captureID := uuid.NewString()
	ctx = logging.ContextWithFields(ctx, map[string]any{"capture_id": captureID, "mode": req.Mode})
	log := logging.NewLogger(ctx)

	fail := func(err error) (model.AnalysisResult, error) {
		log.Errorf("error: %v", err)
		o.emit(ctx, StageEvent{CaptureID: captureID, Stage: StageErrored, Mode: req.Mode, Err: err})
		return model.AnalysisResult{}, utils.WrapIfNotNil(err)
	}

	if !req.Mode.Valid() {
		return fail(fmt.Errorf("%w: %q", model.ErrUnsupportedMode, req.Mode))
	}
	if req.Image.Empty() {
		return fail(model.ErrMissingImage)
	}
	req.Image.URI = req.Image.SourceURI()

	o.emit(ctx, StageEvent{CaptureID: captureID, Stage: StageCacheCheck, Mode: req.Mode})
	if cached := o.lookup(ctx, req); cached != nil {
		result := cached.Result()
		log.Infof("analysis_cache_hit id=%q name=%q", result.ID, result.Name)
		o.emit(ctx, StageEvent{CaptureID: captureID, Stage: StageDone, Mode: req.Mode, CacheHit: true})
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	o.emit(ctx, StageEvent{CaptureID: captureID, Stage: StageAnalyzing, Mode: req.Mode})
	result, err := o.analyzer.Analyze(ctx, req.Image, req.Mode)
	if err != nil {
		return fail(err)
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		result.Name = name
	}
	if result.ImageURI == "" {
		result.ImageURI = req.Image.URI
	}
	log.Infof("analysis_complete name=%q creator=%q emotions=%d", result.Name, result.Creator, len(result.Emotions))

	if req.Mode == model.ModeMuseum && o.music != nil {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		o.emit(ctx, StageEvent{CaptureID: captureID, Stage: StageMusicGenerating, Mode: req.Mode})
		result.AudioURI = o.generateMusic(ctx, result)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	o.emit(ctx, StageEvent{CaptureID: captureID, Stage: StagePersisting, Mode: req.Mode})
	saved, err := o.store.Save(ctx, backend.RecordFromResult(result))
	if err != nil {
		return fail(fmt.Errorf("%w: %w", model.ErrPersistence, err))
	}
	result.ID = saved.ID

	log.Infof("analysis_persisted id=%q", result.ID)
	o.emit(ctx, StageEvent{CaptureID: captureID, Stage: StageDone, Mode: req.Mode})
	return result, nil
}

// lookup checks the exact name first and the image URI second.
func (o *Orchestrator) lookup(ctx context.Context, req Request) *backend.Record {
	name := strings.TrimSpace(req.Name)
	if name == "" && o.identifier != nil {
		if meta := o.identifier.QuickMetadata(ctx, req.Image); analysis.Identified(meta) {
			name = meta.Title
		}
	}
	if name != "" {
		if record := o.store.FindByName(ctx, name, req.Mode); record != nil {
			return record
		}
	}
	return o.store.FindByImageURI(ctx, req.Image.URI, req.Mode)
}

func (o *Orchestrator) generateMusic(ctx context.Context, result model.AnalysisResult) *string {
	log := logging.NewLogger(ctx)
	music, err := o.music.Generate(ctx, model.MusicRequest{
		Prompt:       suno.CreateMusicPrompt(result.Name, result.Emotions, musicGenre),
		Style:        suno.DefaultStyle,
		NegativeTags: suno.DefaultNegativeTags,
		Instrumental: true,
	})
	if err != nil {
		log.Warnf("music generation failed, continuing without audio: %v", err)
		return nil
	}
	return model.StringPtr(music.AudioURI)
}

func (o *Orchestrator) emit(ctx context.Context, event StageEvent) {
	if o.observer != nil {
		o.observer.OnStage(ctx, event)
	}
}
