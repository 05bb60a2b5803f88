package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Remote adapts a vision backend into an AnalysisProvider, applying the
// per-mode mapping of narration prompts.
type Remote struct {
	analyzer model.VisionAnalyzer
}

func NewRemote(analyzer model.VisionAnalyzer) *Remote {
	return &Remote{analyzer: analyzer}
}

func (r *Remote) Analyze(ctx context.Context, image model.Image, mode model.Mode) (model.AnalysisResult, error) {
	log := logging.NewLogger(ctx)
	if !mode.Valid() {
		return model.AnalysisResult{}, utils.WrapIfNotNil(model.ErrUnsupportedMode, string(mode))
	}
	if image.Empty() {
		return model.AnalysisResult{}, utils.WrapIfNotNil(model.ErrMissingImage)
	}

	vision, metadata, err := r.analyzer.AnalyzeImage(ctx, image, mode)
	if err != nil {
		return model.AnalysisResult{}, utils.WrapIfNotNil(err)
	}
	log.WithFields(map[string]any{
		"mode":       mode,
		"provider":   metadata[model.MetadataKeyProvider],
		"latency_ms": metadata[model.MetadataKeyLatencyMs],
	}).Debugf("analysis_response title=%q", vision.Title)

	return BuildResult(mode, vision, image), nil
}

// QuickMetadata asks the backend for a cheap identification. Any failure yields
// the generic {Artwork, Unknown} answer.
func (r *Remote) QuickMetadata(ctx context.Context, image model.Image) model.QuickMetadata {
	meta, _, err := r.analyzer.QuickMetadata(ctx, image)
	if err != nil {
		logging.NewLogger(ctx).Warnf("quick metadata failed: %v", err)
		return ParseQuickMetadata("")
	}
	return meta
}

// BuildResult maps a parsed vision answer onto an AnalysisResult. Museum
// results carry both narration prompts, monuments only the historical one.
func BuildResult(mode model.Mode, vision model.VisionAnalysis, image model.Image) model.AnalysisResult {
	result := model.AnalysisResult{
		Name:        firstNonEmpty(vision.Title, defaultTitle),
		Creator:     firstNonEmpty(vision.Artist, model.DefaultCreator),
		Category:    firstNonEmpty(vision.Type, defaultType),
		Mode:        mode,
		Year:        strings.TrimSpace(vision.Year),
		Description: strings.TrimSpace(vision.Description),
		ImageURI:    image.URI,
	}

	switch mode {
	case model.ModeMuseum:
		result.HistoricalPrompt = firstNonEmpty(vision.HistoricalContext, vision.Description)
		result.ImmersivePrompt = firstNonEmpty(vision.StyleAnalysis, immersivePrompt(result.Name, result.Category, result.Description))
	case model.ModeMonuments:
		result.HistoricalPrompt = firstNonEmpty(vision.HistoricalContext, vision.Description)
	}

	if len(vision.Emotions) > 0 {
		result.Emotions = model.NormalizeEmotions(vision.Emotions)
	} else {
		result.Emotions = ExtractEmotions(result.Description)
	}
	return result
}

func immersivePrompt(title string, category string, description string) string {
	return strings.TrimSpace(fmt.Sprintf("Imagine standing before %s, taking in every detail of this %s. %s",
		title, cases.Lower(language.English).String(category), description))
}
