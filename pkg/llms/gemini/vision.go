package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/analysis"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
	"google.golang.org/genai"
)

type visionAnalyzer struct {
	cfg model.ProviderConfig
}

// NewVisionAnalyzer returns a Gemini-backed VisionAnalyzer. The API client is
// created per call, so only the credential is checked here.
func NewVisionAnalyzer(opts ...model.ProviderOption) (model.VisionAnalyzer, error) {
	cfg := model.ResolveProviderOpts(opts...)
	if resolveToken(cfg) == "" {
		return nil, model.MissingCredential(providerName, envAPIKey)
	}
	return &visionAnalyzer{cfg: cfg}, nil
}

func (a *visionAnalyzer) AnalyzeImage(ctx context.Context, image model.Image, mode model.Mode) (model.VisionAnalysis, model.GenerationMetadata, error) {
	start := time.Now()
	modelName := resolveGenerationModelName(a.cfg)
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	prompt, err := analysis.Prompt(mode)
	if err != nil {
		return model.VisionAnalysis{}, meta, utils.WrapIfNotNil(err)
	}

	maxTokens := analysis.DefaultMaxTokens
	if a.cfg.MaxTokens != nil {
		maxTokens = *a.cfg.MaxTokens
	}
	log.Infof("analysis_request mode=%q model=%q max_tokens=%d", mode, modelName, maxTokens)

	text, err := a.generate(ctx, modelName, image, prompt, maxTokens, meta)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.VisionAnalysis{}, meta, utils.WrapIfNotNil(err)
	}

	result, parsed := analysis.ParseVisionResponse(text, mode)
	if !parsed {
		meta[model.MetadataKeyParseFallback] = "true"
	}
	return result, meta, nil
}

func (a *visionAnalyzer) QuickMetadata(ctx context.Context, image model.Image) (model.QuickMetadata, model.GenerationMetadata, error) {
	start := time.Now()
	modelName := resolveGenerationModelName(a.cfg)
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	text, err := a.generate(ctx, modelName, image, analysis.QuickMetadataPrompt, analysis.QuickMetadataMaxTokens, meta)
	if err != nil {
		logging.NewLogger(ctx).Errorf("error: %v", err)
		return model.QuickMetadata{}, meta, utils.WrapIfNotNil(err)
	}
	return analysis.ParseQuickMetadata(text), meta, nil
}

func (a *visionAnalyzer) generate(
	ctx context.Context,
	modelName string,
	image model.Image,
	prompt string,
	maxTokens int,
	meta model.GenerationMetadata,
) (string, error) {
	data, mimeType, err := image.Bytes()
	if err != nil || len(data) == 0 {
		return "", utils.WrapIfNotNil(model.ErrMissingImage)
	}

	client, err := newAPIClient(ctx, a.cfg)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(prompt),
				genai.NewPartFromBytes(data, mimeType),
			},
			genai.RoleUser,
		),
	}

	response, err := client.Models.GenerateContent(ctx, modelName, contents, buildGenerateContentConfig(a.cfg, maxTokens))
	if err != nil {
		return "", utils.WrapIfNotNil(asProviderError(err))
	}
	applyGenerateMetadata(meta, response)

	text := strings.TrimSpace(response.Text())
	if text == "" {
		return "", utils.WrapIfNotNil(errors.New("gemini response is empty"))
	}
	return text, nil
}

func buildGenerateContentConfig(cfg model.ProviderConfig, maxTokens int) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if cfg.Temperature != nil {
		temp := float32(*cfg.Temperature)
		config.Temperature = &temp
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	return config
}
