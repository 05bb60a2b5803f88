package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/artbeyondsight/sight/pkg/analysis"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

type visionAnalyzer struct {
	client *apiClient
	cfg    model.ProviderConfig
}

// NewVisionAnalyzer returns a VisionAnalyzer backed by the Messages API.
func NewVisionAnalyzer(opts ...model.ProviderOption) (model.VisionAnalyzer, error) {
	cfg := model.ResolveProviderOpts(opts...)
	client, err := newAPIClient(cfg)
	if err != nil {
		return nil, err
	}
	return &visionAnalyzer{client: client, cfg: cfg}, nil
}

func (a *visionAnalyzer) AnalyzeImage(ctx context.Context, image model.Image, mode model.Mode) (model.VisionAnalysis, model.GenerationMetadata, error) {
	start := time.Now()
	modelName := resolveModelName(a.cfg)
	meta := initMetadata(modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	prompt, err := analysis.Prompt(mode)
	if err != nil {
		return model.VisionAnalysis{}, meta, utils.WrapIfNotNil(err)
	}

	maxTokens := analysis.DefaultMaxTokens
	if a.cfg.MaxTokens != nil && *a.cfg.MaxTokens > 0 {
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
	modelName := resolveModelName(a.cfg)
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
	request, err := buildRequest(modelName, image, prompt, maxTokens, a.cfg.Temperature)
	if err != nil {
		return "", err
	}

	response, err := a.client.createMessage(ctx, request)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	applyResponseMetadata(meta, response)

	text := responseText(response)
	if text == "" {
		return "", utils.WrapIfNotNil(errors.New("anthropic response is empty"))
	}
	return text, nil
}

// buildRequest puts the image block ahead of the prompt text.
func buildRequest(modelName string, image model.Image, prompt string, maxTokens int, temperature *float64) (messageRequest, error) {
	data, mimeType, err := image.Bytes()
	if err != nil || len(data) == 0 {
		return messageRequest{}, utils.WrapIfNotNil(model.ErrMissingImage)
	}

	return messageRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []message{
			{
				Role: "user",
				Content: []contentBlock{
					{
						Type: "image",
						Source: &imageSource{
							Type:      "base64",
							MediaType: mimeType,
							Data:      base64.StdEncoding.EncodeToString(data),
						},
					},
					{Type: "text", Text: prompt},
				},
			},
		},
	}, nil
}
