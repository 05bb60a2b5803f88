package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/analysis"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
	openai "github.com/openai/openai-go/v3"
)

type visionAnalyzer struct {
	client *client
	cfg    model.ProviderConfig
}

// NewVisionAnalyzer returns a VisionAnalyzer backed by an OpenAI-compatible
// multimodal chat-completions endpoint.
func NewVisionAnalyzer(opts ...model.ProviderOption) (model.VisionAnalyzer, error) {
	cfg := model.ResolveProviderOpts(opts...)
	c, err := newClient(cfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return &visionAnalyzer{client: c, cfg: cfg}, nil
}

func (a *visionAnalyzer) AnalyzeImage(ctx context.Context, image model.Image, mode model.Mode) (model.VisionAnalysis, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(a.client.modelName)
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
	log.Infof("analysis_request mode=%q model=%q max_tokens=%d", mode, a.client.modelName, maxTokens)

	content, err := a.complete(ctx, image, prompt, maxTokens, meta)
	if err != nil {
		log.Errorf("error: %v", err)
		return model.VisionAnalysis{}, meta, utils.WrapIfNotNil(err)
	}

	result, parsed := analysis.ParseVisionResponse(content, mode)
	if !parsed {
		meta[model.MetadataKeyParseFallback] = "true"
		log.Warnf("analysis_response had no parseable JSON, using raw text")
	}
	return result, meta, nil
}

func (a *visionAnalyzer) QuickMetadata(ctx context.Context, image model.Image) (model.QuickMetadata, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(a.client.modelName)
	defer setLatencyMetadata(meta, start)

	content, err := a.complete(ctx, image, analysis.QuickMetadataPrompt, analysis.QuickMetadataMaxTokens, meta)
	if err != nil {
		logging.NewLogger(ctx).Errorf("error: %v", err)
		return model.QuickMetadata{}, meta, utils.WrapIfNotNil(err)
	}
	return analysis.ParseQuickMetadata(content), meta, nil
}

func (a *visionAnalyzer) complete(
	ctx context.Context,
	image model.Image,
	prompt string,
	maxTokens int,
	meta model.GenerationMetadata,
) (string, error) {
	message, err := buildUserMessage(image, prompt)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(a.client.modelName),
		Messages:  []openai.ChatCompletionMessageParamUnion{message},
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if a.cfg.Temperature != nil {
		params.Temperature = openai.Float(*a.cfg.Temperature)
	}

	completion, err := a.client.apiClient.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", utils.WrapIfNotNil(asProviderError(err))
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", utils.WrapIfNotNil(errors.New("chat completion returned no choices"))
	}
	applyCompletionMetadata(meta, completion)

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func buildUserMessage(image model.Image, prompt string) (openai.ChatCompletionMessageParamUnion, error) {
	dataURL := strings.TrimSpace(image.DataURL)
	if dataURL == "" {
		if len(image.Data) == 0 {
			return openai.ChatCompletionMessageParamUnion{}, model.ErrMissingImage
		}
		dataURL = model.EncodeDataURL(image.MIMEType, image.Data)
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}),
	}
	return openai.UserMessage(parts), nil
}
