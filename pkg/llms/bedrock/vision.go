package bedrock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/analysis"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type visionAnalyzer struct {
	cfg model.ProviderConfig
}

// NewVisionAnalyzer returns a VisionAnalyzer that calls the Bedrock Converse
// API with an inline image block.
func NewVisionAnalyzer(opts ...model.ProviderOption) (model.VisionAnalyzer, error) {
	return &visionAnalyzer{cfg: model.ResolveProviderOpts(opts...)}, nil
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
	if a.cfg.MaxTokens != nil {
		maxTokens = *a.cfg.MaxTokens
	}
	log.Infof("analysis_request mode=%q model=%q max_tokens=%d", mode, modelName, maxTokens)

	text, err := a.converse(ctx, modelName, image, prompt, maxTokens, meta)
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

	text, err := a.converse(ctx, modelName, image, analysis.QuickMetadataPrompt, analysis.QuickMetadataMaxTokens, meta)
	if err != nil {
		logging.NewLogger(ctx).Errorf("error: %v", err)
		return model.QuickMetadata{}, meta, utils.WrapIfNotNil(err)
	}
	return analysis.ParseQuickMetadata(text), meta, nil
}

func (a *visionAnalyzer) converse(
	ctx context.Context,
	modelName string,
	image model.Image,
	prompt string,
	maxTokens int,
	meta model.GenerationMetadata,
) (string, error) {
	message, err := buildImageMessage(image, prompt)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	client, err := newClient(ctx, a.cfg)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	output, err := client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(modelName),
		Messages:        []bedrocktypes.Message{message},
		InferenceConfig: buildInferenceConfig(a.cfg, maxTokens),
	})
	if err != nil {
		return "", utils.WrapIfNotNil(asProviderError(err))
	}
	applyConverseMetadata(meta, output)

	outputMessage, err := extractOutputMessage(output.Output)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	text := strings.TrimSpace(extractTextFromMessage(outputMessage))
	if text == "" {
		return "", utils.WrapIfNotNil(errors.New("bedrock response is empty"))
	}
	return text, nil
}

func buildImageMessage(image model.Image, prompt string) (bedrocktypes.Message, error) {
	data, mimeType, err := image.Bytes()
	if err != nil || len(data) == 0 {
		return bedrocktypes.Message{}, model.ErrMissingImage
	}
	format, err := imageFormat(mimeType)
	if err != nil {
		return bedrocktypes.Message{}, err
	}

	return bedrocktypes.Message{
		Role: bedrocktypes.ConversationRoleUser,
		Content: []bedrocktypes.ContentBlock{
			&bedrocktypes.ContentBlockMemberImage{
				Value: bedrocktypes.ImageBlock{
					Format: format,
					Source: &bedrocktypes.ImageSourceMemberBytes{Value: data},
				},
			},
			&bedrocktypes.ContentBlockMemberText{Value: prompt},
		},
	}, nil
}

func imageFormat(mimeType string) (bedrocktypes.ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg", "":
		return bedrocktypes.ImageFormatJpeg, nil
	case "image/png":
		return bedrocktypes.ImageFormatPng, nil
	case "image/gif":
		return bedrocktypes.ImageFormatGif, nil
	case "image/webp":
		return bedrocktypes.ImageFormatWebp, nil
	}
	return "", errors.New("unsupported image type for bedrock: " + mimeType)
}

func buildInferenceConfig(cfg model.ProviderConfig, maxTokens int) *bedrocktypes.InferenceConfiguration {
	inference := &bedrocktypes.InferenceConfiguration{}
	if maxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(maxTokens))
	}
	if cfg.Temperature != nil {
		inference.Temperature = aws.Float32(float32(*cfg.Temperature))
	}
	return inference
}

func extractOutputMessage(output bedrocktypes.ConverseOutput) (bedrocktypes.Message, error) {
	if output == nil {
		return bedrocktypes.Message{}, utils.WrapIfNotNil(errors.New("converse output is nil"))
	}

	messageOutput, ok := output.(*bedrocktypes.ConverseOutputMemberMessage)
	if !ok || messageOutput == nil {
		return bedrocktypes.Message{}, utils.WrapIfNotNil(errors.New("converse output is not a message"))
	}
	return messageOutput.Value, nil
}

func extractTextFromMessage(message bedrocktypes.Message) string {
	parts := make([]string, 0)
	for _, block := range message.Content {
		textBlock, ok := block.(*bedrocktypes.ContentBlockMemberText)
		if !ok || textBlock == nil {
			continue
		}
		value := strings.TrimSpace(textBlock.Value)
		if value == "" {
			continue
		}
		parts = append(parts, value)
	}
	return strings.Join(parts, "\n")
}
