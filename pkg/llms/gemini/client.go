package gemini

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
	"google.golang.org/genai"
)

const (
	providerName               = "gemini"
	defaultGenerationModelName = "gemini-2.5-flash"
	defaultHTTPTimeout         = 90 * time.Second
	envAPIKey                  = "GEMINI_KEY"
)

func resolveToken(cfg model.ProviderConfig) string {
	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(envAPIKey))
	}
	return token
}

func newAPIClient(ctx context.Context, cfg model.ProviderConfig) (*genai.Client, error) {
	token := resolveToken(cfg)
	if token == "" {
		return nil, model.MissingCredential(providerName, envAPIKey)
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	clientCfg := &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL := strings.TrimSpace(cfg.URL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{
			BaseURL: baseURL,
		}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return client, nil
}

func initMetadata(modelName string) model.GenerationMetadata {
	if strings.TrimSpace(modelName) == "" {
		modelName = "unknown"
	}

	return model.GenerationMetadata{
		model.MetadataKeyProvider: providerName,
		model.MetadataKeyModel:    modelName,
	}
}

func setLatencyMetadata(meta model.GenerationMetadata, start time.Time) {
	if meta == nil {
		return
	}
	meta[model.MetadataKeyLatencyMs] = strconv.FormatInt(time.Since(start).Milliseconds(), 10)
}

func resolveGenerationModelName(cfg model.ProviderConfig) string {
	if cfg.Model != nil {
		name := strings.TrimSpace(*cfg.Model)
		if name != "" {
			return name
		}
	}
	return defaultGenerationModelName
}

func applyGenerateMetadata(meta model.GenerationMetadata, response *genai.GenerateContentResponse) {
	if meta == nil || response == nil {
		return
	}

	if usage := response.UsageMetadata; usage != nil {
		meta[model.MetadataKeyInputTokens] = strconv.FormatInt(int64(usage.PromptTokenCount), 10)
		meta[model.MetadataKeyOutputTokens] = strconv.FormatInt(int64(usage.CandidatesTokenCount), 10)
		meta[model.MetadataKeyTotalTokens] = strconv.FormatInt(int64(usage.TotalTokenCount), 10)
	}
	if strings.TrimSpace(response.ResponseID) != "" {
		meta[model.MetadataKeyResponseID] = response.ResponseID
	}
	if len(response.Candidates) > 0 && response.Candidates[0] != nil {
		meta[model.MetadataKeyResponseStatus] = string(response.Candidates[0].FinishReason)
	}
}

func asProviderError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return model.NewProviderError(providerName, apiErr.Code, apiErr.Message)
	}
	return err
}
