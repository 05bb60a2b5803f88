package openai

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/model"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	providerName       = "navigator"
	defaultBaseURL     = "https://api.ai.it.ufl.edu/v1"
	defaultModelName   = "mistral-small-3.1"
	defaultHTTPTimeout = 90 * time.Second
	defaultMaxRetries  = 1

	envAPIKey         = "NAVIGATOR_API_KEY"
	envFallbackAPIKey = "OPENAI_API_KEY"
	envBaseURL        = "NAVIGATOR_BASE_URL"
)

type client struct {
	apiClient openai.Client
	modelName string
}

// newClient builds a chat-completions client against any OpenAI-compatible
// endpoint. The credential is required up front so callers can route to
// fallback content without a network round trip.
func newClient(cfg model.ProviderConfig) (*client, error) {
	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(envAPIKey))
	}
	if token == "" {
		token = strings.TrimSpace(os.Getenv(envFallbackAPIKey))
	}
	if token == "" {
		return nil, model.MissingCredential(providerName, envAPIKey)
	}

	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv(envBaseURL))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	apiClient := openai.NewClient(
		option.WithBaseURL(strings.TrimRight(baseURL, "/")),
		option.WithAPIKey(token),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(defaultMaxRetries),
	)
	return &client{apiClient: apiClient, modelName: resolveModelName(cfg)}, nil
}

func resolveModelName(cfg model.ProviderConfig) string {
	if cfg.Model != nil {
		name := strings.TrimSpace(*cfg.Model)
		if name != "" {
			return name
		}
	}
	return defaultModelName
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

func applyCompletionMetadata(meta model.GenerationMetadata, completion *openai.ChatCompletion) {
	if meta == nil || completion == nil {
		return
	}
	if completion.ID != "" {
		meta[model.MetadataKeyResponseID] = completion.ID
	}
	meta[model.MetadataKeyInputTokens] = strconv.FormatInt(completion.Usage.PromptTokens, 10)
	meta[model.MetadataKeyOutputTokens] = strconv.FormatInt(completion.Usage.CompletionTokens, 10)
	meta[model.MetadataKeyTotalTokens] = strconv.FormatInt(completion.Usage.TotalTokens, 10)
	if len(completion.Choices) > 0 {
		meta[model.MetadataKeyResponseStatus] = string(completion.Choices[0].FinishReason)
	}
}

// asProviderError maps SDK status errors onto the shared provider error.
func asProviderError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return model.NewProviderError(providerName, apiErr.StatusCode, apiErr.Message)
	}
	return err
}
