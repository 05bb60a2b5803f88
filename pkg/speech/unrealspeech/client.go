package unrealspeech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

const (
	providerName       = "unrealspeech"
	defaultBaseURL     = "https://api.v7.unrealspeech.com"
	defaultVoiceID     = "Scarlett"
	defaultBitrate     = "192k"
	defaultSpeed       = 0.0
	defaultPitch       = 1.0
	timestampType      = "sentence"
	defaultHTTPTimeout = 30 * time.Second

	envAPIKey  = "UNREAL_SPEECH_API_KEY"
	envBaseURL = "UNREAL_SPEECH_BASE_URL"
)

type speechRequest struct {
	Text          string  `json:"Text"`
	VoiceID       string  `json:"VoiceId"`
	Bitrate       string  `json:"Bitrate"`
	Speed         float64 `json:"Speed"`
	Pitch         float64 `json:"Pitch"`
	TimestampType string  `json:"TimestampType"`
}

type speechResponse struct {
	OutputURI string `json:"OutputUri"`
}

type apiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func resolveAPIKey(cfg model.ProviderConfig) string {
	apiKey := strings.TrimSpace(cfg.AuthToken)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(envAPIKey))
	}
	return apiKey
}

func newAPIClient(cfg model.ProviderConfig) (*apiClient, error) {
	apiKey := resolveAPIKey(cfg)
	if apiKey == "" {
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

	return &apiClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}, nil
}

// synthesize requests speech audio and returns the hosted output URI.
func (c *apiClient) synthesize(ctx context.Context, request speechRequest) (string, error) {
	requestBits, err := json.Marshal(request)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech", bytes.NewReader(requestBits))
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return "", utils.WrapIfNotNil(model.NewProviderError(providerName, httpResponse.StatusCode, string(responseBits)))
	}

	response := speechResponse{}
	if err := json.Unmarshal(responseBits, &response); err != nil {
		return "", utils.WrapIfNotNil(errors.Join(model.ErrMalformedResponse, err))
	}
	if strings.TrimSpace(response.OutputURI) == "" {
		return "", utils.WrapIfNotNil(errors.Join(model.ErrMalformedResponse, errors.New("no audio URI in response")))
	}
	return response.OutputURI, nil
}
