package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

const (
	providerName       = "suno"
	defaultBaseURL     = "https://api.sunoapi.org"
	defaultModel       = "V4_5"
	defaultAudioWeight = 0.65
	defaultHTTPTimeout = 30 * time.Second

	envAPIKey  = "SUNO_API_KEY"
	envBaseURL = "SUNO_BASE_URL"
)

type generateRequest struct {
	Prompt       string  `json:"prompt"`
	CustomMode   bool    `json:"customMode"`
	Instrumental bool    `json:"instrumental"`
	Style        string  `json:"style,omitempty"`
	NegativeTags string  `json:"negativeTags,omitempty"`
	Model        string  `json:"model"`
	AudioWeight  float64 `json:"audioWeight"`
	CallBackURL  string  `json:"callBackUrl,omitempty"`
}

type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type taskResponse struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	AudioURL string  `json:"audio_url"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

type apiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func newAPIClient(cfg model.ProviderConfig) (*apiClient, error) {
	apiKey := strings.TrimSpace(cfg.AuthToken)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(envAPIKey))
	}
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

func (c *apiClient) submit(ctx context.Context, request generateRequest) (string, error) {
	response := generateResponse{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/generate", request, &response); err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	if response.Code != http.StatusOK {
		return "", utils.WrapIfNotNil(model.NewProviderError(providerName, response.Code, response.Msg))
	}
	taskID := strings.TrimSpace(response.Data.TaskID)
	if taskID == "" {
		return "", utils.WrapIfNotNil(fmt.Errorf("%w: no taskId returned", model.ErrMalformedResponse))
	}
	return taskID, nil
}

func (c *apiClient) task(ctx context.Context, taskID string) (taskResponse, error) {
	response := taskResponse{}
	err := c.do(ctx, http.MethodGet, "/generate/"+url.PathEscape(taskID), nil, &response)
	return response, utils.WrapIfNotNil(err)
}

func (c *apiClient) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		requestBits, err := json.Marshal(body)
		if err != nil {
			return utils.WrapIfNotNil(err)
		}
		reader = bytes.NewReader(requestBits)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	if body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return utils.WrapIfNotNil(model.NewProviderError(providerName, httpResponse.StatusCode, string(responseBits)))
	}
	if err := json.Unmarshal(responseBits, out); err != nil {
		return utils.WrapIfNotNil(fmt.Errorf("%w: %v", model.ErrMalformedResponse, err))
	}
	return nil
}
