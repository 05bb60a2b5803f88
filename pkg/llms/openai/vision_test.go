package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/stretchr/testify/suite"
)

type VisionAnalyzerSuite struct {
	suite.Suite
	image model.Image
}

func TestVisionAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(VisionAnalyzerSuite))
}

func (s *VisionAnalyzerSuite) SetupTest() {
	s.image = model.Image{URI: "file:///tmp/a.jpg", DataURL: model.EncodeDataURL("image/jpeg", []byte{1, 2, 3})}
}

func completionBody(content string) string {
	payload := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "mistral-small-3.1",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func (s *VisionAnalyzerSuite) TestMissingCredential() {
	s.T().Setenv(envAPIKey, "")
	s.T().Setenv(envFallbackAPIKey, "")

	_, err := NewVisionAnalyzer()
	s.True(model.IsMissingCredential(err))
}

func (s *VisionAnalyzerSuite) TestAnalyzeImageSendsImageAndParsesJSON() {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/chat/completions", r.URL.Path)
		s.Equal("Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		s.Require().NoError(json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("Here you go: {\"title\":\"Water Lilies\",\"artist\":\"Claude Monet\",\"type\":\"Painting\",\"description\":\"Pond.\",\"emotions\":[\"serene\"]}"))
	}))
	defer server.Close()

	analyzer, err := NewVisionAnalyzer(model.WithURL(server.URL), model.WithAuthToken("test-key"))
	s.Require().NoError(err)

	result, meta, err := analyzer.AnalyzeImage(context.Background(), s.image, model.ModeMuseum)
	s.Require().NoError(err)
	s.Equal("Water Lilies", result.Title)
	s.Equal("Claude Monet", result.Artist)
	s.Equal([]string{"serene"}, result.Emotions)
	s.Equal("navigator", meta[model.MetadataKeyProvider])
	s.Equal("15", meta[model.MetadataKeyTotalTokens])
	s.Empty(meta[model.MetadataKeyParseFallback])

	s.Equal("mistral-small-3.1", captured["model"])
	s.EqualValues(1000, captured["max_tokens"])
	messages := captured["messages"].([]any)
	parts := messages[0].(map[string]any)["content"].([]any)
	s.Len(parts, 2)
	s.Equal("image_url", parts[1].(map[string]any)["type"])
}

func (s *VisionAnalyzerSuite) TestAnalyzeImageRawTextFallback() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("A quiet lake at dawn."))
	}))
	defer server.Close()

	analyzer, err := NewVisionAnalyzer(model.WithURL(server.URL), model.WithAuthToken("k"))
	s.Require().NoError(err)

	result, meta, err := analyzer.AnalyzeImage(context.Background(), s.image, model.ModeLandscape)
	s.Require().NoError(err)
	s.Equal("Analyzed Artwork", result.Title)
	s.Equal("Landscape", result.Type)
	s.Equal("true", meta[model.MetadataKeyParseFallback])
}

func (s *VisionAnalyzerSuite) TestAnalyzeImageHTTPErrorIsProviderError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"image too large","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	analyzer, err := NewVisionAnalyzer(model.WithURL(server.URL), model.WithAuthToken("k"))
	s.Require().NoError(err)

	_, _, err = analyzer.AnalyzeImage(context.Background(), s.image, model.ModeMuseum)
	var providerErr *model.ProviderError
	s.Require().True(errors.As(err, &providerErr))
	s.Equal(http.StatusBadRequest, providerErr.StatusCode)
	s.Contains(providerErr.Body, "image too large")
}

func (s *VisionAnalyzerSuite) TestQuickMetadataUsesSmallBudget() {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody(`{"title":"David","artist":"Michelangelo","year":"1504"}`))
	}))
	defer server.Close()

	analyzer, err := NewVisionAnalyzer(model.WithURL(server.URL), model.WithAuthToken("k"))
	s.Require().NoError(err)

	meta, _, err := analyzer.QuickMetadata(context.Background(), s.image)
	s.Require().NoError(err)
	s.Equal("David", meta.Title)
	s.EqualValues(100, captured["max_tokens"])
}
