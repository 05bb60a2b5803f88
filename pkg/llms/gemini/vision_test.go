package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/stretchr/testify/suite"
	"google.golang.org/genai"
)

type VisionAnalyzerSuite struct {
	suite.Suite
}

func TestVisionAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(VisionAnalyzerSuite))
}

func (s *VisionAnalyzerSuite) TestMissingCredential() {
	s.T().Setenv(envAPIKey, "")
	analyzer, err := NewVisionAnalyzer()
	s.Nil(analyzer)
	s.True(model.IsMissingCredential(err))
}

func (s *VisionAnalyzerSuite) TestResolveGenerationModelName() {
	s.Equal(defaultGenerationModelName, resolveGenerationModelName(model.ProviderConfig{}))
	s.Equal("gemini-2.5-pro", resolveGenerationModelName(model.ResolveProviderOpts(model.WithModel(" gemini-2.5-pro "))))
}

func (s *VisionAnalyzerSuite) TestBuildGenerateContentConfig() {
	cfg := buildGenerateContentConfig(model.ResolveProviderOpts(model.WithTemperature(0.3)), 1000)
	s.Equal(int32(1000), cfg.MaxOutputTokens)
	s.Require().NotNil(cfg.Temperature)
	s.InDelta(0.3, *cfg.Temperature, 0.0001)
}

func (s *VisionAnalyzerSuite) TestApplyGenerateMetadata() {
	meta := initMetadata("gemini-2.5-flash")
	applyGenerateMetadata(meta, &genai.GenerateContentResponse{
		ResponseID: "resp-1",
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 8,
			TotalTokenCount:      20,
		},
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
	})
	s.Equal("resp-1", meta[model.MetadataKeyResponseID])
	s.Equal("20", meta[model.MetadataKeyTotalTokens])
	s.Equal("STOP", meta[model.MetadataKeyResponseStatus])
}

func (s *VisionAnalyzerSuite) TestAnalyzeImageAgainstStubServer() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.True(strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"title\":\"Eiffel Tower\",\"artist\":\"Gustave Eiffel\",\"type\":\"Tower\",\"description\":\"Iron lattice.\",\"emotions\":[\"majestic\"]}"}]},"finishReason":"STOP"}]}`)
	}))
	defer server.Close()

	analyzer, err := NewVisionAnalyzer(model.WithAuthToken("k"), model.WithURL(server.URL))
	s.Require().NoError(err)

	image := model.Image{URI: "file:///tmp/e.jpg", MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
	result, meta, err := analyzer.AnalyzeImage(context.Background(), image, model.ModeMonuments)
	s.Require().NoError(err)
	s.Equal("Eiffel Tower", result.Title)
	s.Equal("Gustave Eiffel", result.Artist)
	s.Equal("gemini", meta[model.MetadataKeyProvider])
}

func (s *VisionAnalyzerSuite) TestAnalyzeImageWithoutBytes() {
	analyzer, err := NewVisionAnalyzer(model.WithAuthToken("k"))
	s.Require().NoError(err)

	_, _, err = analyzer.AnalyzeImage(context.Background(), model.Image{}, model.ModeMuseum)
	s.ErrorIs(err, model.ErrMissingImage)
}
