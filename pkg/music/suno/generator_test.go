package suno

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/stretchr/testify/suite"
)

type GeneratorSuite struct {
	suite.Suite
}

func TestGeneratorSuite(t *testing.T) {
	suite.Run(t, new(GeneratorSuite))
}

func (s *GeneratorSuite) fastConfig() Config {
	return Config{Enabled: true, PollInterval: time.Millisecond, MaxAttempts: 3}
}

func (s *GeneratorSuite) TestDisabledShortCircuitsWithoutNetwork() {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	generator := New(Config{}, model.WithURL(server.URL), model.WithAuthToken("k"))
	result, err := generator.Generate(context.Background(), model.MusicRequest{Prompt: "calm"})
	s.Require().NoError(err)
	s.Equal(model.MusicStatusCompleted, result.Status)
	s.Empty(result.AudioURI)
	s.Equal(DisabledTaskID, result.ID)
	s.Zero(hits.Load())
}

func (s *GeneratorSuite) TestGenerateAndPollUntilCompleted() {
	var polls atomic.Int32
	var submitted generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/generate":
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &submitted)
			_, _ = io.WriteString(w, `{"code":200,"msg":"success","data":{"taskId":"task-7"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/generate/task-7":
			if polls.Add(1) < 2 {
				_, _ = io.WriteString(w, `{"id":"task-7","status":"processing"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"task-7","status":"completed","url":"https://cdn.example.com/t7.mp3","duration":92.5}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	generator := New(s.fastConfig(), model.WithURL(server.URL), model.WithAuthToken("k"))
	result, err := generator.Generate(context.Background(), model.MusicRequest{Prompt: "serene", Instrumental: true})
	s.Require().NoError(err)
	s.Equal("task-7", result.ID)
	s.Equal("https://cdn.example.com/t7.mp3", result.AudioURI)
	s.InDelta(92.5, result.Duration, 0.001)

	s.Equal("V4_5", submitted.Model)
	s.Equal("Classical", submitted.Style)
	s.Equal("Heavy Metal, Upbeat Drums, Rock", submitted.NegativeTags)
	s.InDelta(0.65, submitted.AudioWeight, 0.0001)
	s.False(submitted.CustomMode)
	s.True(submitted.Instrumental)
}

func (s *GeneratorSuite) TestFailedStatusIsTerminal() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"code":200,"data":{"taskId":"t"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"failed"}`)
	}))
	defer server.Close()

	_, err := New(s.fastConfig(), model.WithURL(server.URL), model.WithAuthToken("k")).
		Generate(context.Background(), model.MusicRequest{Prompt: "x"})
	s.ErrorIs(err, ErrGenerationFailed)
}

func (s *GeneratorSuite) TestTimeoutAfterMaxAttempts() {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"code":200,"data":{"taskId":"t"}}`)
			return
		}
		polls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(s.fastConfig(), model.WithURL(server.URL), model.WithAuthToken("k")).
		Generate(context.Background(), model.MusicRequest{Prompt: "x"})
	s.ErrorIs(err, ErrGenerationTimeout)
	s.EqualValues(3, polls.Load())
}

func (s *GeneratorSuite) TestAPICodeErrorIsProviderError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"code":429,"msg":"rate limited"}`)
	}))
	defer server.Close()

	_, err := New(s.fastConfig(), model.WithURL(server.URL), model.WithAuthToken("k")).
		Generate(context.Background(), model.MusicRequest{Prompt: "x"})
	s.Require().Error(err)
	s.Contains(err.Error(), "suno API error (429): rate limited")
}

func (s *GeneratorSuite) TestMissingCredential() {
	s.T().Setenv(envAPIKey, "")
	_, err := New(s.fastConfig()).Generate(context.Background(), model.MusicRequest{Prompt: "x"})
	s.True(model.IsMissingCredential(err))
}

func (s *GeneratorSuite) TestCreateMusicPrompt() {
	s.Equal(
		"Create an ambient instrumental piece that evokes serene, joyful feelings, inspired by Water Lilies. The music should be contemplative and immersive.",
		CreateMusicPrompt("Water Lilies", []string{"serene", "joyful"}, ""),
	)
	s.Contains(CreateMusicPrompt("X", []string{"calm"}, "baroque"), "Create an baroque instrumental piece")
}
