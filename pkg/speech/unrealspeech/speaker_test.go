package unrealspeech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/artbeyondsight/sight/pkg/audio"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/stretchr/testify/suite"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeHandle struct {
	name    string
	log     *eventLog
	mu      sync.Mutex
	playing bool
}

func (h *fakeHandle) Stop(context.Context) error {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
	h.log.add("stop:" + h.name)
	return nil
}

func (h *fakeHandle) Release(context.Context) error {
	h.log.add("release:" + h.name)
	return nil
}

func (h *fakeHandle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

type fakePlayer struct {
	log     *eventLog
	handles []*fakeHandle
	err     error
}

func (p *fakePlayer) Play(_ context.Context, uri string) (audio.Handle, error) {
	if p.err != nil {
		return nil, p.err
	}
	handle := &fakeHandle{name: uri, log: p.log, playing: true}
	p.handles = append(p.handles, handle)
	p.log.add("play:" + uri)
	return handle, nil
}

type SpeakerSuite struct {
	suite.Suite
	log      *eventLog
	player   *fakePlayer
	requests []speechRequest
	server   *httptest.Server
}

func TestSpeakerSuite(t *testing.T) {
	suite.Run(t, new(SpeakerSuite))
}

func (s *SpeakerSuite) SetupTest() {
	s.log = &eventLog{}
	s.player = &fakePlayer{log: s.log}
	s.requests = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/speech", r.URL.Path)
		s.Equal("Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		request := speechRequest{}
		s.Require().NoError(json.Unmarshal(body, &request))
		s.requests = append(s.requests, request)

		uri := fmt.Sprintf("https://cdn.example.com/%d.mp3", len(s.requests))
		s.log.add("request:" + uri)
		_, _ = io.WriteString(w, `{"OutputUri":"`+uri+`"}`)
	}))
}

func (s *SpeakerSuite) TearDownTest() {
	s.server.Close()
}

func (s *SpeakerSuite) newSpeaker() *Speaker {
	return New(s.player, DefaultTuning(), model.WithURL(s.server.URL), model.WithAuthToken("test-key"))
}

func (s *SpeakerSuite) TestSpeakSendsDefaultVoiceParameters() {
	speaker := s.newSpeaker()
	s.Require().NoError(speaker.Speak(context.Background(), "The Starry Night", model.SpeechOptions{}))

	s.Require().Len(s.requests, 1)
	s.Equal(speechRequest{
		Text:          "The Starry Night",
		VoiceID:       "Scarlett",
		Bitrate:       "192k",
		Speed:         0,
		Pitch:         1.0,
		TimestampType: "sentence",
	}, s.requests[0])
	s.True(speaker.IsPlaying(context.Background()))
}

func (s *SpeakerSuite) TestSecondSpeakReleasesFirstHandleBeforeRequest() {
	speaker := s.newSpeaker()
	ctx := context.Background()

	s.Require().NoError(speaker.Speak(ctx, "first", model.SpeechOptions{}))
	s.Require().NoError(speaker.Speak(ctx, "second", model.SpeechOptions{}))

	first := "https://cdn.example.com/1.mp3"
	second := "https://cdn.example.com/2.mp3"
	s.Equal([]string{
		"request:" + first,
		"play:" + first,
		"stop:" + first,
		"release:" + first,
		"request:" + second,
		"play:" + second,
	}, s.log.snapshot())

	playing := 0
	for _, handle := range s.player.handles {
		if handle.IsPlaying() {
			playing++
		}
	}
	s.Equal(1, playing)
}

func (s *SpeakerSuite) TestMissingCredential() {
	s.T().Setenv(envAPIKey, "")
	speaker := New(s.player, DefaultTuning(), model.WithURL(s.server.URL))

	s.False(speaker.Configured())
	err := speaker.Speak(context.Background(), "hello", model.SpeechOptions{})
	s.True(model.IsMissingCredential(err))
	s.Empty(s.requests)
}

func (s *SpeakerSuite) TestNonSuccessSurfacesBody() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = io.WriteString(w, "quota exceeded")
	}))
	defer server.Close()

	speaker := New(s.player, DefaultTuning(), model.WithURL(server.URL), model.WithAuthToken("k"))
	err := speaker.Speak(context.Background(), "hello", model.SpeechOptions{})

	var providerErr *model.ProviderError
	s.Require().True(errors.As(err, &providerErr))
	s.Equal(http.StatusPaymentRequired, providerErr.StatusCode)
	s.Equal("quota exceeded", providerErr.Body)
	s.Contains(err.Error(), "unrealspeech API error (402): quota exceeded")
}

func (s *SpeakerSuite) TestMissingOutputURIIsMalformed() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	speaker := New(s.player, DefaultTuning(), model.WithURL(server.URL), model.WithAuthToken("k"))
	err := speaker.Speak(context.Background(), "hello", model.SpeechOptions{})
	s.ErrorIs(err, model.ErrMalformedResponse)
}

func (s *SpeakerSuite) TestStopReleasesCurrentHandle() {
	speaker := s.newSpeaker()
	ctx := context.Background()
	s.Require().NoError(speaker.Speak(ctx, "hello", model.SpeechOptions{}))

	s.Require().NoError(speaker.Stop(ctx))
	s.False(speaker.IsPlaying(ctx))
	s.NoError(speaker.Stop(ctx))
	s.Contains(s.log.snapshot(), "release:https://cdn.example.com/1.mp3")
}

func (s *SpeakerSuite) TestTuningIsSentWithEveryRequest() {
	speaker := New(s.player, Tuning{Bitrate: "320k", Speed: -0.2, Pitch: 0.9}, model.WithURL(s.server.URL), model.WithAuthToken("test-key"))
	s.Require().NoError(speaker.Speak(context.Background(), "hello", model.SpeechOptions{Voice: "Dan"}))

	s.Require().Len(s.requests, 1)
	s.Equal("320k", s.requests[0].Bitrate)
	s.InDelta(-0.2, s.requests[0].Speed, 0.0001)
	s.InDelta(0.9, s.requests[0].Pitch, 0.0001)
	s.Equal("Dan", s.requests[0].VoiceID)
}

func (s *SpeakerSuite) TestEmptyTuningFallsBackToDefaults() {
	s.Equal(DefaultTuning(), Tuning{}.withDefaults())
}

func (s *SpeakerSuite) TestStopDuringSynthesisDropsTheAudio() {
	requested := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		blocked := false
		first.Do(func() { blocked = true })
		if blocked {
			close(requested)
			<-release
		}
		_, _ = io.WriteString(w, `{"OutputUri":"https://cdn.example.com/a.mp3"}`)
	}))
	defer server.Close()

	speaker := New(s.player, DefaultTuning(), model.WithURL(server.URL), model.WithAuthToken("k"))
	ctx := context.Background()
	speakErr := make(chan error, 1)
	go func() {
		speakErr <- speaker.Speak(ctx, "hello", model.SpeechOptions{})
	}()

	<-requested
	s.Require().NoError(speaker.Stop(ctx))
	close(release)

	s.Require().NoError(<-speakErr)
	s.False(speaker.IsPlaying(ctx))
	s.Empty(s.log.snapshot())

	s.Require().NoError(speaker.Speak(ctx, "again", model.SpeechOptions{}))
	s.True(speaker.IsPlaying(ctx))
}
