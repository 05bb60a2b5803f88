package unrealspeech

import (
	"context"
	"strings"
	"sync"

	"github.com/artbeyondsight/sight/pkg/audio"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

// Tuning holds the voice parameters sent with every synthesis request.
// Speed ranges -1..1 and Pitch 0.5..1.5 on the service side.
type Tuning struct {
	Bitrate string
	Speed   float64
	Pitch   float64
}

func DefaultTuning() Tuning {
	return Tuning{Bitrate: defaultBitrate, Speed: defaultSpeed, Pitch: defaultPitch}
}

func (t Tuning) withDefaults() Tuning {
	if strings.TrimSpace(t.Bitrate) == "" {
		t.Bitrate = defaultBitrate
	}
	if t.Pitch <= 0 {
		t.Pitch = defaultPitch
	}
	return t
}

// Speaker is the remote premium SpeechProvider. At most one audio handle is
// alive at a time: a new Speak stops and releases the previous handle before
// the synthesis request is issued.
type Speaker struct {
	cfg    model.ProviderConfig
	tuning Tuning
	player audio.Player

	speakMu sync.Mutex

	mu         sync.Mutex
	current    audio.Handle
	generation uint64
}

func New(player audio.Player, tuning Tuning, opts ...model.ProviderOption) *Speaker {
	if player == nil {
		player = audio.NewPlayer()
	}
	return &Speaker{cfg: model.ResolveProviderOpts(opts...), tuning: tuning.withDefaults(), player: player}
}

// Configured reports whether a credential is available.
func (s *Speaker) Configured() bool {
	return resolveAPIKey(s.cfg) != ""
}

func (s *Speaker) Speak(ctx context.Context, text string, opts model.SpeechOptions) error {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()

	log := logging.NewLogger(ctx)
	if err := s.releaseCurrent(ctx); err != nil {
		log.Warnf("release previous audio failed: %v", err)
	}
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	client, err := newAPIClient(s.cfg)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}

	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = defaultVoiceID
	}
	log.Infof("speech_request provider=%q voice=%q chars=%d", providerName, voice, len(text))

	outputURI, err := client.synthesize(ctx, speechRequest{
		Text:          text,
		VoiceID:       voice,
		Bitrate:       s.tuning.Bitrate,
		Speed:         s.tuning.Speed,
		Pitch:         s.tuning.Pitch,
		TimestampType: timestampType,
	})
	if err != nil {
		log.Errorf("error: %v", err)
		return utils.WrapIfNotNil(err)
	}

	if s.stale(generation) {
		log.Infof("speech_dropped reason=%q", "stopped during synthesis")
		return nil
	}

	handle, err := s.player.Play(ctx, outputURI)
	if err != nil {
		log.Errorf("error: %v", err)
		return utils.WrapIfNotNil(err)
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		_ = handle.Stop(ctx)
		return utils.WrapIfNotNil(handle.Release(ctx))
	}
	s.current = handle
	s.mu.Unlock()
	return nil
}

// Stop releases the playing handle and invalidates any Speak still waiting
// on synthesis, so its audio is never played.
func (s *Speaker) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
	return s.releaseCurrent(ctx)
}

func (s *Speaker) stale(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation != generation
}

func (s *Speaker) IsPlaying(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.IsPlaying()
}

func (s *Speaker) releaseCurrent(ctx context.Context) error {
	s.mu.Lock()
	handle := s.current
	s.current = nil
	s.mu.Unlock()
	if handle == nil {
		return nil
	}

	stopErr := handle.Stop(ctx)
	releaseErr := handle.Release(ctx)
	if stopErr != nil {
		return utils.WrapIfNotNil(stopErr)
	}
	return utils.WrapIfNotNil(releaseErr)
}

var _ model.SpeechProvider = (*Speaker)(nil)
