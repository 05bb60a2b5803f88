// Package accessibility owns the screen reader state, speech defaults,
// persisted settings and haptic feedback of one application instance.
package accessibility

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

// Service is constructed once at startup and handed to every consumer that
// narrates. Initialize must run before use and Close at shutdown.
type Service struct {
	speaker  model.SpeechProvider
	store    Store
	platform Platform

	mu                  sync.RWMutex
	settings            Settings
	screenReaderEnabled bool
	unsubscribe         func()
}

func New(speaker model.SpeechProvider, store Store, platform Platform) *Service {
	return &Service{
		speaker:  speaker,
		store:    store,
		platform: platform,
		settings: DefaultSettings(),
	}
}

// Initialize loads persisted settings, reads the screen reader state and
// subscribes to its changes. It never fails: storage or platform errors are
// logged and defaults are kept.
func (s *Service) Initialize(ctx context.Context) {
	log := logging.NewLogger(ctx)

	settings := DefaultSettings()
	if stored, err := s.readStored(ctx); err != nil {
		log.Warnf("accessibility init: failed to load settings: %v", err)
	} else if stored != nil {
		settings = stored.apply(settings)
	}

	enabled := false
	if s.platform.ScreenReader != nil {
		var err error
		if enabled, err = s.platform.ScreenReader.IsEnabled(ctx); err != nil {
			log.Warnf("accessibility init: screen reader state unavailable: %v", err)
			enabled = false
		}
	}

	s.mu.Lock()
	s.settings = settings
	s.screenReaderEnabled = enabled
	s.applySyncLocked()
	s.mu.Unlock()

	if s.platform.ScreenReader == nil {
		return
	}
	unsubscribe, err := s.platform.ScreenReader.Subscribe(s.onScreenReaderChanged)
	if err != nil {
		log.Warnf("accessibility init: screen reader subscription failed: %v", err)
		return
	}
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	log.Debugf("accessibility_init screen_reader=%t tts=%t sync=%t", enabled, settings.TTSEnabled, settings.SyncWithVoiceOver)
}

func (s *Service) Close() error {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if s.speaker != nil {
		return utils.WrapIfNotNil(s.speaker.Stop(context.Background()))
	}
	return nil
}

func (s *Service) onScreenReaderChanged(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenReaderEnabled = enabled
	s.applySyncLocked()
}

// applySyncLocked forces the VoiceOver-parity defaults while sync is on and a
// screen reader runs. The forced values stay after the reader turns off.
func (s *Service) applySyncLocked() {
	if s.settings.SyncWithVoiceOver && s.screenReaderEnabled {
		defaults := VoiceOverDefaults()
		s.settings.Rate = defaults.Rate
		s.settings.Pitch = defaults.Pitch
	}
}

// Speak narrates text with the in-app synthesizer. It is a no-op when TTS is
// disabled. A failed utterance is retried once without options; a second
// failure is logged and dropped.
func (s *Service) Speak(ctx context.Context, text string, opts model.SpeechOptions) {
	log := logging.NewLogger(ctx)

	s.mu.RLock()
	settings := s.settings
	screenReader := s.screenReaderEnabled
	s.mu.RUnlock()

	if !settings.TTSEnabled || s.speaker == nil {
		return
	}

	s.configureAudio(ctx, screenReader)

	effective := opts
	if strings.TrimSpace(effective.Language) == "" {
		effective.Language = DefaultLanguage
	}
	if effective.Rate == nil {
		effective = effective.WithRate(settings.Rate)
	}
	if effective.Pitch == nil {
		effective = effective.WithPitch(settings.Pitch)
	}

	err := s.speaker.Stop(ctx)
	if err == nil {
		err = s.speaker.Speak(ctx, text, effective)
	}
	if err == nil {
		log.Debugf("tts_speak rate=%.2f pitch=%.2f language=%q", *effective.Rate, *effective.Pitch, effective.Language)
		return
	}

	log.Warnf("tts speak error: %v", err)
	_ = s.speaker.Stop(ctx)
	if retryErr := s.speaker.Speak(ctx, text, model.SpeechOptions{}); retryErr != nil {
		log.Warnf("tts retry failed: %v", retryErr)
	}
}

func (s *Service) configureAudio(ctx context.Context, screenReader bool) {
	if s.platform.AudioSession == nil {
		return
	}
	var mode *AudioMode
	switch {
	case s.platform.OS == OSiOS && screenReader:
		mode = &AudioMode{PlaysInSilentMode: true, DuckOthers: false}
	case s.platform.OS == OSAndroid:
		mode = &AudioMode{PlaysInSilentMode: true, DuckOthers: true}
	}
	if mode == nil {
		return
	}
	if err := s.platform.AudioSession.SetAudioMode(ctx, *mode); err != nil {
		logging.NewLogger(ctx).Warnf("tts: failed to set audio mode: %v", err)
	}
}

// Announce sends text to the native screen reader announcement channel.
func (s *Service) Announce(ctx context.Context, text string) {
	if s.platform.Announcer == nil {
		return
	}
	if err := s.platform.Announcer.Announce(ctx, text); err != nil {
		logging.NewLogger(ctx).Warnf("announce error: %v", err)
	}
}

// AnnounceOrSpeak is the entry point for all narration. Exactly one channel
// fires: the screen reader announcement when a reader is active, in-app TTS
// otherwise.
func (s *Service) AnnounceOrSpeak(ctx context.Context, text string, opts model.SpeechOptions) {
	s.mu.RLock()
	screenReader := s.screenReaderEnabled
	ttsEnabled := s.settings.TTSEnabled
	s.mu.RUnlock()

	switch {
	case screenReader:
		s.Announce(ctx, text)
	case ttsEnabled:
		s.Speak(ctx, text, opts)
	}
}

func (s *Service) HapticImpact(ctx context.Context, style HapticStyle) {
	if s.platform.Haptics == nil {
		return
	}
	if style == "" {
		style = HapticMedium
	}
	if err := s.platform.Haptics.Impact(ctx, style); err != nil && !errors.Is(err, ErrHapticsUnsupported) {
		logging.NewLogger(ctx).Warnf("haptic impact error: %v", err)
	}
}

// SaveSettings persists the tuple and then updates the in-memory state. When
// sync is on and a screen reader is active the VoiceOver-parity rate and
// pitch win over the values just saved.
func (s *Service) SaveSettings(ctx context.Context, settings Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	if s.store != nil {
		if err := s.store.Set(ctx, SettingsKey, payload); err != nil {
			logging.NewLogger(ctx).Errorf("error: %v", err)
			return utils.WrapIfNotNil(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.applySyncLocked()
	return nil
}

// LoadSettings returns the raw persisted settings, or nil when nothing is
// stored or the stored value cannot be read.
func (s *Service) LoadSettings(ctx context.Context) *StoredSettings {
	stored, err := s.readStored(ctx)
	if err != nil {
		logging.NewLogger(ctx).Warnf("load settings: %v", err)
		return nil
	}
	return stored
}

func (s *Service) readStored(ctx context.Context) (*StoredSettings, error) {
	if s.store == nil {
		return nil, nil
	}
	raw, ok, err := s.store.Get(ctx, SettingsKey)
	if err != nil || !ok {
		return nil, err
	}
	stored := &StoredSettings{}
	if err := json.Unmarshal(raw, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// SetDefaultSpeechSettings changes the in-memory rate and pitch without
// persisting them. Nil leaves a value unchanged.
func (s *Service) SetDefaultSpeechSettings(rate *float64, pitch *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate != nil {
		s.settings.Rate = *rate
	}
	if pitch != nil {
		s.settings.Pitch = *pitch
	}
}

func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Service) SpeechDefaults() SpeechDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SpeechDefaults{Rate: s.settings.Rate, Pitch: s.settings.Pitch}
}

func (s *Service) ScreenReaderEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screenReaderEnabled
}

func (s *Service) TTSEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.TTSEnabled
}

func (s *Service) SyncWithVoiceOver() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.SyncWithVoiceOver
}

// WaitForSpeech blocks until the current utterance ends or ctx is done.
func (s *Service) WaitForSpeech(ctx context.Context, poll time.Duration) {
	if s.speaker == nil {
		return
	}
	for s.speaker.IsPlaying(ctx) {
		if !utils.SleepWithContext(ctx, poll) {
			return
		}
	}
}
