package accessibility

const (
	// SettingsKey is the storage key holding the persisted settings JSON.
	SettingsKey     = "@app_accessibility_settings"
	DefaultLanguage = "en-US"

	defaultRate  = 0.6
	defaultPitch = 2.0
)

// Settings are the speech preferences read by every narration call.
type Settings struct {
	Rate              float64 `json:"rate"`
	Pitch             float64 `json:"pitch"`
	TTSEnabled        bool    `json:"ttsEnabled"`
	SyncWithVoiceOver bool    `json:"syncWithVoiceOver"`
}

// StoredSettings is the raw persisted tuple. Missing keys stay nil.
type StoredSettings struct {
	Rate              *float64 `json:"rate,omitempty"`
	Pitch             *float64 `json:"pitch,omitempty"`
	TTSEnabled        *bool    `json:"ttsEnabled,omitempty"`
	SyncWithVoiceOver *bool    `json:"syncWithVoiceOver,omitempty"`
}

// SpeechDefaults is the rate/pitch pair applied when a call has no override.
type SpeechDefaults struct {
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

func DefaultSettings() Settings {
	return Settings{Rate: defaultRate, Pitch: defaultPitch, TTSEnabled: true}
}

// VoiceOverDefaults returns the rate/pitch forced while sync is on and a
// screen reader is running.
func VoiceOverDefaults() SpeechDefaults {
	return SpeechDefaults{Rate: defaultRate, Pitch: defaultPitch}
}

func (s StoredSettings) apply(base Settings) Settings {
	if s.Rate != nil {
		base.Rate = *s.Rate
	}
	if s.Pitch != nil {
		base.Pitch = *s.Pitch
	}
	base.TTSEnabled = true
	if s.TTSEnabled != nil {
		base.TTSEnabled = *s.TTSEnabled
	}
	base.SyncWithVoiceOver = false
	if s.SyncWithVoiceOver != nil {
		base.SyncWithVoiceOver = *s.SyncWithVoiceOver
	}
	return base
}
