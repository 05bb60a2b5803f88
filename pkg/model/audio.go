package model

import "context"

// SpeechOptions override the accessibility defaults for one utterance. Nil
// Rate/Pitch fall back to the current settings.
type SpeechOptions struct {
	Language string
	Voice    string
	Rate     *float64
	Pitch    *float64
}

func (o SpeechOptions) WithRate(rate float64) SpeechOptions {
	o.Rate = &rate
	return o
}

func (o SpeechOptions) WithPitch(pitch float64) SpeechOptions {
	o.Pitch = &pitch
	return o
}

// SpeechProvider is the narration contract shared by the on-device and remote
// backends so callers can swap them without branching.
type SpeechProvider interface {
	Speak(ctx context.Context, text string, opts SpeechOptions) error
	// Stop halts playback. Stopping while idle is not an error.
	Stop(ctx context.Context) error
	IsPlaying(ctx context.Context) bool
}

type MusicStatus string

const (
	MusicStatusPending    MusicStatus = "pending"
	MusicStatusProcessing MusicStatus = "processing"
	MusicStatusCompleted  MusicStatus = "completed"
	MusicStatusFailed     MusicStatus = "failed"
)

type MusicRequest struct {
	Prompt       string
	Style        string
	NegativeTags string
	Instrumental bool
}

type MusicResult struct {
	ID       string      `json:"id"`
	AudioURI string      `json:"audioUri"`
	Status   MusicStatus `json:"status"`
	Duration float64     `json:"duration,omitempty"`
}

// MusicProvider generates background music. Failures are always best effort
// for callers.
type MusicProvider interface {
	Generate(ctx context.Context, req MusicRequest) (MusicResult, error)
}
