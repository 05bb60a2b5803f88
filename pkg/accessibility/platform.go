package accessibility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
)

const (
	OSiOS     = "ios"
	OSAndroid = "android"
)

type HapticStyle string

const (
	HapticLight  HapticStyle = "light"
	HapticMedium HapticStyle = "medium"
	HapticHeavy  HapticStyle = "heavy"
)

var ErrHapticsUnsupported = errors.New("haptics are not supported on this platform")

// ParseHapticStyle maps a name to a style. Unknown names give medium.
func ParseHapticStyle(value string) HapticStyle {
	switch HapticStyle(strings.ToLower(strings.TrimSpace(value))) {
	case HapticLight:
		return HapticLight
	case HapticHeavy:
		return HapticHeavy
	default:
		return HapticMedium
	}
}

// ScreenReader reports whether VoiceOver/TalkBack (or a desktop equivalent)
// is running. Subscribe delivers later state changes until unsubscribed.
type ScreenReader interface {
	IsEnabled(ctx context.Context) (bool, error)
	Subscribe(onChange func(enabled bool)) (unsubscribe func(), err error)
}

type Announcer interface {
	Announce(ctx context.Context, text string) error
}

type Haptics interface {
	Impact(ctx context.Context, style HapticStyle) error
}

// AudioMode is the audio routing applied before speaking.
type AudioMode struct {
	PlaysInSilentMode bool
	DuckOthers        bool
}

type AudioSession interface {
	SetAudioMode(ctx context.Context, mode AudioMode) error
}

// Platform bundles the native capabilities the service drives.
type Platform struct {
	OS           string
	ScreenReader ScreenReader
	Announcer    Announcer
	Haptics      Haptics
	AudioSession AudioSession
}

// DesktopPlatform is used by the CLI: the screen reader state is fixed,
// announcements are written as lines to out and haptics are unsupported.
func DesktopPlatform(screenReaderEnabled bool, out io.Writer) Platform {
	return Platform{
		OS:           runtime.GOOS,
		ScreenReader: NewStaticScreenReader(screenReaderEnabled),
		Announcer:    WriterAnnouncer{Out: out},
		Haptics:      noHaptics{},
		AudioSession: noAudioSession{},
	}
}

// StaticScreenReader holds a screen reader state that changes only through
// SetEnabled, which notifies subscribers.
type StaticScreenReader struct {
	mu          sync.Mutex
	enabled     bool
	nextID      int
	subscribers map[int]func(bool)
}

func NewStaticScreenReader(enabled bool) *StaticScreenReader {
	return &StaticScreenReader{enabled: enabled, subscribers: make(map[int]func(bool))}
}

func (r *StaticScreenReader) IsEnabled(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled, nil
}

func (r *StaticScreenReader) Subscribe(onChange func(bool)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.subscribers[id] = onChange
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers, id)
	}, nil
}

func (r *StaticScreenReader) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	callbacks := make([]func(bool), 0, len(r.subscribers))
	for _, callback := range r.subscribers {
		callbacks = append(callbacks, callback)
	}
	r.mu.Unlock()

	for _, callback := range callbacks {
		callback(enabled)
	}
}

type WriterAnnouncer struct {
	Out io.Writer
}

func (a WriterAnnouncer) Announce(_ context.Context, text string) error {
	if a.Out == nil {
		return nil
	}
	_, err := fmt.Fprintln(a.Out, text)
	return err
}

type noHaptics struct{}

func (noHaptics) Impact(context.Context, HapticStyle) error {
	return ErrHapticsUnsupported
}

type noAudioSession struct{}

func (noAudioSession) SetAudioMode(context.Context, AudioMode) error {
	return nil
}
