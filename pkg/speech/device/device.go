package device

import (
	"context"
	"errors"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/artbeyondsight/sight/pkg/audio"
	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

const (
	baseWordsPerMinute = 175
	minWordsPerMinute  = 80
	maxWordsPerMinute  = 450
	basePitch          = 50
)

var ErrNoEngine = errors.New("no speech engine available")

type Option func(*Speaker)

func WithLauncher(launcher audio.Launcher) Option {
	return func(s *Speaker) {
		if launcher != nil {
			s.launcher = launcher
		}
	}
}

// WithEngine pins the synthesizer binary ("espeak-ng", "espeak" or "say").
func WithEngine(name string) Option {
	return func(s *Speaker) {
		s.engine = strings.TrimSpace(name)
	}
}

// Speaker is the on-device SpeechProvider. It drives the platform synthesizer
// as a child process; a new utterance interrupts the previous one.
type Speaker struct {
	launcher audio.Launcher
	engine   string

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	proc audio.Process
	done chan struct{}
}

func New(opts ...Option) *Speaker {
	s := &Speaker{launcher: audio.ExecLauncher{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Speaker) Speak(ctx context.Context, text string, opts model.SpeechOptions) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	engine, err := s.resolveEngine()
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	if err := s.Stop(ctx); err != nil {
		return utils.WrapIfNotNil(err)
	}

	args := buildArgs(engine, text, opts)
	proc, err := s.launcher.Start(context.WithoutCancel(ctx), engine, args...)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	logging.NewLogger(ctx).Debugf("device_speak engine=%q chars=%d", engine, len(text))

	u := &utterance{proc: proc, done: make(chan struct{})}
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()

	go func() {
		_ = proc.Wait()
		close(u.done)
		s.mu.Lock()
		if s.current == u {
			s.current = nil
		}
		s.mu.Unlock()
	}()
	return nil
}

// Stop interrupts the current utterance. Stopping while idle is a no-op.
func (s *Speaker) Stop(ctx context.Context) error {
	s.mu.Lock()
	u := s.current
	s.current = nil
	s.mu.Unlock()
	if u == nil {
		return nil
	}

	if err := u.proc.Kill(); err != nil {
		return utils.WrapIfNotNil(err)
	}
	select {
	case <-u.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Speaker) IsPlaying(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *Speaker) resolveEngine() (string, error) {
	if s.engine != "" {
		return s.engine, nil
	}
	candidates := []string{"espeak-ng", "espeak"}
	if runtime.GOOS == "darwin" {
		candidates = []string{"say"}
	}
	for _, name := range candidates {
		if _, err := s.launcher.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", ErrNoEngine
}

func buildArgs(engine string, text string, opts model.SpeechOptions) []string {
	rate := 1.0
	if opts.Rate != nil && *opts.Rate > 0 {
		rate = *opts.Rate
	}
	wpm := int(math.Round(baseWordsPerMinute * rate))
	wpm = min(max(wpm, minWordsPerMinute), maxWordsPerMinute)

	if engine == "say" {
		args := []string{"-r", strconv.Itoa(wpm)}
		if voice := strings.TrimSpace(opts.Voice); voice != "" {
			args = append(args, "-v", voice)
		}
		return append(args, text)
	}

	pitch := 1.0
	if opts.Pitch != nil && *opts.Pitch > 0 {
		pitch = *opts.Pitch
	}
	espeakPitch := int(math.Round(basePitch * pitch))
	espeakPitch = min(max(espeakPitch, 0), 99)

	args := []string{"-s", strconv.Itoa(wpm), "-p", strconv.Itoa(espeakPitch)}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = strings.ToLower(strings.TrimSpace(opts.Language))
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	return append(args, "--", text)
}

var _ model.SpeechProvider = (*Speaker)(nil)
