package audio

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/utils"
)

var ErrNoPlayer = errors.New("no audio player available")

// Handle is one loaded audio resource. Stop halts playback, Release frees it;
// both are safe to call more than once.
type Handle interface {
	Stop(ctx context.Context) error
	Release(ctx context.Context) error
	IsPlaying() bool
}

// Player loads and starts audio resources by URI.
type Player interface {
	Play(ctx context.Context, uri string) (Handle, error)
}

type PlayerOption func(*ProcessPlayer)

func WithLauncher(launcher Launcher) PlayerOption {
	return func(p *ProcessPlayer) {
		if launcher != nil {
			p.launcher = launcher
		}
	}
}

// WithCommand pins the player binary and its leading arguments.
func WithCommand(name string, args ...string) PlayerOption {
	return func(p *ProcessPlayer) {
		if strings.TrimSpace(name) != "" {
			p.command = append([]string{name}, args...)
		}
	}
}

// ProcessPlayer plays audio through an external media player process.
type ProcessPlayer struct {
	launcher Launcher
	command  []string
}

func NewPlayer(opts ...PlayerOption) *ProcessPlayer {
	p := &ProcessPlayer{launcher: ExecLauncher{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ProcessPlayer) Play(ctx context.Context, uri string) (Handle, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, utils.WrapIfNotNil(errors.New("audio uri is required"))
	}

	command, err := p.resolveCommand()
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	args := append(append([]string(nil), command[1:]...), uri)
	// Playback outlives the request context; Stop is the cancellation path.
	proc, err := p.launcher.Start(context.WithoutCancel(ctx), command[0], args...)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	logging.NewLogger(ctx).Debugf("audio_play player=%q", command[0])
	return newProcessHandle(proc), nil
}

func (p *ProcessPlayer) resolveCommand() ([]string, error) {
	if len(p.command) > 0 {
		return p.command, nil
	}
	for _, candidate := range playerCandidates() {
		if _, err := p.launcher.LookPath(candidate[0]); err == nil {
			return candidate, nil
		}
	}
	return nil, ErrNoPlayer
}

type processHandle struct {
	mu       sync.Mutex
	proc     Process
	playing  bool
	released bool
	done     chan struct{}
}

func newProcessHandle(proc Process) *processHandle {
	h := &processHandle{proc: proc, playing: true, done: make(chan struct{})}
	go h.wait()
	return h
}

func (h *processHandle) wait() {
	_ = h.proc.Wait()
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
	close(h.done)
}

func (h *processHandle) Stop(ctx context.Context) error {
	h.mu.Lock()
	playing := h.playing
	h.mu.Unlock()
	if !playing {
		return nil
	}

	if err := h.proc.Kill(); err != nil {
		return utils.WrapIfNotNil(err)
	}
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (h *processHandle) Release(ctx context.Context) error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()
	return h.Stop(ctx)
}

func (h *processHandle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}
