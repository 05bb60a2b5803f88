package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var commandContext = exec.CommandContext

// Process is a started external program.
type Process interface {
	Wait() error
	Kill() error
}

// Launcher starts external programs. Tests substitute a fake.
type Launcher interface {
	Start(ctx context.Context, name string, args ...string) (Process, error)
	LookPath(name string) (string, error)
}

type ExecLauncher struct{}

func (ExecLauncher) Start(ctx context.Context, name string, args ...string) (Process, error) {
	cmd := commandContext(ctx, name, args...) //nolint:gosec
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	return &execProcess{cmd: cmd}, nil
}

func (ExecLauncher) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// playerCandidates lists players in preference order per OS. Each entry is the
// binary followed by the arguments placed before the media URI.
func playerCandidates() [][]string {
	if runtime.GOOS == "darwin" {
		return [][]string{
			{"afplay"},
			{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
		}
	}
	return [][]string{
		{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
		{"mpv", "--no-video", "--really-quiet"},
		{"paplay"},
	}
}
