package vision

import (
	"context"

	"github.com/artbeyondsight/sight/pkg/capture"
	"github.com/artbeyondsight/sight/pkg/model"
)

// FrameSource yields the current camera frame.
type FrameSource interface {
	Frame(ctx context.Context) (model.Image, error)
}

// FileFrameSource reads the frame a camera tool keeps overwriting at Path.
type FileFrameSource struct {
	Path    string
	Options capture.Options
}

func (f FileFrameSource) Frame(context.Context) (model.Image, error) {
	return capture.FromFile(f.Path, f.Options)
}
