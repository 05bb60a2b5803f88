package orchestrator

import (
	"context"

	"github.com/artbeyondsight/sight/pkg/model"
)

type Stage string

const (
	StageCacheCheck      Stage = "cache_check"
	StageAnalyzing       Stage = "analyzing"
	StageMusicGenerating Stage = "music_generating"
	StagePersisting      Stage = "persisting"
	StageDone            Stage = "done"
	StageErrored         Stage = "errored"
)

// Terminal reports whether no stage follows s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageErrored
}

// StageEvent is emitted when a capture event enters a stage. Err is set only
// for StageErrored; CacheHit only on StageDone.
type StageEvent struct {
	CaptureID string
	Stage     Stage
	Mode      model.Mode
	CacheHit  bool
	Err       error
}

type StageObserver interface {
	OnStage(ctx context.Context, event StageEvent)
}

type StageObserverFunc func(ctx context.Context, event StageEvent)

func (f StageObserverFunc) OnStage(ctx context.Context, event StageEvent) {
	f(ctx, event)
}
