package analysis

import (
	"context"

	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

// Resilient tries the primary provider and substitutes the fallback provider's
// content on any failure. With strict credentials a missing credential is
// returned instead of being masked.
type Resilient struct {
	primary           model.AnalysisProvider
	fallback          model.AnalysisProvider
	strictCredentials bool
}

type ResilientOption func(*Resilient)

func WithStrictCredentials(strict bool) ResilientOption {
	return func(r *Resilient) {
		r.strictCredentials = strict
	}
}

func WithFallback(provider model.AnalysisProvider) ResilientOption {
	return func(r *Resilient) {
		if provider != nil {
			r.fallback = provider
		}
	}
}

func NewResilient(primary model.AnalysisProvider, opts ...ResilientOption) *Resilient {
	r := &Resilient{primary: primary, fallback: NewFallback()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resilient) Analyze(ctx context.Context, image model.Image, mode model.Mode) (model.AnalysisResult, error) {
	log := logging.NewLogger(ctx)
	if r.primary == nil {
		return r.fallback.Analyze(ctx, image, mode)
	}

	result, err := r.primary.Analyze(ctx, image, mode)
	if err == nil {
		return result, nil
	}
	if r.strictCredentials && model.IsMissingCredential(err) {
		return model.AnalysisResult{}, utils.WrapIfNotNil(err)
	}

	log.Errorf("analysis failed, using fallback content: %v", err)
	return r.fallback.Analyze(ctx, image, mode)
}
