package vision

import (
	"context"
	"sync"
	"time"

	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/google/uuid"
)

const DefaultCooldown = 5 * time.Second

// Handler runs the full analysis for an accepted detection.
type Handler func(ctx context.Context, detection Detection) error

type DetectorOption func(*Detector)

func WithCooldown(cooldown time.Duration) DetectorOption {
	return func(d *Detector) {
		if cooldown >= 0 {
			d.cooldown = cooldown
		}
	}
}

// Detector admits at most one analysis at a time. While an analysis runs
// every detection is dropped; after it finishes, a detection with the same
// fingerprint stays dropped until the cooldown elapses.
type Detector struct {
	handler  Handler
	cooldown time.Duration

	mu         sync.Mutex
	analyzing  bool
	lastKey    string
	generation uint64
	timer      *time.Timer
	wg         sync.WaitGroup
}

func NewDetector(handler Handler, opts ...DetectorOption) *Detector {
	d := &Detector{handler: handler, cooldown: DefaultCooldown}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle starts the analysis for detection in the background and reports
// whether it was accepted.
func (d *Detector) Handle(ctx context.Context, detection Detection) bool {
	key := detection.Key()

	d.mu.Lock()
	if d.analyzing || d.lastKey == key {
		d.mu.Unlock()
		return false
	}
	d.analyzing = true
	d.lastKey = key
	d.generation++
	generation := d.generation
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.wg.Add(1)
	d.mu.Unlock()

	if detection.ID == "" {
		detection.ID = uuid.NewString()
	}
	ctx = logging.ContextWithFields(ctx, map[string]any{"detection_id": detection.ID, "mode": detection.Type})
	logging.NewLogger(ctx).Infof("artwork_detected confidence=%.0f", detection.Confidence)

	go d.run(ctx, detection, generation)
	return true
}

func (d *Detector) run(ctx context.Context, detection Detection, generation uint64) {
	log := logging.NewLogger(ctx)
	defer d.wg.Done()
	defer d.finish(generation)
	defer utils.RecoverAndLog("detection handler", log)

	if err := d.handler(ctx, detection); err != nil {
		log.Errorf("error: %v", err)
	}
}

func (d *Detector) finish(generation uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.analyzing = false
	if d.cooldown == 0 {
		d.lastKey = ""
		return
	}
	d.timer = time.AfterFunc(d.cooldown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.generation == generation {
			d.lastKey = ""
		}
	})
}

// Run drains results until the channel closes or ctx is done, then waits for
// the in-flight analysis.
func (d *Detector) Run(ctx context.Context, results <-chan StreamResult) error {
	log := logging.NewLogger(ctx)
	defer d.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-results:
			if !ok {
				return nil
			}
			log.Debugf("stream_result inference_ms=%.0f total_ms=%.0f", result.InferenceLatencyMs, result.TotalLatencyMs)
			if detection, found := ParseResult(result.Result); found {
				d.Handle(ctx, detection)
			}
		}
	}
}

// Wait blocks until no analysis is in flight.
func (d *Detector) Wait() {
	d.wg.Wait()
}

// Close stops the pending cooldown timer.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
