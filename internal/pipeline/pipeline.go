// Package pipeline connects a capture source to a render surface through a
// single-slot frame buffer.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"eyebump/internal/core"
	"eyebump/internal/detect"
	"eyebump/internal/distort"
	"eyebump/internal/metrics"
)

// ErrAlreadyStarted is returned by Start on a running pipeline
var ErrAlreadyStarted = errors.New("pipeline already started")

// Source delivers raw frames on its own goroutine until ctx is done or the
// device fails. deliver must not be called after Run returns.
type Source interface {
	Run(ctx context.Context, deliver func(RawFrame, core.Orientation)) error
	Close() error
}

// Options holds the collaborators a pipeline is built from
type Options struct {
	Source   Source
	Locator  detect.Locator
	Operator distort.Operator
	Drawer   Drawer
	Display  core.Orientation
	Logger   *logrus.Logger
}

// Pipeline owns the frame buffer and both pumps. The buffer lives as long
// as the pipeline, so neither side can outlive it.
type Pipeline struct {
	id       string
	buffer   *core.FrameBuffer
	counters *metrics.Counters
	detector *detect.Detector
	capture  *CapturePump
	render   *RenderPump
	source   Source
	logger   *logrus.Entry

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New builds every pipeline component up front
func New(opts Options) *Pipeline {
	id := uuid.NewString()
	logger := opts.Logger.WithField("session", id)

	buffer := core.NewFrameBuffer()
	counters := metrics.NewCounters()
	detector := detect.NewDetector(opts.Locator, opts.Logger)
	engine := distort.NewEngine(opts.Operator, opts.Logger)

	return &Pipeline{
		id:       id,
		buffer:   buffer,
		counters: counters,
		detector: detector,
		capture:  NewCapturePump(buffer, opts.Display, counters, logger.WithField("side", "capture")),
		render:   NewRenderPump(buffer, detector, engine, opts.Drawer, counters, logger.WithField("side", "render")),
		source:   opts.Source,
		logger:   logger,
	}
}

// ID returns the session identifier attached to every log line
func (p *Pipeline) ID() string {
	return p.id
}

// Start runs the capture source on its own goroutine
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true

	go func() {
		defer close(p.done)
		p.logger.Info("Capture started")
		if err := p.source.Run(runCtx, p.capture.OnFrame); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.WithError(err).Error("Capture source stopped")
			return
		}
		p.logger.Info("Capture stopped")
	}()

	return nil
}

// Stop cancels capture, waits for the capture goroutine to return and
// releases the source and detector. Render ticks after Stop keep drawing the
// last frame; a frame not yet processed is drawn without detection.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.cancel()
	<-p.done
	p.started = false

	if err := p.source.Close(); err != nil {
		p.logger.WithError(err).Warn("Failed to close capture source")
	}
	if err := p.detector.Close(); err != nil {
		p.logger.WithError(err).Warn("Failed to close face locator")
	}

	p.logger.WithFields(p.Stats().Fields()).Info("Pipeline stopped")
}

// Tick renders one display refresh
func (p *Pipeline) Tick(surfaceWidth, surfaceHeight int) error {
	return p.render.Tick(surfaceWidth, surfaceHeight)
}

// SetDisplayOrientation forwards an orientation change to the capture side
func (p *Pipeline) SetDisplayOrientation(o core.Orientation) {
	p.capture.SetDisplayOrientation(o)
}

// DisplayOrientation returns the orientation frames are normalized to
func (p *Pipeline) DisplayOrientation() core.Orientation {
	return p.capture.DisplayOrientation()
}

// Stats returns a snapshot of all pipeline counters
func (p *Pipeline) Stats() metrics.Snapshot {
	s := p.counters.Snapshot()
	s.FramesOverwritten = p.buffer.Stats().Overwritten
	s.DetectionErrors = p.detector.Errors()
	return s
}
