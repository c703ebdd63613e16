package pipeline

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"eyebump/internal/core"
	"eyebump/internal/metrics"
	"eyebump/internal/viewport"
)

// EyeDetector finds the eyes of the primary face in a frame
type EyeDetector interface {
	Detect(frame *core.Frame) *core.EyePositions
}

// Distorter applies the eye effect to a frame
type Distorter interface {
	Apply(frame *core.Frame, eyes *core.EyePositions) (*core.Frame, error)
}

// Drawer presents img on the render surface, scaling src of img into dst
type Drawer interface {
	Draw(img image.Image, dst, src image.Rectangle) error
}

// RenderPump is the consumer side, driven once per display refresh from a
// single goroutine.
type RenderPump struct {
	buffer   *core.FrameBuffer
	detector EyeDetector
	engine   Distorter
	drawer   Drawer
	counters *metrics.Counters
	logger   *logrus.Entry

	// Result for the last source frame, reused while no new frame arrives
	source *core.Frame
	out    *core.Frame
	eyes   *core.EyePositions
}

// NewRenderPump wires the render side
func NewRenderPump(buffer *core.FrameBuffer, detector EyeDetector, engine Distorter, drawer Drawer, counters *metrics.Counters, logger *logrus.Entry) *RenderPump {
	return &RenderPump{
		buffer:   buffer,
		detector: detector,
		engine:   engine,
		drawer:   drawer,
		counters: counters,
		logger:   logger,
	}
}

// Tick renders the latest frame onto a surface of the given pixel size.
//
// Nothing is drawn before the first frame arrives; that is not an error.
// Detection and distortion run once per captured frame; refreshes that find
// the same frame redraw the previous result. A failed distortion falls back
// to the undistorted frame. Invalid geometry is returned without drawing.
func (rp *RenderPump) Tick(surfaceWidth, surfaceHeight int) error {
	rp.counters.Ticks.Inc()

	frame := rp.buffer.Latest()
	if frame == nil {
		rp.counters.EmptyTicks.Inc()
		return nil
	}

	if frame != rp.source {
		rp.process(frame)
	}
	out, eyes := rp.out, rp.eyes

	src := out.Bounds()
	vp, err := viewport.Map(src.Dx(), src.Dy(), surfaceWidth, surfaceHeight)
	if err != nil {
		rp.counters.InvalidGeometry.Inc()
		return err
	}

	if err := rp.drawer.Draw(out.Image, vp.Rect(), src); err != nil {
		rp.counters.DrawFailures.Inc()
		return fmt.Errorf("draw frame %d: %w", out.Seq, err)
	}

	rp.counters.FramesRendered.Inc()
	rp.logger.WithFields(logrus.Fields{
		"seq":      out.Seq,
		"eyes":     eyes != nil,
		"viewport": vp.Rect().String(),
	}).Trace("Frame rendered")

	return nil
}

func (rp *RenderPump) process(frame *core.Frame) {
	eyes := rp.detector.Detect(frame)
	if eyes != nil {
		rp.counters.EyesDetected.Inc()
	} else {
		rp.counters.DetectionMisses.Inc()
	}

	out, err := rp.engine.Apply(frame, eyes)
	if err != nil {
		rp.counters.DistortionFailures.Inc()
		rp.logger.WithFields(logrus.Fields{
			"seq":   frame.Seq,
			"error": err,
		}).Warn("Distortion failed, drawing source frame")
		out = frame
	}

	rp.source, rp.out, rp.eyes = frame, out, eyes
}
