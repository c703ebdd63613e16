package pipeline

import (
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"eyebump/internal/core"
	"eyebump/internal/metrics"
)

// RawFrame is a captured buffer that has not been turned into a Frame yet
type RawFrame interface {
	// Decode returns the pixels rotated clockwise by rotation
	Decode(rotation core.Rotation) (image.Image, error)
	// Close releases the buffer; called exactly once per delivered frame
	Close()
}

// CapturePump is the producer side. It runs on whatever goroutine the
// capture source delivers on and publishes into the frame buffer.
type CapturePump struct {
	buffer   *core.FrameBuffer
	counters *metrics.Counters
	logger   *logrus.Entry

	display *atomic.Int32
	seq     *atomic.Uint64
	now     func() time.Time
}

// NewCapturePump creates a pump publishing into buffer, assuming display
// orientation display until told otherwise.
func NewCapturePump(buffer *core.FrameBuffer, display core.Orientation, counters *metrics.Counters, logger *logrus.Entry) *CapturePump {
	return &CapturePump{
		buffer:   buffer,
		counters: counters,
		logger:   logger,
		display:  atomic.NewInt32(int32(display)),
		seq:      atomic.NewUint64(0),
		now:      time.Now,
	}
}

// SetDisplayOrientation updates the orientation frames are normalized to.
// Safe to call from any goroutine.
func (cp *CapturePump) SetDisplayOrientation(o core.Orientation) {
	if !o.Valid() {
		cp.logger.WithField("orientation", int(o)).Warn("Ignoring invalid display orientation")
		return
	}
	prev := core.Orientation(cp.display.Swap(int32(o)))
	if prev != o {
		cp.logger.WithFields(logrus.Fields{
			"from": prev.String(),
			"to":   o.String(),
		}).Info("Display orientation changed")
	}
}

// DisplayOrientation returns the current display orientation
func (cp *CapturePump) DisplayOrientation() core.Orientation {
	return core.Orientation(cp.display.Load())
}

// OnFrame normalizes raw to the display orientation and publishes it. A
// frame that cannot be decoded is logged and skipped.
func (cp *CapturePump) OnFrame(raw RawFrame, hint core.Orientation) {
	defer raw.Close()

	display := cp.DisplayOrientation()
	rotation := core.RotationBetween(hint, display)

	img, err := raw.Decode(rotation)
	if err == nil && (img == nil || img.Bounds().Empty()) {
		err = core.ErrEmptyFrame
	}
	if err != nil {
		cp.counters.DecodeFailures.Inc()
		cp.logger.WithFields(logrus.Fields{
			"hint":     hint.String(),
			"rotation": rotation.Degrees(),
			"error":    err,
		}).Warn("Skipping frame that could not be converted")
		return
	}

	frame := core.NewFrame(img, cp.seq.Inc(), cp.now(), display)
	cp.buffer.Publish(frame)
	cp.counters.FramesCaptured.Inc()
}
