// Package detect locates the eyes of the most prominent face in a frame.
package detect

import (
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"eyebump/internal/core"
)

// Accuracy trades detection speed for recall
type Accuracy int

const (
	AccuracyLow Accuracy = iota
	AccuracyHigh
)

func (a Accuracy) String() string {
	if a == AccuracyHigh {
		return "high"
	}
	return "low"
}

// Config configures a face locator
type Config struct {
	Accuracy Accuracy
	// Tracking reuses the previous face position to narrow the next search
	Tracking bool
	// MinFaceSize is the smallest face side considered, in pixels
	MinFaceSize int
	// Downscale shrinks frames by this factor before detection (1 = off)
	Downscale float64
}

// DefaultConfig returns high accuracy with tracking enabled
func DefaultConfig() Config {
	return Config{
		Accuracy:    AccuracyHigh,
		Tracking:    true,
		MinFaceSize: 60,
		Downscale:   1,
	}
}

// Face is one detected face with its eye landmarks. An eye position is only
// meaningful when the matching Has flag is set.
type Face struct {
	Bounds      image.Rectangle
	LeftEye     core.Point
	RightEye    core.Point
	HasLeftEye  bool
	HasRightEye bool
}

// Locator finds faces in an image, most prominent first
type Locator interface {
	Locate(img image.Image) ([]Face, error)
	Close() error
}

// Detector reduces locator output to the eye positions of the primary face.
// After Close it reports no eyes and never calls the locator again.
type Detector struct {
	locator Locator
	logger  *logrus.Logger

	// mu keeps Close from releasing the locator under a running Locate
	mu     sync.Mutex
	closed bool

	misses *atomic.Uint64
	errors *atomic.Uint64
}

// NewDetector creates a detector on top of locator
func NewDetector(locator Locator, logger *logrus.Logger) *Detector {
	return &Detector{
		locator: locator,
		logger:  logger,
		misses:  atomic.NewUint64(0),
		errors:  atomic.NewUint64(0),
	}
}

// Detect returns both eye positions of the first face, or nil when there is
// no face, either eye is missing, the locator failed on this frame or the
// detector is closed.
func (d *Detector) Detect(frame *core.Frame) *core.EyePositions {
	if frame == nil || frame.Image == nil {
		return nil
	}

	faces, ok, err := d.locate(frame.Image)
	if !ok {
		return nil
	}
	if err != nil {
		d.errors.Inc()
		d.logger.WithFields(logrus.Fields{
			"seq":   frame.Seq,
			"error": err,
		}).Debug("Face location failed, passing frame through")
		return nil
	}

	if len(faces) == 0 {
		d.misses.Inc()
		return nil
	}

	face := faces[0]
	if !face.HasLeftEye || !face.HasRightEye {
		d.misses.Inc()
		d.logger.WithFields(logrus.Fields{
			"seq":       frame.Seq,
			"left_eye":  face.HasLeftEye,
			"right_eye": face.HasRightEye,
		}).Debug("Face without both eyes")
		return nil
	}

	return &core.EyePositions{
		Left:  face.LeftEye,
		Right: face.RightEye,
	}
}

// Misses returns how many frames had no usable face
func (d *Detector) Misses() uint64 {
	return d.misses.Load()
}

// Errors returns how many locator calls failed
func (d *Detector) Errors() uint64 {
	return d.errors.Load()
}

// Close releases the underlying locator. Later calls are no-ops.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.locator.Close()
}

func (d *Detector) locate(img image.Image) ([]Face, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, false, nil
	}
	faces, err := d.locator.Locate(img)
	return faces, true, err
}
