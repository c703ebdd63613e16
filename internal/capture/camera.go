package capture

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"eyebump/internal/core"
	"eyebump/internal/pipeline"
)

// MaxReadFailures is how many reads in a row may fail before the camera
// gives up
const MaxReadFailures = 30

// ErrDeviceLost is returned by Run once the device stops producing frames
var ErrDeviceLost = errors.New("capture device stopped delivering frames")

// CameraConfig describes which device to open and how it is mounted
type CameraConfig struct {
	// Source is a device index such as "0", or a file or stream URL
	Source string
	// Width and Height request a frame size; zero keeps the device default
	Width  int
	Height int
	// Orientation is the device orientation the sensor delivers upright
	// pixels in
	Orientation core.Orientation
}

// Camera reads frames from a gocv VideoCapture
type Camera struct {
	cfg    CameraConfig
	vc     *gocv.VideoCapture
	logger *logrus.Logger
}

// OpenCamera opens the device named by cfg.Source
func OpenCamera(cfg CameraConfig, logger *logrus.Logger) (*Camera, error) {
	var device interface{} = cfg.Source
	if id, err := strconv.Atoi(cfg.Source); err == nil {
		device = id
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open capture device %q: %w", cfg.Source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("capture device %q is not available", cfg.Source)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	logger.WithFields(logrus.Fields{
		"source":      cfg.Source,
		"width":       vc.Get(gocv.VideoCaptureFrameWidth),
		"height":      vc.Get(gocv.VideoCaptureFrameHeight),
		"fps":         vc.Get(gocv.VideoCaptureFPS),
		"orientation": cfg.Orientation.String(),
	}).Info("Capture device opened")

	return &Camera{
		cfg:    cfg,
		vc:     vc,
		logger: logger,
	}, nil
}

// Run reads at the device's own pace and hands every frame to deliver.
// Ownership of each delivered frame passes to the receiver.
func (c *Camera) Run(ctx context.Context, deliver func(pipeline.RawFrame, core.Orientation)) error {
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		mat := gocv.NewMat()
		if ok := c.vc.Read(&mat); !ok || mat.Empty() {
			mat.Close()
			failures++
			if failures >= MaxReadFailures {
				return fmt.Errorf("%w: %d failed reads", ErrDeviceLost, failures)
			}
			c.logger.WithField("failures", failures).Debug("Frame read failed")
			continue
		}
		failures = 0

		deliver(newMatFrame(mat), c.cfg.Orientation)
	}
}

// Close releases the device
func (c *Camera) Close() error {
	return c.vc.Close()
}
