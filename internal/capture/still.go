package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"eyebump/internal/core"
	"eyebump/internal/pipeline"
)

var supportedFormats = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"}

// IsStillImage reports whether path names an image file Still can load
func IsStillImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// Still replays one image file as a fixed rate frame source
type Still struct {
	mat         gocv.Mat
	interval    time.Duration
	orientation core.Orientation
	logger      *logrus.Logger
}

// OpenStill loads path and prepares it for delivery fps times a second
func OpenStill(path string, fps int, orientation core.Orientation, logger *logrus.Logger) (*Still, error) {
	logger.WithField("filepath", path).Debug("Loading still image")

	if !IsStillImage(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid still frame rate: %d", fps)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to load image: %s", path)
	}

	logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
		"fps":      fps,
	}).Info("Still image loaded")

	return &Still{
		mat:         mat,
		interval:    time.Second / time.Duration(fps),
		orientation: orientation,
		logger:      logger,
	}, nil
}

// Run delivers a fresh copy of the image on every tick
func (s *Still) Run(ctx context.Context, deliver func(pipeline.RawFrame, core.Orientation)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deliver(newMatFrame(s.mat.Clone()), s.orientation)
		}
	}
}

// Close releases the loaded image
func (s *Still) Close() error {
	return s.mat.Close()
}
