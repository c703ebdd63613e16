// Pipeline counters and periodic reporting
package metrics

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Counters tracks per-frame outcomes on both sides of the pipeline. All
// fields are safe for concurrent use.
type Counters struct {
	// Capture side
	FramesCaptured *atomic.Uint64
	DecodeFailures *atomic.Uint64

	// Render side. Detection and distortion outcomes count once per
	// captured frame, not per refresh.
	Ticks              *atomic.Uint64
	EmptyTicks         *atomic.Uint64
	FramesRendered     *atomic.Uint64
	EyesDetected       *atomic.Uint64
	DetectionMisses    *atomic.Uint64
	DistortionFailures *atomic.Uint64
	InvalidGeometry    *atomic.Uint64
	DrawFailures       *atomic.Uint64
}

// NewCounters creates zeroed counters
func NewCounters() *Counters {
	return &Counters{
		FramesCaptured:     atomic.NewUint64(0),
		DecodeFailures:     atomic.NewUint64(0),
		Ticks:              atomic.NewUint64(0),
		EmptyTicks:         atomic.NewUint64(0),
		FramesRendered:     atomic.NewUint64(0),
		EyesDetected:       atomic.NewUint64(0),
		DetectionMisses:    atomic.NewUint64(0),
		DistortionFailures: atomic.NewUint64(0),
		InvalidGeometry:    atomic.NewUint64(0),
		DrawFailures:       atomic.NewUint64(0),
	}
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	FramesCaptured     uint64
	DecodeFailures     uint64
	FramesOverwritten  uint64
	Ticks              uint64
	EmptyTicks         uint64
	FramesRendered     uint64
	EyesDetected       uint64
	DetectionMisses    uint64
	DetectionErrors    uint64
	DistortionFailures uint64
	InvalidGeometry    uint64
	DrawFailures       uint64
}

// Snapshot copies the current values. Fields owned by other components
// (overwritten frames, detection errors) are left for the caller to fill.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		FramesCaptured:     c.FramesCaptured.Load(),
		DecodeFailures:     c.DecodeFailures.Load(),
		Ticks:              c.Ticks.Load(),
		EmptyTicks:         c.EmptyTicks.Load(),
		FramesRendered:     c.FramesRendered.Load(),
		EyesDetected:       c.EyesDetected.Load(),
		DetectionMisses:    c.DetectionMisses.Load(),
		DistortionFailures: c.DistortionFailures.Load(),
		InvalidGeometry:    c.InvalidGeometry.Load(),
		DrawFailures:       c.DrawFailures.Load(),
	}
}

// DetectionRate is the share of processed capture frames where both eyes
// were found
func (s Snapshot) DetectionRate() float64 {
	total := s.EyesDetected + s.DetectionMisses
	if total == 0 {
		return 0
	}
	return float64(s.EyesDetected) / float64(total)
}

// Fields renders the snapshot as structured log fields
func (s Snapshot) Fields() logrus.Fields {
	return logrus.Fields{
		"captured":       s.FramesCaptured,
		"decode_fail":    s.DecodeFailures,
		"overwritten":    s.FramesOverwritten,
		"ticks":          s.Ticks,
		"empty_ticks":    s.EmptyTicks,
		"rendered":       s.FramesRendered,
		"detection_rate": s.DetectionRate(),
		"detect_errors":  s.DetectionErrors,
		"distort_fail":   s.DistortionFailures,
		"invalid_geom":   s.InvalidGeometry,
		"draw_fail":      s.DrawFailures,
	}
}

// Rates returns capture and render frames per second between two snapshots
func Rates(prev, cur Snapshot, elapsed time.Duration) (captureFPS, renderFPS float64) {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0, 0
	}
	captureFPS = float64(cur.FramesCaptured-prev.FramesCaptured) / secs
	renderFPS = float64(cur.FramesRendered-prev.FramesRendered) / secs
	return captureFPS, renderFPS
}

// Report logs a snapshot from source every interval until ctx is done
func Report(ctx context.Context, interval time.Duration, source func() Snapshot, logger *logrus.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := source()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cur := source()
			captureFPS, renderFPS := Rates(prev, cur, now.Sub(last))

			fields := cur.Fields()
			fields["capture_fps"] = captureFPS
			fields["render_fps"] = renderFPS
			logger.WithFields(fields).Info("Pipeline stats")

			prev, last = cur, now
		}
	}
}
