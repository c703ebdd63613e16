package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eyebump/internal/core"
	"eyebump/internal/metrics"
)

func newTestCapturePump(display core.Orientation) (*CapturePump, *core.FrameBuffer, *metrics.Counters) {
	buffer := core.NewFrameBuffer()
	counters := metrics.NewCounters()
	cp := NewCapturePump(buffer, display, counters, quietLogger().WithField("side", "capture"))
	return cp, buffer, counters
}

func TestCapturePump_PublishesNormalizedFrame(t *testing.T) {
	cp, buffer, counters := newTestCapturePump(core.Portrait)
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cp.now = func() time.Time { return stamp }

	raw := &fakeRaw{width: 1920, height: 1080}
	cp.OnFrame(raw, core.LandscapeRight)

	frame := buffer.Latest()
	require.NotNil(t, frame)
	assert.Equal(t, uint64(1), frame.Seq)
	assert.Equal(t, stamp, frame.Timestamp)
	assert.Equal(t, core.Portrait, frame.Orientation)
	assert.Equal(t, core.Rotate90, raw.rotation)
	assert.Equal(t, 1080, frame.Width())
	assert.Equal(t, 1920, frame.Height())
	assert.Equal(t, 1, raw.closed)
	assert.Equal(t, uint64(1), counters.FramesCaptured.Load())
}

func TestCapturePump_RotationFollowsDisplay(t *testing.T) {
	tests := []struct {
		name    string
		hint    core.Orientation
		display core.Orientation
		want    core.Rotation
	}{
		{"same", core.LandscapeRight, core.LandscapeRight, core.Rotate0},
		{"sensor landscape to portrait", core.LandscapeRight, core.Portrait, core.Rotate90},
		{"upside down", core.Portrait, core.PortraitUpsideDown, core.Rotate180},
		{"landscape left", core.LandscapeLeft, core.LandscapeRight, core.Rotate180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, _, _ := newTestCapturePump(tt.display)
			raw := &fakeRaw{width: 4, height: 2}
			cp.OnFrame(raw, tt.hint)
			assert.Equal(t, tt.want, raw.rotation)
		})
	}
}

func TestCapturePump_SkipsUndecodableFrame(t *testing.T) {
	cp, buffer, counters := newTestCapturePump(core.Portrait)

	cp.OnFrame(&fakeRaw{width: 4, height: 4}, core.Portrait)
	first := buffer.Latest()
	require.NotNil(t, first)

	bad := &fakeRaw{err: errBoom}
	cp.OnFrame(bad, core.Portrait)

	assert.Equal(t, 1, bad.closed)
	assert.Equal(t, uint64(1), counters.DecodeFailures.Load())
	assert.Equal(t, uint64(1), counters.FramesCaptured.Load())
	assert.Equal(t, uint64(1), buffer.Stats().Published)
}

func TestCapturePump_EmptyImageIsSkipped(t *testing.T) {
	cp, buffer, counters := newTestCapturePump(core.Portrait)

	cp.OnFrame(&fakeRaw{width: 0, height: 0}, core.Portrait)

	assert.Nil(t, buffer.Latest())
	assert.Equal(t, uint64(1), counters.DecodeFailures.Load())
}

func TestCapturePump_SequenceIncreases(t *testing.T) {
	cp, buffer, _ := newTestCapturePump(core.Portrait)

	for i := 0; i < 3; i++ {
		cp.OnFrame(&fakeRaw{width: 2, height: 2}, core.Portrait)
	}

	frame := buffer.Latest()
	require.NotNil(t, frame)
	assert.Equal(t, uint64(3), frame.Seq)
	assert.Equal(t, uint64(2), buffer.Stats().Overwritten)
}

func TestCapturePump_SetDisplayOrientation(t *testing.T) {
	cp, buffer, _ := newTestCapturePump(core.Portrait)

	cp.SetDisplayOrientation(core.LandscapeLeft)
	assert.Equal(t, core.LandscapeLeft, cp.DisplayOrientation())

	cp.SetDisplayOrientation(core.Orientation(45))
	assert.Equal(t, core.LandscapeLeft, cp.DisplayOrientation())

	raw := &fakeRaw{width: 2, height: 2}
	cp.OnFrame(raw, core.LandscapeLeft)
	assert.Equal(t, core.Rotate0, raw.rotation)
	assert.Equal(t, core.LandscapeLeft, buffer.Latest().Orientation)
}
