package pipeline

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eyebump/internal/core"
	"eyebump/internal/detect"
)

func newTestPipeline(source Source, locator detect.Locator, drawer Drawer) *Pipeline {
	return New(Options{
		Source:   source,
		Locator:  locator,
		Operator: passOperator{},
		Drawer:   drawer,
		Display:  core.Portrait,
		Logger:   quietLogger(),
	})
}

func TestPipeline_EndToEnd(t *testing.T) {
	source := newChanSource()
	source.hint = core.LandscapeRight
	locator := &stubLocator{faces: []detect.Face{{
		Bounds:      image.Rect(0, 0, 40, 40),
		LeftEye:     core.Pt(10, 15),
		RightEye:    core.Pt(30, 15),
		HasLeftEye:  true,
		HasRightEye: true,
	}}}
	drawer := &fakeDrawer{}
	p := newTestPipeline(source, locator, drawer)
	assert.NotEmpty(t, p.ID())

	require.NoError(t, p.Start(context.Background()))

	// Nothing captured yet
	require.NoError(t, p.Tick(600, 800))
	assert.Zero(t, drawer.count())

	// Unbuffered send returns once the source has taken the frame; the
	// second send only completes after the first was delivered.
	source.frames <- &fakeRaw{width: 160, height: 90}
	source.frames <- &fakeRaw{width: 160, height: 90}

	require.Eventually(t, func() bool {
		return p.Stats().FramesCaptured >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Tick(600, 800))
	require.Equal(t, 1, drawer.count())
	// Landscape sensor frame rotated upright for a portrait display
	assert.Equal(t, image.Rect(0, 0, 90, 160), drawer.calls[0].src)
	assert.Equal(t, image.Rect(0, 0, 450, 800), drawer.calls[0].dst)

	p.Stop()
	assert.True(t, source.isClosed())
	assert.True(t, locator.closed)

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.Ticks)
	assert.Equal(t, uint64(1), stats.EmptyTicks)
	assert.Equal(t, uint64(1), stats.EyesDetected)
	assert.Equal(t, uint64(1), stats.FramesRendered)
}

func TestPipeline_StartTwice(t *testing.T) {
	p := newTestPipeline(newChanSource(), &stubLocator{}, &fakeDrawer{})

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}

func TestPipeline_StopWithoutStart(t *testing.T) {
	source := newChanSource()
	p := newTestPipeline(source, &stubLocator{}, &fakeDrawer{})

	p.Stop()
	assert.False(t, source.isClosed())
}

func TestPipeline_SourceFailureStopsCapture(t *testing.T) {
	source := newChanSource()
	source.err = errBoom
	p := newTestPipeline(source, &stubLocator{}, &fakeDrawer{})

	require.NoError(t, p.Start(context.Background()))
	p.Stop()

	assert.True(t, source.isClosed())
	assert.Zero(t, p.Stats().FramesCaptured)
}

func TestPipeline_RenderContinuesAfterStop(t *testing.T) {
	source := newChanSource()
	drawer := &fakeDrawer{}
	locator := &stubLocator{}
	p := newTestPipeline(source, locator, drawer)

	require.NoError(t, p.Start(context.Background()))
	source.frames <- &fakeRaw{width: 40, height: 40}
	require.Eventually(t, func() bool {
		return p.Stats().FramesCaptured == 1
	}, time.Second, 5*time.Millisecond)
	p.Stop()

	require.True(t, locator.closed)

	require.NoError(t, p.Tick(100, 100))
	require.NoError(t, p.Tick(100, 100))
	assert.Equal(t, 2, drawer.count())
	assert.Equal(t, uint64(1), p.Stats().DetectionMisses)
	// The released locator is never used again
	assert.Zero(t, locator.afterClose)
	assert.Zero(t, locator.calls)
}

func TestPipeline_SetDisplayOrientation(t *testing.T) {
	source := newChanSource()
	drawer := &fakeDrawer{}
	source.hint = core.Portrait
	p := newTestPipeline(source, &stubLocator{}, drawer)

	p.SetDisplayOrientation(core.LandscapeRight)
	assert.Equal(t, core.LandscapeRight, p.DisplayOrientation())

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	source.frames <- &fakeRaw{width: 90, height: 160}
	require.Eventually(t, func() bool {
		return p.Stats().FramesCaptured == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Tick(800, 600))
	require.Equal(t, 1, drawer.count())
	assert.Equal(t, image.Rect(0, 0, 160, 90), drawer.calls[0].src)
}
