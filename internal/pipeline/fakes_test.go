package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"eyebump/internal/core"
	"eyebump/internal/detect"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// fakeRaw decodes to a fixed image, rotating its size for odd quarter turns
type fakeRaw struct {
	width, height int
	err           error

	mu       sync.Mutex
	rotation core.Rotation
	decoded  bool
	closed   int
}

func (f *fakeRaw) Decode(rotation core.Rotation) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotation = rotation
	f.decoded = true
	if f.err != nil {
		return nil, f.err
	}
	w, h := f.width, f.height
	if rotation == core.Rotate90 || rotation == core.Rotate270 {
		w, h = h, w
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func (f *fakeRaw) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

type drawCall struct {
	img      image.Image
	dst, src image.Rectangle
}

type fakeDrawer struct {
	mu    sync.Mutex
	calls []drawCall
	err   error
}

func (d *fakeDrawer) Draw(img image.Image, dst, src image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, drawCall{img: img, dst: dst, src: src})
	return nil
}

func (d *fakeDrawer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type fixedDetector struct {
	eyes  *core.EyePositions
	calls int
}

func (d *fixedDetector) Detect(*core.Frame) *core.EyePositions {
	d.calls++
	return d.eyes
}

// markingDistorter replaces the image so tests can see it was applied
type markingDistorter struct {
	err   error
	calls int
	seen  *core.EyePositions
}

func (d *markingDistorter) Apply(frame *core.Frame, eyes *core.EyePositions) (*core.Frame, error) {
	d.calls++
	d.seen = eyes
	if d.err != nil {
		return frame, d.err
	}
	if eyes == nil {
		return frame, nil
	}
	b := frame.Bounds()
	return frame.WithImage(solid(b.Dx(), b.Dy(), color.White)), nil
}

type stubLocator struct {
	faces      []detect.Face
	closed     bool
	calls      int
	afterClose int
}

func (l *stubLocator) Locate(image.Image) ([]detect.Face, error) {
	l.calls++
	if l.closed {
		l.afterClose++
	}
	return l.faces, nil
}

func (l *stubLocator) Close() error {
	l.closed = true
	return nil
}

// passOperator returns its input untouched
type passOperator struct{}

func (passOperator) ApplyNamed(_ string, img image.Image, _ map[string]interface{}) (image.Image, error) {
	return img, nil
}

func (passOperator) CropToExtent(img image.Image, _ image.Rectangle) image.Image {
	return img
}

// chanSource delivers whatever is sent on frames until cancelled
type chanSource struct {
	frames chan RawFrame
	hint   core.Orientation
	err    error

	mu     sync.Mutex
	closed bool
}

func newChanSource() *chanSource {
	return &chanSource{frames: make(chan RawFrame)}
}

func (s *chanSource) Run(ctx context.Context, deliver func(RawFrame, core.Orientation)) error {
	if s.err != nil {
		return s.err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-s.frames:
			deliver(raw, s.hint)
		}
	}
}

func (s *chanSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *chanSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var errBoom = errors.New("boom")
