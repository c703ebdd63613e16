package gui

import (
	"errors"
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// ErrNoTarget is returned by Draw outside a raster refresh
var ErrNoTarget = errors.New("draw called outside a surface refresh")

var background = image.NewUniform(color.Black)

// Surface is a fyne raster that asks a renderer for its content on every
// refresh. Draw is only valid while the renderer is running.
type Surface struct {
	raster   *canvas.Raster
	renderer func(width, height int) error
	target   *image.RGBA
	logger   *logrus.Logger
}

// NewSurface creates an empty black surface
func NewSurface(logger *logrus.Logger) *Surface {
	s := &Surface{logger: logger}
	s.raster = canvas.NewRaster(s.generate)
	s.raster.SetMinSize(fyne.NewSize(160, 120))
	return s
}

// SetRenderer installs the per-refresh callback. It receives the raster
// size in device pixels.
func (s *Surface) SetRenderer(render func(width, height int) error) {
	s.renderer = render
}

// CanvasObject returns the fyne object to place in a window
func (s *Surface) CanvasObject() fyne.CanvasObject {
	return s.raster
}

// Refresh schedules a redraw
func (s *Surface) Refresh() {
	s.raster.Refresh()
}

// Draw scales the src part of img into dst of the current target
func (s *Surface) Draw(img image.Image, dst, src image.Rectangle) error {
	if s.target == nil {
		return ErrNoTarget
	}
	draw.ApproxBiLinear.Scale(s.target, dst, img, src, draw.Src, nil)
	return nil
}

func (s *Surface) generate(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), background, image.Point{}, draw.Src)

	if s.renderer == nil {
		return out
	}

	s.target = out
	defer func() { s.target = nil }()

	if err := s.renderer(w, h); err != nil {
		s.logger.WithFields(logrus.Fields{
			"width":  w,
			"height": h,
			"error":  err,
		}).Debug("Render skipped")
	}

	return out
}
