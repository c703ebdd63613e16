// Package viewport maps a source image onto a render surface while keeping
// the source aspect ratio.
package viewport

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidDimensions is returned when a source or surface side is not positive.
// Callers must not draw when they get it.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// Viewport is the destination rectangle on the surface. It is anchored at
// the surface origin and recomputed for every frame.
type Viewport struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect returns the viewport as an image rectangle
func (v Viewport) Rect() image.Rectangle {
	return image.Rect(v.X, v.Y, v.X+v.Width, v.Y+v.Height)
}

// Map computes the aspect-preserving target rectangle for a source of
// sourceWidth x sourceHeight drawn onto a surface of surfaceWidth x surfaceHeight.
//
// Sources taller than wide fill the surface height, all others fill the
// surface width; the other side is rounded half away from zero. If that
// choice would overflow the surface, the other side is filled instead so the
// result always stays inscribed.
func Map(sourceWidth, sourceHeight, surfaceWidth, surfaceHeight int) (Viewport, error) {
	if sourceWidth <= 0 || sourceHeight <= 0 {
		return Viewport{}, fmt.Errorf("%w: source %dx%d", ErrInvalidDimensions, sourceWidth, sourceHeight)
	}
	if surfaceWidth <= 0 || surfaceHeight <= 0 {
		return Viewport{}, fmt.Errorf("%w: surface %dx%d", ErrInvalidDimensions, surfaceWidth, surfaceHeight)
	}

	aspect := float64(sourceWidth) / float64(sourceHeight)

	var width, height int
	if aspect < 1 {
		width, height = fitHeight(aspect, surfaceHeight)
		if width > surfaceWidth {
			width, height = fitWidth(aspect, surfaceWidth)
		}
	} else {
		width, height = fitWidth(aspect, surfaceWidth)
		if height > surfaceHeight {
			width, height = fitHeight(aspect, surfaceHeight)
		}
	}

	return Viewport{Width: width, Height: height}, nil
}

func fitHeight(aspect float64, surfaceHeight int) (int, int) {
	return int(math.Round(float64(surfaceHeight) * aspect)), surfaceHeight
}

func fitWidth(aspect float64, surfaceWidth int) (int, int) {
	return surfaceWidth, int(math.Round(float64(surfaceWidth) / aspect))
}
