// Package capture provides gocv backed frame sources for the pipeline
package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"eyebump/internal/core"
)

// matFrame owns one captured Mat until Close
type matFrame struct {
	mat gocv.Mat
}

func newMatFrame(mat gocv.Mat) *matFrame {
	return &matFrame{mat: mat}
}

// Decode rotates the Mat clockwise by rotation and converts it to an image
func (f *matFrame) Decode(rotation core.Rotation) (image.Image, error) {
	if f.mat.Empty() {
		return nil, core.ErrEmptyFrame
	}

	src := f.mat
	if flag, ok := rotateFlag(rotation); ok {
		rotated := gocv.NewMat()
		defer rotated.Close()
		gocv.Rotate(f.mat, &rotated, flag)
		if rotated.Empty() {
			return nil, fmt.Errorf("rotate by %d degrees produced an empty frame", rotation.Degrees())
		}
		src = rotated
	}

	img, err := src.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mat type %v: %w", src.Type(), err)
	}
	return img, nil
}

func (f *matFrame) Close() {
	f.mat.Close()
}

func rotateFlag(rotation core.Rotation) (gocv.RotateFlag, bool) {
	switch rotation {
	case core.Rotate90:
		return gocv.Rotate90Clockwise, true
	case core.Rotate180:
		return gocv.Rotate180Clockwise, true
	case core.Rotate270:
		return gocv.Rotate90CounterClockwise, true
	default:
		return 0, false
	}
}
