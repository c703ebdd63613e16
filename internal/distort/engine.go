// Package distort applies the eye bump effect to frames through a named
// image operator.
package distort

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"eyebump/internal/core"
)

const (
	// OperatorBump is the registry name of the radial bump operator
	OperatorBump = "bump_distortion"

	// RadiusDivisor turns the inter-eye distance into the bump radius
	RadiusDivisor = 1.25

	// BumpScale is the fixed bump strength
	BumpScale = 0.5
)

// Operator parameter keys
const (
	ParamRadius  = "radius"
	ParamScale   = "scale"
	ParamCenterX = "center_x"
	ParamCenterY = "center_y"
)

// Operator evaluates named image operators. Implementations may return an
// image with a larger nominal extent than the input; CropToExtent restores it.
type Operator interface {
	ApplyNamed(name string, img image.Image, params map[string]interface{}) (image.Image, error)
	CropToExtent(img image.Image, rect image.Rectangle) image.Image
}

// Parameters are the per-frame bump settings derived from eye positions
type Parameters struct {
	Radius float64
	Scale  float64
	Left   core.Point
	Right  core.Point
}

// NewParameters derives bump parameters from detected eyes. ok is false when
// the eyes coincide and no positive radius exists.
func NewParameters(eyes core.EyePositions) (Parameters, bool) {
	radius := eyes.Distance() / RadiusDivisor
	if !(radius > 0) {
		return Parameters{}, false
	}
	return Parameters{
		Radius: radius,
		Scale:  BumpScale,
		Left:   eyes.Left,
		Right:  eyes.Right,
	}, true
}

// OperatorParams builds the operator parameter map for a bump centered at center
func (p Parameters) OperatorParams(center core.Point) map[string]interface{} {
	return map[string]interface{}{
		ParamRadius:  p.Radius,
		ParamScale:   p.Scale,
		ParamCenterX: center.X,
		ParamCenterY: center.Y,
	}
}

// Engine enlarges both eyes of the primary face
type Engine struct {
	op     Operator
	logger *logrus.Logger
}

// NewEngine creates an engine on top of op
func NewEngine(op Operator, logger *logrus.Logger) *Engine {
	return &Engine{
		op:     op,
		logger: logger,
	}
}

// Apply returns frame distorted around both eyes. With no eyes the input
// frame itself is returned. The result always has the input's bounds.
//
// The bump is applied at the left eye, cropped to the frame extent, then
// applied at the right eye on that result and cropped again.
func (e *Engine) Apply(frame *core.Frame, eyes *core.EyePositions) (*core.Frame, error) {
	if frame == nil || frame.Image == nil {
		return frame, nil
	}
	if eyes == nil {
		return frame, nil
	}

	params, ok := NewParameters(*eyes)
	if !ok {
		e.logger.WithFields(logrus.Fields{
			"seq":   frame.Seq,
			"left":  eyes.Left.String(),
			"right": eyes.Right.String(),
		}).Debug("Eye positions coincide, skipping distortion")
		return frame, nil
	}

	extent := frame.Bounds()
	img := frame.Image

	for _, center := range []core.Point{params.Left, params.Right} {
		out, err := e.op.ApplyNamed(OperatorBump, img, params.OperatorParams(center))
		if err != nil {
			return frame, fmt.Errorf("bump at %s: %w", center, err)
		}
		img = e.op.CropToExtent(out, extent)
	}

	e.logger.WithFields(logrus.Fields{
		"seq":    frame.Seq,
		"radius": params.Radius,
	}).Debug("Applied eye distortion")

	return frame.WithImage(img), nil
}
