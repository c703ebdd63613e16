// Radial bump distortion on OpenCV matrices
package algorithms

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"eyebump/internal/core"
	"eyebump/internal/distort"
)

// sourceMargin bounds how far outside the radius a negative (pinch) scale
// can sample: max of u(1+|s|(1-u))^2 for u in [0,1], |s| <= 1 is 32/27.
const sourceMargin = 1.2

// BumpDistortion magnifies (or pinches) a disc around a center point.
// Only the bounding box of the disc is remapped; the rest of the image is
// copied through untouched and the output keeps the input size.
type BumpDistortion struct{}

// NewBumpDistortion creates a new bump distortion operator
func NewBumpDistortion() *BumpDistortion {
	return &BumpDistortion{}
}

func (b *BumpDistortion) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	radius, _ := floatParam(params, distort.ParamRadius, 0)
	scale, _ := floatParam(params, distort.ParamScale, distort.BumpScale)
	cx, _ := floatParam(params, distort.ParamCenterX, 0)
	cy, _ := floatParam(params, distort.ParamCenterY, 0)
	center := core.Pt(cx, cy)

	output := input.Clone()
	extent := image.Rect(0, 0, input.Cols(), input.Rows())

	target := distort.BumpBounds(center, radius, extent)
	if target.Empty() || radius <= 0 {
		return output, nil
	}
	source := distort.BumpBounds(center, radius*sourceMargin, extent)

	mapX := gocv.NewMatWithSize(target.Dy(), target.Dx(), gocv.MatTypeCV32FC1)
	defer mapX.Close()
	mapY := gocv.NewMatWithSize(target.Dy(), target.Dx(), gocv.MatTypeCV32FC1)
	defer mapY.Close()

	xs, err := mapX.DataPtrFloat32()
	if err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("map x: %w", err)
	}
	ys, err := mapY.DataPtrFloat32()
	if err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("map y: %w", err)
	}

	// Maps are indexed in target space and point into source space
	width := target.Dx()
	for y := 0; y < target.Dy(); y++ {
		for x := 0; x < width; x++ {
			p := core.Pt(float64(target.Min.X+x), float64(target.Min.Y+y))
			s := distort.BumpSource(p, center, radius, scale)
			xs[y*width+x] = float32(s.X - float64(source.Min.X))
			ys[y*width+x] = float32(s.Y - float64(source.Min.Y))
		}
	}

	src := input.Region(source)
	defer src.Close()

	warped := gocv.NewMat()
	defer warped.Close()
	gocv.Remap(src, &warped, &mapX, &mapY, gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{})

	dst := output.Region(target)
	defer dst.Close()
	warped.CopyTo(&dst)

	return output, nil
}

func (b *BumpDistortion) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		distort.ParamRadius:  100.0,
		distort.ParamScale:   distort.BumpScale,
		distort.ParamCenterX: 0.0,
		distort.ParamCenterY: 0.0,
	}
}

func (b *BumpDistortion) GetName() string {
	return "Bump Distortion"
}

func (b *BumpDistortion) GetDescription() string {
	return "Radial displacement that bulges (scale > 0) or pinches (scale < 0) a disc"
}

func (b *BumpDistortion) Validate(params map[string]interface{}) error {
	radius, ok := floatParam(params, distort.ParamRadius, 0)
	if !ok {
		return fmt.Errorf("radius is required")
	}
	if radius <= 0 {
		return fmt.Errorf("radius must be positive, got %v", radius)
	}

	if scale, ok := floatParam(params, distort.ParamScale, 0); ok {
		if scale < -1 || scale > 1 {
			return fmt.Errorf("scale must be between -1 and 1")
		}
	}

	if _, ok := floatParam(params, distort.ParamCenterX, 0); !ok {
		return fmt.Errorf("center_x is required")
	}
	if _, ok := floatParam(params, distort.ParamCenterY, 0); !ok {
		return fmt.Errorf("center_y is required")
	}

	return nil
}

func (b *BumpDistortion) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        distort.ParamRadius,
			Type:        "float",
			Min:         0.0,
			Default:     100.0,
			Description: "Radius of the affected disc in pixels",
		},
		{
			Name:        distort.ParamScale,
			Type:        "float",
			Min:         -1.0,
			Max:         1.0,
			Default:     distort.BumpScale,
			Description: "Bump strength",
		},
		{
			Name:        distort.ParamCenterX,
			Type:        "point",
			Default:     0.0,
			Description: "Horizontal center in image coordinates",
		},
		{
			Name:        distort.ParamCenterY,
			Type:        "point",
			Default:     0.0,
			Description: "Vertical center in image coordinates",
		},
	}
}
