package algorithms

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"eyebump/internal/distort"
)

// Evaluator runs registered operators on Go images. It is the OpenCV-backed
// distort.Operator used by the render side.
type Evaluator struct {
	logger *logrus.Logger
}

// NewEvaluator creates a new operator evaluator and logs the registered
// operators
func NewEvaluator(logger *logrus.Logger) *Evaluator {
	for _, name := range Names() {
		algo, _ := Get(name)

		params := make([]string, 0, len(algo.GetParameterInfo()))
		for _, info := range algo.GetParameterInfo() {
			params = append(params, info.Name)
		}

		logger.WithFields(logrus.Fields{
			"operator":    name,
			"title":       algo.GetName(),
			"description": algo.GetDescription(),
			"parameters":  params,
		}).Debug("Operator available")
	}

	return &Evaluator{
		logger: logger,
	}
}

// ApplyNamed converts img to a Mat, runs the named operator and converts the
// result back. Parameters missing from params take the operator's defaults.
// Center parameters are interpreted in img's coordinate space.
func (e *Evaluator) ApplyNamed(name string, img image.Image, params map[string]interface{}) (image.Image, error) {
	algo, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, name)
	}
	params = withDefaults(algo.GetDefaultParams(), params)

	origin := img.Bounds().Min
	if origin != (image.Point{}) {
		params = shiftCenter(params, origin)
	}

	mat, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("convert to mat: %w", err)
	}
	defer mat.Close()

	out, err := Apply(name, mat, params)
	if err != nil {
		out.Close()
		return nil, err
	}
	defer out.Close()

	result, err := out.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert from mat: %w", err)
	}

	if origin != (image.Point{}) {
		result = translate(result, origin)
	}

	e.logger.WithFields(logrus.Fields{
		"operator": name,
		"width":    out.Cols(),
		"height":   out.Rows(),
	}).Trace("Operator applied")

	return result, nil
}

// CropToExtent restores img to exactly rect
func (e *Evaluator) CropToExtent(img image.Image, rect image.Rectangle) image.Image {
	return distort.Crop(img, rect)
}

func withDefaults(defaults, params map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(params))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func shiftCenter(params map[string]interface{}, origin image.Point) map[string]interface{} {
	shifted := make(map[string]interface{}, len(params))
	for k, v := range params {
		shifted[k] = v
	}
	if x, ok := floatParam(params, distort.ParamCenterX, 0); ok {
		shifted[distort.ParamCenterX] = x - float64(origin.X)
	}
	if y, ok := floatParam(params, distort.ParamCenterY, 0); ok {
		shifted[distort.ParamCenterY] = y - float64(origin.Y)
	}
	return shifted
}

func translate(img image.Image, origin image.Point) image.Image {
	switch m := img.(type) {
	case *image.RGBA:
		m.Rect = m.Rect.Add(origin)
		return m
	case *image.Gray:
		m.Rect = m.Rect.Add(origin)
		return m
	}
	return img
}
