package algorithms

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eyebump/internal/distort"
)

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 2), uint8(y * 2), 128, 255})
		}
	}
	return img
}

func bumpParams(radius, cx, cy float64) map[string]interface{} {
	return map[string]interface{}{
		distort.ParamRadius:  radius,
		distort.ParamScale:   distort.BumpScale,
		distort.ParamCenterX: cx,
		distort.ParamCenterY: cy,
	}
}

func TestRegistry_HasBumpOperator(t *testing.T) {
	assert.Equal(t, []string{distort.OperatorBump}, Names())

	algo, ok := Get(distort.OperatorBump)
	require.True(t, ok)
	assert.Equal(t, "Bump Distortion", algo.GetName())
	assert.Len(t, algo.GetParameterInfo(), 4)
	assert.NoError(t, algo.Validate(algo.GetDefaultParams()))
}

func TestBumpDistortion_Validate(t *testing.T) {
	b := NewBumpDistortion()

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{"valid", bumpParams(32, 10, 10), false},
		{"int radius accepted", map[string]interface{}{"radius": 5, "center_x": 1.0, "center_y": 1.0}, false},
		{"missing radius", map[string]interface{}{"center_x": 1.0, "center_y": 1.0}, true},
		{"zero radius", bumpParams(0, 10, 10), true},
		{"scale out of range", map[string]interface{}{"radius": 5.0, "scale": 2.0, "center_x": 1.0, "center_y": 1.0}, true},
		{"missing center", map[string]interface{}{"radius": 5.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Validate(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluator_ApplyNamed_PreservesExtentAndOutside(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	e := NewEvaluator(logger)

	src := gradientImage(120, 80)
	out, err := e.ApplyNamed(distort.OperatorBump, src, bumpParams(20, 60, 40))
	require.NoError(t, err)

	assert.Equal(t, src.Bounds(), out.Bounds())

	// Far from the bump nothing moves
	assert.Equal(t, src.RGBAAt(5, 5), color.RGBAModel.Convert(out.At(5, 5)))
	assert.Equal(t, src.RGBAAt(110, 70), color.RGBAModel.Convert(out.At(110, 70)))

	// Inside the bump the gradient is magnified, so pixels move
	assert.NotEqual(t, src.RGBAAt(70, 40), color.RGBAModel.Convert(out.At(70, 40)))
}

func TestEvaluator_ApplyNamed_UnknownOperator(t *testing.T) {
	e := NewEvaluator(logrus.New())

	_, err := e.ApplyNamed("swirl", gradientImage(10, 10), nil)
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestEvaluator_ApplyNamed_BumpOutsideFrameIsNoop(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	e := NewEvaluator(logger)

	src := gradientImage(40, 40)
	out, err := e.ApplyNamed(distort.OperatorBump, src, bumpParams(10, -200, -200))
	require.NoError(t, err)

	assert.Equal(t, src.RGBAAt(20, 20), color.RGBAModel.Convert(out.At(20, 20)))
}

func TestEvaluator_ApplyNamed_FillsDefaults(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	e := NewEvaluator(logger)
	src := gradientImage(120, 80)

	explicit, err := e.ApplyNamed(distort.OperatorBump, src, bumpParams(20, 60, 40))
	require.NoError(t, err)

	// Scale left out takes the operator default
	partial, err := e.ApplyNamed(distort.OperatorBump, src, map[string]interface{}{
		distort.ParamRadius:  20.0,
		distort.ParamCenterX: 60.0,
		distort.ParamCenterY: 40.0,
	})
	require.NoError(t, err)

	assert.Equal(t, color.RGBAModel.Convert(explicit.At(70, 40)), color.RGBAModel.Convert(partial.At(70, 40)))
}

func TestNewEvaluator_LogsOperators(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	NewEvaluator(logger)

	line, err := buf.ReadBytes('\n')
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "Operator available", entry["msg"])
	assert.Equal(t, distort.OperatorBump, entry["operator"])
	assert.Equal(t, "Bump Distortion", entry["title"])
	assert.Len(t, entry["parameters"], 4)
}
