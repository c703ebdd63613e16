// Named operator registry evaluated on OpenCV matrices
package algorithms

import (
	"errors"
	"fmt"
	"sort"

	"gocv.io/x/gocv"

	"eyebump/internal/distort"
)

// ErrUnknownOperator is returned when no algorithm is registered under a name
var ErrUnknownOperator = errors.New("unknown operator")

// Algorithm defines the interface for image operators
type Algorithm interface {
	Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes an operator parameter
type ParameterInfo struct {
	Name        string
	Type        string // "float", "point"
	Min         interface{}
	Max         interface{}
	Default     interface{}
	Description string
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

// Apply validates params and runs the named algorithm on input
func Apply(name string, input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrUnknownOperator, name)
	}

	if err := algorithm.Validate(params); err != nil {
		return gocv.NewMat(), fmt.Errorf("%s: %w", name, err)
	}

	return algorithm.Apply(input, params)
}

// Names returns the registered operator names in sorted order
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(distort.OperatorBump, NewBumpDistortion())
}

// floatParam reads a float64 parameter, accepting ints as well
func floatParam(params map[string]interface{}, key string, fallback float64) (float64, bool) {
	val, ok := params[key]
	if !ok {
		return fallback, false
	}
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return fallback, false
}
