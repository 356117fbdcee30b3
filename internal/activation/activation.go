// Package activation holds the closed set of activation identifiers a layer may carry.
//
// The identifiers are opaque to the topology: they are resolved by whichever model builder
// consumes a plan. The scalar functions here only back the preview curves shown next to the
// activation selectors.
package activation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Name is a lower-case activation identifier.
type Name string

const (
	None     Name = ""
	Linear   Name = "linear"
	ReLU     Name = "relu"
	Sigmoid  Name = "sigmoid"
	Softmax  Name = "softmax"
	Softplus Name = "softplus"
	Tanh     Name = "tanh"
)

var ErrActivationNotFound = errors.New("activation not found")

// Func is the scalar form of an activation.
type Func func(x float64) float64

type entry struct {
	label string
	fn    Func
}

// Softmax normalises across a whole layer and has no scalar form.
var builtIn = map[Name]entry{
	Linear: {label: "Linear", fn: func(x float64) float64 { return x }},
	ReLU: {label: "ReLU", fn: func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		return x
	}},
	Sigmoid:  {label: "Sigmoid", fn: func(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }},
	Softmax:  {label: "Softmax"},
	Softplus: {label: "Softplus", fn: func(x float64) float64 { return math.Log(1 + math.Exp(x)) }},
	Tanh:     {label: "Tanh", fn: math.Tanh},
}

var ordered = []Name{Linear, ReLU, Sigmoid, Softmax, Softplus, Tanh}

// All returns every supported activation in selector order.
func All() []Name {
	return append([]Name(nil), ordered...)
}

// Parse accepts either the identifier or its display label, case-insensitively.
func Parse(s string) (Name, error) {
	name := Name(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := builtIn[name]; !ok {
		return None, fmt.Errorf("%w: %q", ErrActivationNotFound, s)
	}
	return name, nil
}

func (n Name) Valid() bool {
	_, ok := builtIn[n]
	return ok
}

// Label is the text shown in the selector, e.g. "ReLU".
func (n Name) Label() string {
	if e, ok := builtIn[n]; ok {
		return e.label
	}
	return string(n)
}

func (n Name) String() string {
	return string(n)
}

// Scalar returns the element-wise function, or false for softmax and unknown names.
func (n Name) Scalar() (Func, bool) {
	e, ok := builtIn[n]
	if !ok || e.fn == nil {
		return nil, false
	}
	return e.fn, true
}

// Point is one sample of a preview curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve samples the activation over [min, max] inclusive with the given step.
func Curve(n Name, min, max, step float64) ([]Point, error) {
	fn, ok := n.Scalar()
	if !ok {
		return nil, fmt.Errorf("%w: no scalar form for %q", ErrActivationNotFound, n)
	}
	if step <= 0 || max < min {
		return nil, fmt.Errorf("invalid curve range [%g, %g] step %g", min, max, step)
	}
	count := int(math.Floor((max-min)/step)) + 1
	points := make([]Point, 0, count)
	for i := 0; i < count; i++ {
		x := min + float64(i)*step
		points = append(points, Point{X: x, Y: fn(x)})
	}
	return points, nil
}
