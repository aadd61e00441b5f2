package main

import (
	"fmt"
	"math"
)

// Activation is a named element-wise nonlinearity.
type Activation struct {
	Name string
	fn   func(float64) float64
}

// Apply returns a new tensor with the activation applied element-wise.
func (a Activation) Apply(x *Tensor) *Tensor {
	return Apply(x, a.fn)
}

// Eval applies the activation to a single value.
func (a Activation) Eval(v float64) float64 {
	return a.fn(v)
}

const (
	seluAlpha = 1.6732632423543772
	seluScale = 1.0507009873554805
)

// activations maps the names accepted in hyperparameter sets to their
// implementations. Names follow the usual Keras spelling.
var activations = map[string]func(float64) float64{
	"linear":       func(v float64) float64 { return v },
	"relu":         func(v float64) float64 { return math.Max(0, v) },
	"sigmoid":      sigmoid,
	"hard_sigmoid": func(v float64) float64 { return math.Max(0, math.Min(1, 0.2*v+0.5)) },
	"tanh":         math.Tanh,
	"softplus":     func(v float64) float64 { return math.Log1p(math.Exp(-math.Abs(v))) + math.Max(v, 0) },
	"softsign":     func(v float64) float64 { return v / (1 + math.Abs(v)) },
	"elu":          elu,
	"selu":         func(v float64) float64 { return seluScale * eluAlpha(v, seluAlpha) },
	"exponential":  math.Exp,
	"swish":        func(v float64) float64 { return v * sigmoid(v) },
	"gelu":         gelu,
}

// LookupActivation resolves an activation by name.
func LookupActivation(name string) (Activation, error) {
	fn, ok := activations[name]
	if !ok {
		return Activation{}, &ConfigError{
			Reason: fmt.Sprintf("unknown activation %q (known: %v)", name, ActivationNames()),
		}
	}
	return Activation{Name: name, fn: fn}, nil
}

// ActivationNames lists the supported activation names in sorted order.
func ActivationNames() []string { return sortedKeys(activations) }

// sigmoid is split on the sign of v so exp never overflows.
func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

func elu(v float64) float64 { return eluAlpha(v, 1) }

func eluAlpha(v, alpha float64) float64 {
	if v > 0 {
		return v
	}
	return alpha * math.Expm1(v)
}

// gelu uses the tanh approximation:
// GELU(x) ≈ 0.5 * x * (1 + tanh(√(2/π) * (x + 0.044715 * x³)))
func gelu(v float64) float64 {
	const (
		sqrt2OverPi = 0.7978845608028654 // sqrt(2/π)
		coeff       = 0.044715
	)
	return 0.5 * v * (1.0 + math.Tanh(sqrt2OverPi*(v+coeff*v*v*v)))
}
