package main

import (
	"fmt"
	"math"
	"sort"
)

// Loss is a named objective comparing labels with predicted values.
type Loss struct {
	Name string
	fn   func(yTrue, yPred float64) float64
}

// Compute returns the mean loss over all elements.
func (l Loss) Compute(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) || len(yTrue) == 0 {
		return 0, fmt.Errorf("%w: %d labels for %d predictions", ErrShapeMismatch, len(yTrue), len(yPred))
	}
	total := 0.0
	for i := range yTrue {
		total += l.fn(yTrue[i], yPred[i])
	}
	return total / float64(len(yTrue)), nil
}

// lossEpsilon keeps log() away from zero in cross-entropy.
const lossEpsilon = 1e-7

// signedLabel maps {0,1} labels to {-1,+1}; other values pass through.
func signedLabel(y float64) float64 {
	if y == 0 || y == 1 {
		return 2*y - 1
	}
	return y
}

func binaryCrossentropy(y, p float64) float64 {
	p = math.Max(lossEpsilon, math.Min(1-lossEpsilon, p))
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

func squaredError(y, p float64) float64 { return (y - p) * (y - p) }

func absoluteError(y, p float64) float64 { return math.Abs(y - p) }

func hinge(y, p float64) float64 { return math.Max(1-signedLabel(y)*p, 0) }

func squaredHinge(y, p float64) float64 {
	h := hinge(y, p)
	return h * h
}

// logcosh uses log(cosh(x)) = x + softplus(-2x) - log(2) to stay finite for large |x|.
func logcosh(y, p float64) float64 {
	x := p - y
	return x + math.Log1p(math.Exp(-2*x)) - math.Ln2
}

var losses = map[string]func(yTrue, yPred float64) float64{
	"binary_crossentropy": binaryCrossentropy,
	"mean_squared_error":  squaredError,
	"mse":                 squaredError,
	"mean_absolute_error": absoluteError,
	"mae":                 absoluteError,
	"hinge":               hinge,
	"squared_hinge":       squaredHinge,
	"logcosh":             logcosh,
}

// LookupLoss resolves a loss by name.
func LookupLoss(name string) (Loss, error) {
	fn, ok := losses[name]
	if !ok {
		return Loss{}, &ConfigError{Key: "loss", Reason: fmt.Sprintf("unknown loss %q (known: %v)", name, LossNames())}
	}
	return Loss{Name: name, fn: fn}, nil
}

// LossNames lists the supported loss names in sorted order.
func LossNames() []string { return sortedKeys(losses) }

// Metric is a named quality measure reported during evaluation.
type Metric struct {
	Name string
	fn   func(yTrue, yPred []float64) float64
}

// Compute evaluates the metric over a batch.
func (m Metric) Compute(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) || len(yTrue) == 0 {
		return 0, fmt.Errorf("%w: %d labels for %d predictions", ErrShapeMismatch, len(yTrue), len(yPred))
	}
	return m.fn(yTrue, yPred), nil
}

// binaryAccuracy is the fraction of predictions on the same side of 0.5 as
// their label.
func binaryAccuracy(yTrue, yPred []float64) float64 {
	correct := 0
	for i := range yTrue {
		pred := 0.0
		if yPred[i] > 0.5 {
			pred = 1
		}
		if pred == yTrue[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// With a single sigmoid output "accuracy" means binary accuracy.
var metrics = map[string]func(yTrue, yPred []float64) float64{
	"accuracy":        binaryAccuracy,
	"acc":             binaryAccuracy,
	"binary_accuracy": binaryAccuracy,
}

// LookupMetric resolves a metric by name.
func LookupMetric(name string) (Metric, error) {
	fn, ok := metrics[name]
	if !ok {
		return Metric{}, &ConfigError{Key: "metrics", Reason: fmt.Sprintf("unknown metric %q (known: %v)", name, sortedKeys(metrics))}
	}
	return Metric{Name: name, fn: fn}, nil
}

// Compilation is the binding produced by Model.Compile.
type Compilation struct {
	Loss         Loss
	Optimizer    Optimizer
	OptimizerID  string
	LearningRate float64
	Metrics      []Metric
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
