package main

import (
	"strconv"
	"strings"
)

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// A model is a fixed, ordered list of stages. Each stage is a tensor
// transformation that knows three things about itself:
//
//   1. Which input shapes it accepts and what shape it emits
//      (OutputShape). Model.Add calls it with the current output shape, so
//      an impossible configuration - a convolution kernel wider than the
//      sequence, a pooling window larger than what is left - fails while
//      the model is being assembled, before anything runs on it.
//
//   2. How many parameters it owns (ParamCount, Weights, Trainable).
//
//   3. How to run inference on a batch (Forward).
//
// Shapes carry a leading batch axis whose size is unknown until data
// arrives. It is stored as BatchDim (-1) and printed as "None":
//
//   (None, 30)      token indices
//   (None, 30, 50)  after the embedding lookup
//   (None, 30, 64)  after the LSTM (full sequence, not just the last step)
//   (None, 28, 32)  after Conv1D with kernel 3
//   (None, 14, 32)  after MaxPooling1D with window 2
//   (None, 448)     after Flatten
//   (None, 1)       after Dense
//
// Forward always receives a concrete batch: the first axis of x is the
// number of samples.
//
// Gradients and training are not computed here. Weights carry a grad slot
// so that a compiled optimizer can apply updates computed elsewhere.
// ===========================================================================

// BatchDim marks the batch axis of a Shape, whose size is only known at run time.
const BatchDim = -1

// Shape is a tensor shape including the leading batch axis.
type Shape []int

// Rank returns the number of axes, batch axis included.
func (s Shape) Rank() int { return len(s) }

// String renders the shape the way model summaries usually print it.
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		if d == BatchDim {
			parts[i] = "None"
		} else {
			parts[i] = strconv.Itoa(d)
		}
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Stage is one transformation in a model pipeline.
type Stage interface {
	// Name is the instance name, unique within a model ("emb", "lstm", ...).
	Name() string

	// Kind is the layer type shown in summaries ("Embedding", "LSTM", ...).
	Kind() string

	// OutputShape computes the emitted shape for a given input shape, or
	// returns a *ShapeError if the input cannot be accepted.
	OutputShape(in Shape) (Shape, error)

	// ParamCount is the number of scalar weights the stage owns.
	ParamCount() int

	// Weights returns the stage's weight tensors (nil for stateless stages).
	Weights() []*Tensor

	// Trainable reports whether an optimizer may update the weights.
	Trainable() bool

	// Forward runs inference on a batch.
	Forward(x *Tensor) (*Tensor, error)
}

// countParams sums the element counts of a set of weight tensors.
func countParams(ws []*Tensor) int {
	n := 0
	for _, w := range ws {
		n += w.Size()
	}
	return n
}

// expectRank returns a *ShapeError if in does not have the given rank or has
// a non-positive non-batch axis.
func expectRank(stage string, in Shape, rank int) error {
	if in.Rank() != rank {
		return &ShapeError{Stage: stage, Input: in, Reason: "expected rank " + strconv.Itoa(rank)}
	}
	for i, d := range in[1:] {
		if d <= 0 {
			return &ShapeError{Stage: stage, Input: in, Reason: "axis " + strconv.Itoa(i+1) + " must be positive"}
		}
	}
	return nil
}

// checkBatch verifies that x matches the per-sample part of want and returns
// the batch size.
func checkBatch(stage string, want Shape, x *Tensor) (int, error) {
	got := Shape(x.Shape())
	if got.Rank() != want.Rank() || !shapeEqual(got[1:], want[1:]) {
		return 0, &ShapeError{Stage: stage, Input: got, Reason: "expected " + want.String()}
	}
	return got[0], nil
}
