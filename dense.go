package main

import "fmt"

// DenseStage is a fully connected layer: out = act(x·W + b).
//
// Input:  (batch, inputDim)
// Output: (batch, units)
type DenseStage struct {
	name       string
	inputDim   int
	units      int
	activation Activation

	kernel *Tensor // (inputDim, units)
	bias   *Tensor // (units)
}

// NewDenseStage creates a fully connected stage.
func NewDenseStage(name string, inputDim, units int, activation Activation) *DenseStage {
	kernel := NewTensor(inputDim, units)
	glorotUniform(kernel, inputDim, units)

	return &DenseStage{
		name:       name,
		inputDim:   inputDim,
		units:      units,
		activation: activation,
		kernel:     kernel,
		bias:       NewTensor(units),
	}
}

func (d *DenseStage) Name() string { return d.name }
func (d *DenseStage) Kind() string { return "Dense" }

// Units is the number of outputs per sample.
func (d *DenseStage) Units() int { return d.units }

// Activation is the nonlinearity applied to each output.
func (d *DenseStage) Activation() Activation { return d.activation }

func (d *DenseStage) OutputShape(in Shape) (Shape, error) {
	if err := expectRank(d.name, in, 2); err != nil {
		return nil, err
	}
	if in[1] != d.inputDim {
		return nil, &ShapeError{Stage: d.name, Input: in, Reason: fmt.Sprintf("expected %d features", d.inputDim)}
	}
	return Shape{BatchDim, d.units}, nil
}

func (d *DenseStage) ParamCount() int    { return countParams(d.Weights()) }
func (d *DenseStage) Weights() []*Tensor { return []*Tensor{d.kernel, d.bias} }
func (d *DenseStage) Trainable() bool    { return true }

func (d *DenseStage) Forward(x *Tensor) (*Tensor, error) {
	if _, err := checkBatch(d.name, Shape{BatchDim, d.inputDim}, x); err != nil {
		return nil, err
	}

	out := MatMul(x, d.kernel)
	for i := range out.data {
		out.data[i] += d.bias.data[i%d.units]
	}
	return d.activation.Apply(out), nil
}
