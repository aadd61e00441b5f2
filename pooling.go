package main

import (
	"fmt"
	"math"
)

// MaxPooling1DStage keeps the maximum of each non-overlapping window along
// the time axis (stride equals the window, trailing positions that do not
// fill a window are dropped).
//
// Input:  (batch, steps, channels)
// Output: (batch, (steps-poolSize)/poolSize+1, channels)
type MaxPooling1DStage struct {
	name     string
	poolSize int
}

// NewMaxPooling1DStage creates a pooling stage with the given window.
func NewMaxPooling1DStage(name string, poolSize int) *MaxPooling1DStage {
	return &MaxPooling1DStage{name: name, poolSize: poolSize}
}

func (p *MaxPooling1DStage) Name() string { return p.name }
func (p *MaxPooling1DStage) Kind() string { return "MaxPooling1D" }

// PoolSize is the window (and stride) length.
func (p *MaxPooling1DStage) PoolSize() int { return p.poolSize }

func (p *MaxPooling1DStage) OutputShape(in Shape) (Shape, error) {
	if err := expectRank(p.name, in, 3); err != nil {
		return nil, err
	}
	if in[1] < p.poolSize {
		return nil, &ShapeError{Stage: p.name, Input: in, Reason: fmt.Sprintf("pool size %d exceeds sequence length %d", p.poolSize, in[1])}
	}
	return Shape{BatchDim, (in[1]-p.poolSize)/p.poolSize + 1, in[2]}, nil
}

func (p *MaxPooling1DStage) ParamCount() int    { return 0 }
func (p *MaxPooling1DStage) Weights() []*Tensor { return nil }
func (p *MaxPooling1DStage) Trainable() bool    { return false }

func (p *MaxPooling1DStage) Forward(x *Tensor) (*Tensor, error) {
	if x.Dims() != 3 {
		return nil, &ShapeError{Stage: p.name, Input: Shape(x.Shape()), Reason: "expected (batch, steps, channels)"}
	}
	outShape, err := p.OutputShape(Shape{BatchDim, x.shape[1], x.shape[2]})
	if err != nil {
		return nil, err
	}

	batch, steps, ch := x.shape[0], x.shape[1], x.shape[2]
	outSteps := outShape[1]
	out := NewTensor(batch, outSteps, ch)

	for b := 0; b < batch; b++ {
		for t := 0; t < outSteps; t++ {
			dst := out.data[(b*outSteps+t)*ch : (b*outSteps+t+1)*ch]
			for c := range dst {
				dst[c] = math.Inf(-1)
			}
			for k := 0; k < p.poolSize; k++ {
				src := x.data[(b*steps+t*p.poolSize+k)*ch : (b*steps+t*p.poolSize+k+1)*ch]
				for c, v := range src {
					if v > dst[c] {
						dst[c] = v
					}
				}
			}
		}
	}

	return out, nil
}

// FlattenStage collapses every non-batch axis into one.
type FlattenStage struct {
	name string
}

// NewFlattenStage creates a flatten stage.
func NewFlattenStage(name string) *FlattenStage {
	return &FlattenStage{name: name}
}

func (f *FlattenStage) Name() string { return f.name }
func (f *FlattenStage) Kind() string { return "Flatten" }

func (f *FlattenStage) OutputShape(in Shape) (Shape, error) {
	if in.Rank() < 2 {
		return nil, &ShapeError{Stage: f.name, Input: in, Reason: "expected at least one non-batch axis"}
	}
	n := 1
	for _, d := range in[1:] {
		if d <= 0 {
			return nil, &ShapeError{Stage: f.name, Input: in, Reason: "non-batch axes must be known and positive"}
		}
		n *= d
	}
	return Shape{BatchDim, n}, nil
}

func (f *FlattenStage) ParamCount() int    { return 0 }
func (f *FlattenStage) Weights() []*Tensor { return nil }
func (f *FlattenStage) Trainable() bool    { return false }

func (f *FlattenStage) Forward(x *Tensor) (*Tensor, error) {
	if x.Dims() < 2 {
		return nil, &ShapeError{Stage: f.name, Input: Shape(x.Shape()), Reason: "expected (batch, ...)"}
	}
	batch := x.shape[0]
	return x.Reshape(batch, x.Size()/batch), nil
}
