package main

import (
	"fmt"
	"math"
)

// LSTMStage implements a long short-term memory layer.
//
// PAPER: "Long Short-Term Memory" by Hochreiter & Schmidhuber (1997)
//
// At every position t, with input x_t and previous state (h, c):
//
//   z = x_t·W + h·U + b          (W: dim×4u, U: u×4u, b: 4u)
//   i = σ(z[0:u])                input gate
//   f = σ(z[u:2u])               forget gate
//   g = tanh(z[2u:3u])           candidate cell
//   o = σ(z[3u:4u])              output gate
//   c = f⊙c + i⊙g
//   h = o⊙tanh(c)
//
// With returnSequences the stage emits h for every position, so the next
// stage sees a full sequence rather than a summary vector.
//
// Dropout and recurrent dropout only mask inputs during training. They are
// recorded here for the summary and for a training loop; Forward is
// inference and therefore deterministic.
type LSTMStage struct {
	name             string
	inputDim         int
	units            int
	dropout          float64
	recurrentDropout float64
	returnSequences  bool

	kernel    *Tensor // (inputDim, 4*units)
	recurrent *Tensor // (units, 4*units)
	bias      *Tensor // (4*units)
}

// NewLSTMStage creates an LSTM stage over inputDim features.
// Kernel is Glorot-uniform, recurrent kernel orthogonal, bias zero with the
// forget-gate slice set to one.
func NewLSTMStage(name string, inputDim, units int, dropout, recurrentDropout float64, returnSequences bool) *LSTMStage {
	kernel := NewTensor(inputDim, 4*units)
	glorotUniform(kernel, inputDim, 4*units)

	bias := NewTensor(4 * units)
	for j := units; j < 2*units; j++ {
		bias.data[j] = 1.0
	}

	return &LSTMStage{
		name:             name,
		inputDim:         inputDim,
		units:            units,
		dropout:          dropout,
		recurrentDropout: recurrentDropout,
		returnSequences:  returnSequences,
		kernel:           kernel,
		recurrent:        orthogonal(units, 4*units),
		bias:             bias,
	}
}

func (l *LSTMStage) Name() string { return l.name }
func (l *LSTMStage) Kind() string { return "LSTM" }

// Units is the size of the hidden state.
func (l *LSTMStage) Units() int { return l.units }

// Dropout returns the input and recurrent dropout rates.
func (l *LSTMStage) Dropout() (input, recurrent float64) { return l.dropout, l.recurrentDropout }

// ReturnSequences reports whether every position's hidden state is emitted.
func (l *LSTMStage) ReturnSequences() bool { return l.returnSequences }

func (l *LSTMStage) OutputShape(in Shape) (Shape, error) {
	if err := expectRank(l.name, in, 3); err != nil {
		return nil, err
	}
	if in[2] != l.inputDim {
		return nil, &ShapeError{Stage: l.name, Input: in, Reason: fmt.Sprintf("expected %d features", l.inputDim)}
	}
	if l.returnSequences {
		return Shape{BatchDim, in[1], l.units}, nil
	}
	return Shape{BatchDim, l.units}, nil
}

func (l *LSTMStage) ParamCount() int    { return countParams(l.Weights()) }
func (l *LSTMStage) Weights() []*Tensor { return []*Tensor{l.kernel, l.recurrent, l.bias} }
func (l *LSTMStage) Trainable() bool    { return true }

func (l *LSTMStage) Forward(x *Tensor) (*Tensor, error) {
	if x.Dims() != 3 || x.shape[2] != l.inputDim {
		return nil, &ShapeError{Stage: l.name, Input: Shape(x.Shape()), Reason: fmt.Sprintf("expected (batch, steps, %d)", l.inputDim)}
	}
	batch, steps := x.shape[0], x.shape[1]
	u, gates := l.units, 4*l.units

	var out *Tensor
	if l.returnSequences {
		out = NewTensor(batch, steps, u)
	} else {
		out = NewTensor(batch, u)
	}

	h := make([]float64, u)
	c := make([]float64, u)
	z := make([]float64, gates)

	for b := 0; b < batch; b++ {
		for j := range h {
			h[j], c[j] = 0, 0
		}

		for t := 0; t < steps; t++ {
			copy(z, l.bias.data)

			xt := x.data[(b*steps+t)*l.inputDim : (b*steps+t+1)*l.inputDim]
			for k, xv := range xt {
				row := l.kernel.data[k*gates : (k+1)*gates]
				for j := range z {
					z[j] += xv * row[j]
				}
			}
			for k, hv := range h {
				row := l.recurrent.data[k*gates : (k+1)*gates]
				for j := range z {
					z[j] += hv * row[j]
				}
			}

			for j := 0; j < u; j++ {
				i := sigmoid(z[j])
				f := sigmoid(z[u+j])
				g := math.Tanh(z[2*u+j])
				o := sigmoid(z[3*u+j])
				c[j] = f*c[j] + i*g
				h[j] = o * math.Tanh(c[j])
			}

			if l.returnSequences {
				copy(out.data[(b*steps+t)*u:(b*steps+t+1)*u], h)
			}
		}

		if !l.returnSequences {
			copy(out.data[b*u:(b+1)*u], h)
		}
	}

	return out, nil
}
