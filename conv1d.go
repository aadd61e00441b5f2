package main

import "fmt"

// Conv1DStage slides a bank of learned filters along the time axis
// (stride 1, no padding) and applies an activation:
//
//   out[t, f] = act(b[f] + Σ_k Σ_c x[t+k, c] · W[k, c, f])
//
// Input:  (batch, steps, channels)
// Output: (batch, steps-kernelSize+1, filters)
type Conv1DStage struct {
	name       string
	channels   int
	filters    int
	kernelSize int
	activation Activation

	kernel *Tensor // (kernelSize, channels, filters)
	bias   *Tensor // (filters)
}

// NewConv1DStage creates a convolution over inputs with the given channel count.
func NewConv1DStage(name string, channels, filters, kernelSize int, activation Activation) *Conv1DStage {
	kernel := NewTensor(kernelSize, channels, filters)
	glorotUniform(kernel, kernelSize*channels, kernelSize*filters)

	return &Conv1DStage{
		name:       name,
		channels:   channels,
		filters:    filters,
		kernelSize: kernelSize,
		activation: activation,
		kernel:     kernel,
		bias:       NewTensor(filters),
	}
}

func (c *Conv1DStage) Name() string { return c.name }
func (c *Conv1DStage) Kind() string { return "Conv1D" }

// Filters is the number of output channels.
func (c *Conv1DStage) Filters() int { return c.filters }

// KernelSize is the filter width along the time axis.
func (c *Conv1DStage) KernelSize() int { return c.kernelSize }

// Activation is the nonlinearity applied to each feature.
func (c *Conv1DStage) Activation() Activation { return c.activation }

func (c *Conv1DStage) OutputShape(in Shape) (Shape, error) {
	if err := expectRank(c.name, in, 3); err != nil {
		return nil, err
	}
	if in[2] != c.channels {
		return nil, &ShapeError{Stage: c.name, Input: in, Reason: fmt.Sprintf("expected %d channels", c.channels)}
	}
	steps := in[1] - c.kernelSize + 1
	if steps < 1 {
		return nil, &ShapeError{Stage: c.name, Input: in, Reason: fmt.Sprintf("kernel size %d exceeds sequence length %d", c.kernelSize, in[1])}
	}
	return Shape{BatchDim, steps, c.filters}, nil
}

func (c *Conv1DStage) ParamCount() int    { return countParams(c.Weights()) }
func (c *Conv1DStage) Weights() []*Tensor { return []*Tensor{c.kernel, c.bias} }
func (c *Conv1DStage) Trainable() bool    { return true }

func (c *Conv1DStage) Forward(x *Tensor) (*Tensor, error) {
	if x.Dims() != 3 {
		return nil, &ShapeError{Stage: c.name, Input: Shape(x.Shape()), Reason: "expected (batch, steps, channels)"}
	}
	outShape, err := c.OutputShape(Shape{BatchDim, x.shape[1], x.shape[2]})
	if err != nil {
		return nil, err
	}

	batch, steps := x.shape[0], x.shape[1]
	outSteps, ch, nf := outShape[1], c.channels, c.filters
	out := NewTensor(batch, outSteps, nf)

	for b := 0; b < batch; b++ {
		for t := 0; t < outSteps; t++ {
			acc := out.data[(b*outSteps+t)*nf : (b*outSteps+t+1)*nf]
			copy(acc, c.bias.data)

			for k := 0; k < c.kernelSize; k++ {
				xt := x.data[(b*steps+t+k)*ch : (b*steps+t+k+1)*ch]
				for ci, xv := range xt {
					w := c.kernel.data[(k*ch+ci)*nf : (k*ch+ci+1)*nf]
					for f := range acc {
						acc[f] += xv * w[f]
					}
				}
			}

			for f := range acc {
				acc[f] = c.activation.Eval(acc[f])
			}
		}
	}

	return out, nil
}
