package main

import (
	"math"
	"math/rand"
)

// Weight initializers. Randomness comes from the package-level math/rand
// source; there is no seeding knob on the builder.

// glorotUniform fills t from U(-limit, limit) with limit = sqrt(6 / (fanIn + fanOut)).
//
// PAPER: "Understanding the difficulty of training deep feedforward neural
// networks" by Glorot & Bengio (2010)
func glorotUniform(t *Tensor, fanIn, fanOut int) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range t.data {
		t.data[i] = (2*rand.Float64() - 1) * limit
	}
}

// orthogonal returns a (rows, cols) matrix whose rows (if rows <= cols) or
// columns (otherwise) are orthonormal. Used for recurrent kernels so that
// repeated multiplication by the recurrent matrix neither explodes nor
// vanishes at initialization.
//
// PAPER: "Exact solutions to the nonlinear dynamics of learning in deep
// linear neural networks" by Saxe, McClelland, Ganguli (2013)
func orthogonal(rows, cols int) *Tensor {
	n, dim := rows, cols
	if rows > cols {
		n, dim = cols, rows
	}

	vecs := make([][]float64, n)
	for i := range vecs {
		for {
			v := make([]float64, dim)
			for j := range v {
				v[j] = rand.NormFloat64()
			}

			// Modified Gram-Schmidt against the vectors accepted so far
			for _, u := range vecs[:i] {
				dot := 0.0
				for j := range v {
					dot += v[j] * u[j]
				}
				for j := range v {
					v[j] -= dot * u[j]
				}
			}

			norm := 0.0
			for _, x := range v {
				norm += x * x
			}
			norm = math.Sqrt(norm)
			if norm < 1e-8 {
				continue // degenerate draw, try again
			}
			for j := range v {
				v[j] /= norm
			}
			vecs[i] = v
			break
		}
	}

	out := NewTensor(rows, cols)
	for i, v := range vecs {
		for j, x := range v {
			if rows <= cols {
				out.data[i*cols+j] = x
			} else {
				out.data[j*cols+i] = x
			}
		}
	}
	return out
}
