package main

import (
	"fmt"
	"math"
)

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// Optimizers turn gradients into parameter updates. Compiling a model picks
// one by name and binds it to the model's trainable weights; the loop that
// computes gradients and calls Step lives outside this repository.
//
// Update rules (g = gradient, p = parameter, lr = learning rate):
//
//   sgd:      p -= lr * g
//   adam:     m = β1·m + (1-β1)·g ; v = β2·v + (1-β2)·g²
//             p -= lr * m̂ / (√v̂ + ε)       (m̂, v̂ bias-corrected)
//   rmsprop:  a = ρ·a + (1-ρ)·g² ; p -= lr * g / (√a + ε)
//   adagrad:  a += g² ; p -= lr * g / (√a + ε)
//
// Defaults follow the values most Keras users expect when they write
// optimizer="adam" and nothing else.
//
// RECOMMENDED READING:
// - "Adam: A Method for Stochastic Optimization" by Kingma & Ba (2014)
// - "Adaptive Subgradient Methods for Online Learning and Stochastic
//   Optimization" by Duchi, Hazan, Singer (2011)
// - Hinton, Coursera Lecture 6e (RMSprop)
// ===========================================================================

// Optimizer interface for different optimization algorithms.
type Optimizer interface {
	// Step performs a single optimization step.
	// Updates parameters using their gradients.
	Step(params []*Tensor, lr float64)

	// ZeroGrad clears all gradients.
	ZeroGrad(params []*Tensor)
}

// SGDOptimizer implements plain Stochastic Gradient Descent.
type SGDOptimizer struct{}

// NewSGDOptimizer creates an SGD optimizer.
func NewSGDOptimizer() *SGDOptimizer {
	return &SGDOptimizer{}
}

// Step updates parameters using SGD: param -= lr * grad.
func (opt *SGDOptimizer) Step(params []*Tensor, lr float64) {
	for _, p := range params {
		for i, g := range p.grad {
			p.data[i] -= lr * g
		}
	}
}

// ZeroGrad clears gradients.
func (opt *SGDOptimizer) ZeroGrad(params []*Tensor) { zeroGrads(params) }

// AdamOptimizer implements Adam optimization algorithm.
type AdamOptimizer struct {
	beta1   float64
	beta2   float64
	epsilon float64

	// State (one per parameter)
	m []*Tensor // First moment (momentum)
	v []*Tensor // Second moment (variance)
	t int       // Time step (for bias correction)
}

// NewAdamOptimizer creates an Adam optimizer with moment buffers shaped
// like params.
func NewAdamOptimizer(params []*Tensor, beta1, beta2, epsilon float64) *AdamOptimizer {
	return &AdamOptimizer{
		beta1:   beta1,
		beta2:   beta2,
		epsilon: epsilon,
		m:       zerosLike(params),
		v:       zerosLike(params),
	}
}

// Step performs Adam update.
func (opt *AdamOptimizer) Step(params []*Tensor, lr float64) {
	opt.t++

	// Bias correction factors
	bias1 := 1.0 - math.Pow(opt.beta1, float64(opt.t))
	bias2 := 1.0 - math.Pow(opt.beta2, float64(opt.t))

	for i, p := range params {
		m, v := opt.m[i].data, opt.v[i].data
		for j, grad := range p.grad {
			m[j] = opt.beta1*m[j] + (1.0-opt.beta1)*grad
			v[j] = opt.beta2*v[j] + (1.0-opt.beta2)*grad*grad

			mHat := m[j] / bias1
			vHat := v[j] / bias2

			p.data[j] -= lr * mHat / (math.Sqrt(vHat) + opt.epsilon)
		}
	}
}

// ZeroGrad clears gradients.
func (opt *AdamOptimizer) ZeroGrad(params []*Tensor) { zeroGrads(params) }

// RMSPropOptimizer scales each update by a running average of squared gradients.
type RMSPropOptimizer struct {
	rho     float64
	epsilon float64
	acc     []*Tensor
}

// NewRMSPropOptimizer creates an RMSprop optimizer.
func NewRMSPropOptimizer(params []*Tensor, rho, epsilon float64) *RMSPropOptimizer {
	return &RMSPropOptimizer{rho: rho, epsilon: epsilon, acc: zerosLike(params)}
}

// Step performs an RMSprop update.
func (opt *RMSPropOptimizer) Step(params []*Tensor, lr float64) {
	for i, p := range params {
		a := opt.acc[i].data
		for j, g := range p.grad {
			a[j] = opt.rho*a[j] + (1-opt.rho)*g*g
			p.data[j] -= lr * g / (math.Sqrt(a[j]) + opt.epsilon)
		}
	}
}

// ZeroGrad clears gradients.
func (opt *RMSPropOptimizer) ZeroGrad(params []*Tensor) { zeroGrads(params) }

// AdagradOptimizer accumulates squared gradients over the whole run.
type AdagradOptimizer struct {
	epsilon float64
	acc     []*Tensor
}

// NewAdagradOptimizer creates an Adagrad optimizer whose accumulators start
// at initialAccumulator.
func NewAdagradOptimizer(params []*Tensor, initialAccumulator, epsilon float64) *AdagradOptimizer {
	acc := zerosLike(params)
	for _, a := range acc {
		for j := range a.data {
			a.data[j] = initialAccumulator
		}
	}
	return &AdagradOptimizer{epsilon: epsilon, acc: acc}
}

// Step performs an Adagrad update.
func (opt *AdagradOptimizer) Step(params []*Tensor, lr float64) {
	for i, p := range params {
		a := opt.acc[i].data
		for j, g := range p.grad {
			a[j] += g * g
			p.data[j] -= lr * g / (math.Sqrt(a[j]) + opt.epsilon)
		}
	}
}

// ZeroGrad clears gradients.
func (opt *AdagradOptimizer) ZeroGrad(params []*Tensor) { zeroGrads(params) }

// optimizerFactory builds an optimizer bound to a parameter set.
type optimizerFactory struct {
	learningRate float64
	build        func(params []*Tensor) Optimizer
}

var optimizers = map[string]optimizerFactory{
	"sgd": {0.01, func([]*Tensor) Optimizer { return NewSGDOptimizer() }},
	"adam": {0.001, func(p []*Tensor) Optimizer {
		return NewAdamOptimizer(p, 0.9, 0.999, 1e-7)
	}},
	"rmsprop": {0.001, func(p []*Tensor) Optimizer {
		return NewRMSPropOptimizer(p, 0.9, 1e-7)
	}},
	"adagrad": {0.001, func(p []*Tensor) Optimizer {
		return NewAdagradOptimizer(p, 0.1, 1e-7)
	}},
}

// NewOptimizer resolves an optimizer by name, binds it to params and
// returns it with its default learning rate.
func NewOptimizer(name string, params []*Tensor) (Optimizer, float64, error) {
	f, ok := optimizers[name]
	if !ok {
		return nil, 0, &ConfigError{Key: "optimizer", Reason: fmt.Sprintf("unknown optimizer %q (known: %v)", name, OptimizerNames())}
	}
	return f.build(params), f.learningRate, nil
}

// OptimizerNames lists the supported optimizer names in sorted order.
func OptimizerNames() []string { return sortedKeys(optimizers) }

func zerosLike(params []*Tensor) []*Tensor {
	out := make([]*Tensor, len(params))
	for i, p := range params {
		out[i] = NewTensor(p.shape...)
	}
	return out
}

func zeroGrads(params []*Tensor) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
