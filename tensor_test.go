package main

import (
	"errors"
	"math"
	"testing"
)

// TestTensorBasics tests basic tensor creation and access.
func TestTensorBasics(t *testing.T) {
	// Create a 2x3 matrix
	tensor := NewTensor(2, 3)

	if shape := tensor.Shape(); len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Errorf("expected shape [2 3], got %v", shape)
	}
	if tensor.Size() != 6 {
		t.Errorf("expected size 6, got %d", tensor.Size())
	}
	if tensor.Dims() != 2 {
		t.Errorf("expected 2 dims, got %d", tensor.Dims())
	}

	tensor.Set(1.5, 0, 0)
	tensor.Set(2.5, 1, 2)

	if v := tensor.At(0, 0); v != 1.5 {
		t.Errorf("expected 1.5, got %f", v)
	}
	if v := tensor.At(1, 2); v != 2.5 {
		t.Errorf("expected 2.5, got %f", v)
	}
}

// TestTensorShapeIsCopied checks that callers cannot mutate a tensor's shape.
func TestTensorShapeIsCopied(t *testing.T) {
	tensor := NewTensor(2, 3)
	shape := tensor.Shape()
	shape[0] = 99

	if got := tensor.Shape()[0]; got != 2 {
		t.Errorf("shape mutated through returned slice: got %d", got)
	}
}

// TestMatMul tests matrix multiplication.
func TestMatMul(t *testing.T) {
	a, _ := newTensorFromRows([][]float64{
		{1, 2, 3},
		{4, 5, 6},
	})
	b, _ := newTensorFromRows([][]float64{
		{1, 2},
		{3, 4},
		{5, 6},
	})

	// C = A @ B should be (2x2)
	c := MatMul(a, b)

	if shape := c.Shape(); len(shape) != 2 || shape[0] != 2 || shape[1] != 2 {
		t.Errorf("expected shape [2 2], got %v", shape)
	}

	// C[0,0] = 1*1 + 2*3 + 3*5 = 22
	// C[1,1] = 4*2 + 5*4 + 6*6 = 64
	expected := [][]float64{
		{22, 28},
		{49, 64},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if v := c.At(i, j); v != expected[i][j] {
				t.Errorf("C[%d,%d]: expected %f, got %f", i, j, expected[i][j], v)
			}
		}
	}
}

// TestTensorFromRows tests building a matrix from rows.
func TestTensorFromRows(t *testing.T) {
	m, err := newTensorFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := m.At(2, 1); v != 6 {
		t.Errorf("expected 6, got %f", v)
	}

	if _, err := newTensorFromRows([][]float64{{1, 2}, {3}}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("ragged rows: expected ErrInvalidShape, got %v", err)
	}
	if _, err := newTensorFromRows(nil); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("no rows: expected ErrInvalidShape, got %v", err)
	}
}

// TestNewTensorRand checks the spread of the random initializer.
func TestNewTensorRand(t *testing.T) {
	x := NewTensorRand(100, 50)

	var sum, sumSq float64
	for _, v := range x.data {
		sum += v
		sumSq += v * v
	}
	n := float64(x.Size())
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)

	if math.Abs(mean) > 0.005 {
		t.Errorf("mean should be close to 0, got %f", mean)
	}
	if math.Abs(std-0.02) > 0.005 {
		t.Errorf("std should be close to 0.02, got %f", std)
	}
}

// TestReshapeSharesData tests that Reshape returns a view.
func TestReshapeSharesData(t *testing.T) {
	x := NewTensor(2, 3, 4)
	y := x.Reshape(2, 12)
	y.Set(7, 1, 11)

	if v := x.At(1, 2, 3); v != 7 {
		t.Errorf("reshape should share data, got %f", v)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("reshape to a different size should panic")
		}
	}()
	x.Reshape(5, 5)
}

// TestGradients tests SetGrad, ZeroGrad and Clone.
func TestGradients(t *testing.T) {
	x := NewTensor(2, 2)
	if err := x.SetGrad([]float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := x.SetGrad([]float64{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}

	c := x.Clone()
	x.ZeroGrad()
	for i, g := range x.grad {
		if g != 0 {
			t.Errorf("grad[%d] should be 0, got %f", i, g)
		}
	}
	if c.grad[3] != 4 {
		t.Errorf("clone should keep its own gradient, got %f", c.grad[3])
	}
}

// TestApply tests element-wise application.
func TestApply(t *testing.T) {
	x, _ := newTensorFromRows([][]float64{{-2, -1, 1, 2}})
	out := Apply(x, func(v float64) float64 { return math.Max(v, 0) })

	want := []float64{0, 0, 1, 2}
	for i, w := range want {
		if v := out.At(0, i); v != w {
			t.Errorf("index %d: expected %f, got %f", i, w, v)
		}
	}
	if x.At(0, 0) != -2 {
		t.Errorf("Apply must not modify its input")
	}
}
