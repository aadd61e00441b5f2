package main

import (
	"fmt"
	"math"
)

// EmbeddingStage maps token indices to dense vectors through a lookup table
// initialized from a pretrained matrix (for example GloVe vectors).
//
// The table is a private copy of the caller's matrix and is frozen: it is
// excluded from the trainable weights handed to the optimizer.
//
// Input:  (batch, seqLen) token indices stored as float64
// Output: (batch, seqLen, dim)
type EmbeddingStage struct {
	name   string
	vocab  int
	dim    int
	seqLen int
	table  *Tensor // (vocab, dim)
}

// NewEmbeddingStage creates an embedding stage from a (vocab, dim) matrix.
func NewEmbeddingStage(name string, matrix *Tensor, seqLen int) (*EmbeddingStage, error) {
	if matrix == nil || matrix.Dims() != 2 {
		return nil, fmt.Errorf("%w: embedding matrix must be 2D, got %v", ErrInvalidShape, shapeOf(matrix))
	}
	if seqLen <= 0 {
		return nil, &ConfigError{Key: "seq_len", Reason: fmt.Sprintf("must be positive, got %d", seqLen)}
	}

	return &EmbeddingStage{
		name:   name,
		vocab:  matrix.shape[0],
		dim:    matrix.shape[1],
		seqLen: seqLen,
		table:  matrix.Clone(),
	}, nil
}

func (e *EmbeddingStage) Name() string { return e.name }
func (e *EmbeddingStage) Kind() string { return "Embedding" }

// VocabSize is the number of rows in the lookup table.
func (e *EmbeddingStage) VocabSize() int { return e.vocab }

// Dim is the embedding dimensionality.
func (e *EmbeddingStage) Dim() int { return e.dim }

func (e *EmbeddingStage) OutputShape(in Shape) (Shape, error) {
	if err := expectRank(e.name, in, 2); err != nil {
		return nil, err
	}
	if in[1] != e.seqLen {
		return nil, &ShapeError{Stage: e.name, Input: in, Reason: fmt.Sprintf("expected input length %d", e.seqLen)}
	}
	return Shape{BatchDim, e.seqLen, e.dim}, nil
}

func (e *EmbeddingStage) ParamCount() int    { return e.table.Size() }
func (e *EmbeddingStage) Weights() []*Tensor { return []*Tensor{e.table} }
func (e *EmbeddingStage) Trainable() bool    { return false }

func (e *EmbeddingStage) Forward(x *Tensor) (*Tensor, error) {
	batch, err := checkBatch(e.name, Shape{BatchDim, e.seqLen}, x)
	if err != nil {
		return nil, err
	}

	out := NewTensor(batch, e.seqLen, e.dim)
	for i, v := range x.data {
		id := int(v)
		if float64(id) != v || math.IsNaN(v) || id < 0 || id >= e.vocab {
			return nil, fmt.Errorf("%w: token %v at position %d outside vocabulary [0,%d)", ErrInvalidIndex, v, i, e.vocab)
		}
		copy(out.data[i*e.dim:(i+1)*e.dim], e.table.data[id*e.dim:(id+1)*e.dim])
	}
	return out, nil
}

func shapeOf(t *Tensor) []int {
	if t == nil {
		return nil
	}
	return t.Shape()
}
