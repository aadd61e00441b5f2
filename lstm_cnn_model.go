package main

import (
	"fmt"
)

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// LSTMCNNModel is a binary text classifier (tweet sentiment, for example)
// built from six stages in a fixed order:
//
//   1. Embedding     word indices -> pretrained word vectors
//   2. LSTM          global context: every position gets a new
//                    representation that depends on everything before it.
//                    The full sequence is kept so the next stage still has
//                    a time axis to slide over.
//   3. Conv1D        local features over windows of kernel_size positions
//   4. MaxPooling1D  keeps the strongest response per window, shrinking the
//                    sequence by pool_size
//   5. Flatten       one feature vector per sample
//   6. Dense(1)      probability that the sample belongs to the first class
//
// followed by compiling against the requested loss and optimizer with
// accuracy as the monitored metric.
//
// Checks run in order: hyperparameters first (a missing or invalid key fails
// without constructing a single stage), then the embedding matrix rank and
// the sequence length, then each stage's input shape as it is appended. A
// kernel wider than the sequence or a pool window larger than what the
// convolution leaves is a *ShapeError; the stages built up to that point
// are discarded with the half-assembled model.
//
// Only one recurrent layer is used even though the architecture name might
// suggest a deeper stack.
// ===========================================================================

// LSTMCNNModel builds the embedding -> LSTM -> Conv1D -> pooling -> dense
// classifier.
type LSTMCNNModel struct {
	BaseModel
}

var _ ModelBuilder = (*LSTMCNNModel)(nil)

// NewLSTMCNNModel creates an unbuilt model with the given name.
func NewLSTMCNNModel(name string, opts ...Option) *LSTMCNNModel {
	return &LSTMCNNModel{BaseModel: newBaseModel(name, opts...)}
}

// BuildModel assembles and compiles the model and stores it in the model
// slot, replacing any earlier model. Models returned by earlier calls stay
// valid. On error the slot is left as it was.
func (m *LSTMCNNModel) BuildModel(embedding *Tensor, seqLen int, params Params) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if embedding == nil || embedding.Dims() != 2 {
		return nil, fmt.Errorf("%w: embedding matrix must be 2D, got %v", ErrInvalidShape, shapeOf(embedding))
	}
	if seqLen <= 0 {
		return nil, &ConfigError{Key: "seq_len", Reason: fmt.Sprintf("must be positive, got %d", seqLen)}
	}

	// Names were checked by Validate.
	cnnActivation, _ := LookupActivation(params.CNNActivation)
	denseActivation, _ := LookupActivation(params.DenseActivation)

	model := NewModel(m.name, Shape{BatchDim, seqLen})

	emb, err := NewEmbeddingStage("emb", embedding, seqLen)
	if err != nil {
		return nil, err
	}
	if err := model.Add(emb); err != nil {
		return nil, err
	}

	lstm := NewLSTMStage("lstm", model.OutputShape()[2],
		params.LSTMNumNeurons, *params.LSTMDropout, *params.LSTMRecurrentDropout, true)
	if err := model.Add(lstm); err != nil {
		return nil, err
	}

	conv := NewConv1DStage("conv1d", model.OutputShape()[2],
		params.CNNFilters, params.CNNKernelSize, cnnActivation)
	if err := model.Add(conv); err != nil {
		return nil, err
	}

	if err := model.Add(NewMaxPooling1DStage("max_pooling1d", params.CNNPoolSize)); err != nil {
		return nil, err
	}
	if err := model.Add(NewFlattenStage("flatten")); err != nil {
		return nil, err
	}

	dense := NewDenseStage("dense", model.OutputShape()[1], 1, denseActivation)
	if err := model.Add(dense); err != nil {
		return nil, err
	}

	if err := model.Compile(params.Loss, params.Optimizer, "accuracy"); err != nil {
		return nil, err
	}

	m.setModel(model)
	m.logger.Debug("Model built.",
		"model", m.name,
		"stages", model.Len(),
		"output_shape", model.OutputShape().String(),
		"params", model.ParamCount(),
		"trainable_params", model.TrainableParamCount())

	return model, nil
}
