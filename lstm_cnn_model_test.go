package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildExample(t *testing.T) (*LSTMCNNModel, *Model) {
	t.Helper()
	builder := NewLSTMCNNModel("lstm_cnn")
	model, err := builder.BuildModel(NewTensorRand(100, 50), 30, exampleParams())
	require.NoError(t, err)
	return builder, model
}

func TestLSTMCNNModel_BuildModel(t *testing.T) {
	t.Parallel()

	builder, model := buildExample(t)
	require.Same(t, model, builder.Model())
	assert.Equal(t, "lstm_cnn", builder.Name())
	assert.Equal(t, "lstm_cnn", model.Name())

	var kinds, names []string
	for _, s := range model.Stages() {
		kinds = append(kinds, s.Kind())
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"Embedding", "LSTM", "Conv1D", "MaxPooling1D", "Flatten", "Dense"}, kinds)
	assert.Equal(t, []string{"emb", "lstm", "conv1d", "max_pooling1d", "flatten", "dense"}, names)

	wantShapes := []Shape{
		{BatchDim, 30, 50},
		{BatchDim, 30, 64},
		{BatchDim, 28, 32},
		{BatchDim, 14, 32},
		{BatchDim, 448},
		{BatchDim, 1},
	}
	var gotShapes []Shape
	for i := 0; i < model.Len(); i++ {
		gotShapes = append(gotShapes, model.StageOutputShape(i))
	}
	if diff := cmp.Diff(wantShapes, gotShapes); diff != "" {
		t.Errorf("stage output shapes mismatch (-want +got):\n%s", diff)
	}

	wantParams := []int{5000, 29440, 6176, 0, 0, 449}
	for i, s := range model.Stages() {
		assert.Equal(t, wantParams[i], s.ParamCount(), s.Name())
	}
	assert.Equal(t, 41065, model.ParamCount())
	assert.Equal(t, 36065, model.TrainableParamCount())
}

func TestLSTMCNNModel_StageConfiguration(t *testing.T) {
	t.Parallel()

	_, model := buildExample(t)

	emb := model.Stage("emb").(*EmbeddingStage)
	assert.Equal(t, 50, emb.Dim())
	assert.Equal(t, 100, emb.VocabSize())
	assert.False(t, emb.Trainable())

	lstm := model.Stage("lstm").(*LSTMStage)
	assert.Equal(t, 64, lstm.Units())
	assert.True(t, lstm.ReturnSequences())
	in, rec := lstm.Dropout()
	assert.Equal(t, 0.2, in)
	assert.Equal(t, 0.2, rec)

	// The convolution sees the full sequence, not a summary vector.
	assert.Equal(t, 3, model.StageInputShape(2).Rank())

	conv := model.Stage("conv1d").(*Conv1DStage)
	assert.Equal(t, 32, conv.Filters())
	assert.Equal(t, 3, conv.KernelSize())
	assert.Equal(t, "relu", conv.Activation().Name)

	pool := model.Stage("max_pooling1d").(*MaxPooling1DStage)
	assert.Equal(t, 2, pool.PoolSize())

	dense := model.Stage("dense").(*DenseStage)
	assert.Equal(t, 1, dense.Units())
	assert.Equal(t, "sigmoid", dense.Activation().Name)
}

func TestLSTMCNNModel_Compiled(t *testing.T) {
	t.Parallel()

	_, model := buildExample(t)
	require.True(t, model.Compiled())

	c := model.Compilation()
	assert.Equal(t, "binary_crossentropy", c.Loss.Name)
	assert.Equal(t, "adam", c.OptimizerID)
	assert.IsType(t, &AdamOptimizer{}, c.Optimizer)
	assert.Equal(t, 0.001, c.LearningRate)
	require.Len(t, c.Metrics, 1)
	assert.Equal(t, "accuracy", c.Metrics[0].Name)
}

func TestLSTMCNNModel_EmbeddingIsCopied(t *testing.T) {
	t.Parallel()

	matrix := NewTensorRand(10, 4)
	before := matrix.At(3, 2)

	builder := NewLSTMCNNModel("m")
	model, err := builder.BuildModel(matrix, 8, exampleParams())
	require.NoError(t, err)

	emb := model.Stage("emb").(*EmbeddingStage)
	emb.table.Set(42, 3, 2)
	assert.Equal(t, before, matrix.At(3, 2))
}

func TestLSTMCNNModel_RebuildReplacesModel(t *testing.T) {
	t.Parallel()

	builder, first := buildExample(t)

	params := exampleParams()
	params.LSTMNumNeurons = 16
	params.Optimizer = "sgd"
	second, err := builder.BuildModel(NewTensorRand(20, 8), 12, params)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Same(t, second, builder.Model())

	// The earlier model is untouched.
	assert.Equal(t, 64, first.Stage("lstm").(*LSTMStage).Units())
	assert.Equal(t, "adam", first.Compilation().OptimizerID)
	assert.Equal(t, Shape{BatchDim, 30}, first.InputShape())

	assert.Equal(t, 16, second.Stage("lstm").(*LSTMStage).Units())
	assert.Equal(t, Shape{BatchDim, 12}, second.InputShape())
}

func TestLSTMCNNModel_FailedBuildKeepsPreviousModel(t *testing.T) {
	t.Parallel()

	builder, first := buildExample(t)

	params := exampleParams()
	params.CNNKernelSize = 31
	_, err := builder.BuildModel(NewTensorRand(100, 50), 30, params)
	require.Error(t, err)

	assert.Same(t, first, builder.Model())
}

func TestLSTMCNNModel_MissingParamFailsBeforeAnyStage(t *testing.T) {
	t.Parallel()

	for _, key := range RequiredKeys() {
		p := exampleParams()
		zeroField(&p, key)

		builder := NewLSTMCNNModel("m")
		model, err := builder.BuildModel(NewTensorRand(100, 50), 30, p)
		require.Error(t, err, key)
		assert.ErrorIs(t, err, ErrConfig, key)
		assert.Nil(t, model, key)
		assert.Nil(t, builder.Model(), key)
	}
}

// zeroField resets the field behind key to its zero value.
func zeroField(p *Params, key string) {
	switch key {
	case KeyLSTMNumNeurons:
		p.LSTMNumNeurons = 0
	case KeyLSTMDropout:
		p.LSTMDropout = nil
	case KeyLSTMRecurrentDropout:
		p.LSTMRecurrentDropout = nil
	case KeyCNNFilters:
		p.CNNFilters = 0
	case KeyCNNKernelSize:
		p.CNNKernelSize = 0
	case KeyCNNActivation:
		p.CNNActivation = ""
	case KeyCNNPoolSize:
		p.CNNPoolSize = 0
	case KeyDenseActivation:
		p.DenseActivation = ""
	case KeyLoss:
		p.Loss = ""
	case KeyOptimizer:
		p.Optimizer = ""
	}
}

func TestLSTMCNNModel_OmittedRateFails(t *testing.T) {
	t.Parallel()

	p := Params{
		LSTMNumNeurons:       64,
		LSTMRecurrentDropout: Rate(0.2),
		CNNFilters:           32,
		CNNKernelSize:        3,
		CNNActivation:        "relu",
		CNNPoolSize:          2,
		DenseActivation:      "sigmoid",
		Loss:                 "binary_crossentropy",
		Optimizer:            "adam",
	}

	builder := NewLSTMCNNModel("m")
	model, err := builder.BuildModel(NewTensorRand(100, 50), 30, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Nil(t, model)
	assert.Nil(t, builder.Model())

	var errs ConfigErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, []string{KeyLSTMDropout}, errs.Keys())
	assert.Equal(t, "missing", errs[0].Reason)
}

func TestLSTMCNNModel_ShapeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		seqLen int
		mutate func(p *Params)
		stage  string
	}{
		{"kernel wider than sequence", 30, func(p *Params) { p.CNNKernelSize = 31 }, "conv1d"},
		{"pool larger than conv output", 30, func(p *Params) { p.CNNPoolSize = 29 }, "max_pooling1d"},
		{"short sequence", 2, func(p *Params) {}, "conv1d"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := exampleParams()
			tc.mutate(&params)

			_, err := NewLSTMCNNModel("m").BuildModel(NewTensorRand(100, 50), tc.seqLen, params)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrShapeMismatch)

			var shapeErr *ShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, tc.stage, shapeErr.Stage)
		})
	}
}

func TestLSTMCNNModel_BoundaryShapes(t *testing.T) {
	t.Parallel()

	// Kernel equal to the sequence length leaves one step, pool of one keeps it.
	params := exampleParams()
	params.CNNKernelSize = 5
	params.CNNPoolSize = 1

	model, err := NewLSTMCNNModel("m").BuildModel(NewTensorRand(10, 4), 5, params)
	require.NoError(t, err)
	assert.Equal(t, Shape{BatchDim, 1, 32}, model.StageOutputShape(3))
	assert.Equal(t, Shape{BatchDim, 32}, model.StageOutputShape(4))
}

func TestLSTMCNNModel_InvalidInputs(t *testing.T) {
	t.Parallel()

	builder := NewLSTMCNNModel("m")

	_, err := builder.BuildModel(NewTensor(10, 4, 2), 30, exampleParams())
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = builder.BuildModel(nil, 30, exampleParams())
	assert.ErrorIs(t, err, ErrInvalidShape)

	for _, seqLen := range []int{0, -3} {
		_, err = builder.BuildModel(NewTensorRand(10, 4), seqLen, exampleParams())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfig)

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "seq_len", cfgErr.Key)
	}

	assert.Nil(t, builder.Model())
}

func TestLSTMCNNModel_AlternativeLossAndOptimizer(t *testing.T) {
	t.Parallel()

	params := exampleParams()
	params.Loss = "mse"
	params.Optimizer = "rmsprop"
	params.DenseActivation = "linear"
	params.CNNActivation = "tanh"

	model, err := NewLSTMCNNModel("m").BuildModel(NewTensorRand(10, 4), 8, params)
	require.NoError(t, err)
	assert.Equal(t, "mse", model.Compilation().Loss.Name)
	assert.IsType(t, &RMSPropOptimizer{}, model.Compilation().Optimizer)
}

func TestLSTMCNNModel_LogsBuild(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	builder := NewLSTMCNNModel("logged", WithLogger(logger))
	_, err := builder.BuildModel(NewTensorRand(100, 50), 30, exampleParams())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Model built.")
	assert.Contains(t, out, "model=logged")
	assert.Contains(t, out, "params=41065")
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	t.Parallel()

	builder := NewLSTMCNNModel("m", WithLogger(nil))
	assert.NotNil(t, builder.logger)
}
