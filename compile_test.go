package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoss_Compute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"binary_crossentropy", []float64{1, 0}, []float64{0.5, 0.5}, math.Ln2},
		{"binary_crossentropy", []float64{1}, []float64{1}, -math.Log(1 - lossEpsilon)},
		{"mse", []float64{1, 0}, []float64{0.5, 0.5}, 0.25},
		{"mean_squared_error", []float64{2}, []float64{0}, 4},
		{"mae", []float64{1, 0}, []float64{0.25, 0.5}, 0.625},
		{"hinge", []float64{1, 0}, []float64{0.5, -2}, 0.25},
		{"squared_hinge", []float64{1}, []float64{0.5}, 0.25},
		{"logcosh", []float64{0}, []float64{0}, 0},
	}

	for _, tc := range tests {
		loss, err := LookupLoss(tc.name)
		require.NoError(t, err, tc.name)

		got, err := loss.Compute(tc.yTrue, tc.yPred)
		require.NoError(t, err, tc.name)
		assert.InDelta(t, tc.want, got, 1e-9, tc.name)
	}
}

func TestLoss_CrossEntropyClipsToFinite(t *testing.T) {
	t.Parallel()

	loss, err := LookupLoss("binary_crossentropy")
	require.NoError(t, err)

	got, err := loss.Compute([]float64{1}, []float64{0})
	require.NoError(t, err)
	assert.False(t, math.IsInf(got, 0))
	assert.InDelta(t, -math.Log(lossEpsilon), got, 1e-6)
}

func TestLoss_LogcoshLargeErrorStaysFinite(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1000-math.Ln2, logcosh(0, 1000), 1e-6)
}

func TestLoss_LengthMismatch(t *testing.T) {
	t.Parallel()

	loss, err := LookupLoss("mse")
	require.NoError(t, err)

	_, err = loss.Compute([]float64{1, 0}, []float64{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = loss.Compute(nil, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestLookupLoss_Unknown(t *testing.T) {
	t.Parallel()

	_, err := LookupLoss("categorical_magic")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "loss", cfgErr.Key)
}

func TestMetric_Accuracy(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"accuracy", "acc", "binary_accuracy"} {
		m, err := LookupMetric(name)
		require.NoError(t, err)

		got, err := m.Compute([]float64{1, 0, 1, 0}, []float64{0.9, 0.2, 0.4, 0.5})
		require.NoError(t, err)
		// 0.5 is not above the threshold, so it counts as class 0.
		assert.InDelta(t, 0.75, got, 1e-12, name)
	}
}

func TestLookupMetric_Unknown(t *testing.T) {
	t.Parallel()

	_, err := LookupMetric("f1")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestConfigErrors(t *testing.T) {
	t.Parallel()

	errs := ConfigErrors{
		{Key: "a", Reason: "missing"},
		{Key: "b", Reason: "bad"},
	}
	assert.ErrorIs(t, errs, ErrConfig)
	assert.Equal(t, []string{"a", "b"}, errs.Keys())
	assert.Contains(t, errs.Error(), "2 configuration errors")
	assert.Contains(t, errs.Error(), "b: bad")

	var none ConfigErrors
	assert.NotErrorIs(t, none, ErrConfig)
}
