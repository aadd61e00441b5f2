package main

import (
	"errors"
	"fmt"
)

// ErrConfig is the sentinel for configuration problems: a missing or
// invalid hyperparameter, an unknown loss/optimizer/metric/activation name,
// or a non-positive sequence length.
var ErrConfig = errors.New("model: configuration error")

// ConfigError describes one configuration problem. It matches ErrConfig
// under errors.Is.
type ConfigError struct {
	Key    string // hyperparameter key, e.g. "LSTM_num_neurons"
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ConfigErrors collects every problem found while validating a parameter
// set so the caller can fix them in one pass.
type ConfigErrors []*ConfigError

func (es ConfigErrors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	msg := fmt.Sprintf("%d configuration errors:", len(es))
	for _, e := range es {
		msg += "\n  - " + e.Error()
	}
	return msg
}

func (es ConfigErrors) Is(target error) bool {
	return target == ErrConfig && len(es) > 0
}

// Keys returns the offending keys in the order they were found.
func (es ConfigErrors) Keys() []string {
	keys := make([]string, len(es))
	for i, e := range es {
		keys[i] = e.Key
	}
	return keys
}

// ShapeError reports that a stage cannot accept the shape produced by the
// stage before it. It wraps ErrShapeMismatch.
type ShapeError struct {
	Stage  string
	Input  Shape
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("stage %q: input %s: %s", e.Stage, e.Input, e.Reason)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
