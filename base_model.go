package main

import "log/slog"

// ModelBuilder is implemented by every architecture that can be assembled
// from a pretrained embedding matrix, a fixed sequence length and a
// hyperparameter set. A successful call leaves the compiled model in the
// implementation's model slot and returns it.
type ModelBuilder interface {
	BuildModel(embedding *Tensor, seqLen int, params Params) (*Model, error)
}

// BaseModel carries what every architecture shares: a name and the slot
// holding the most recently built model. Architectures embed it and add a
// BuildModel method.
type BaseModel struct {
	name   string
	model  *Model
	logger *slog.Logger
}

// Option configures a BaseModel.
type Option func(*BaseModel)

// WithLogger sets the logger used for build diagnostics. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *BaseModel) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func newBaseModel(name string, opts ...Option) BaseModel {
	b := BaseModel{name: name, logger: slog.Default()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name is the model name. It also names the built Model.
func (b *BaseModel) Name() string { return b.name }

// Model returns the most recently built model, or nil before the first
// successful build.
func (b *BaseModel) Model() *Model { return b.model }

func (b *BaseModel) setModel(m *Model) { b.model = m }
