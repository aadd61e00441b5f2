package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Model is an ordered pipeline of stages with fixed shapes, optionally
// bound to a loss, an optimizer and metrics by Compile.
//
// Model is not safe for concurrent use.
type Model struct {
	name     string
	input    Shape
	stages   []Stage
	shapes   []Shape // shapes[i] is the output shape of stages[i]
	compiled *Compilation
}

// NewModel creates an empty model accepting inputs of the given shape
// (batch axis included).
func NewModel(name string, input Shape) *Model {
	return &Model{name: name, input: append(Shape(nil), input...)}
}

// Add appends a stage after checking that it accepts the current output
// shape. On error the model is left unchanged.
func (m *Model) Add(s Stage) error {
	if m.compiled != nil {
		return fmt.Errorf("model %q: cannot add stage %q to a compiled model", m.name, s.Name())
	}
	for _, existing := range m.stages {
		if existing.Name() == s.Name() {
			return fmt.Errorf("model %q: duplicate stage name %q", m.name, s.Name())
		}
	}

	out, err := s.OutputShape(m.OutputShape())
	if err != nil {
		return err
	}

	m.stages = append(m.stages, s)
	m.shapes = append(m.shapes, out)
	return nil
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Len returns the number of stages.
func (m *Model) Len() int { return len(m.stages) }

// Stages returns the stages in execution order.
func (m *Model) Stages() []Stage {
	return append([]Stage(nil), m.stages...)
}

// Stage returns the stage with the given name, or nil.
func (m *Model) Stage(name string) Stage {
	for _, s := range m.stages {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// InputShape is the shape the first stage accepts.
func (m *Model) InputShape() Shape { return append(Shape(nil), m.input...) }

// OutputShape is the shape emitted by the last stage (the input shape for
// an empty model).
func (m *Model) OutputShape() Shape {
	if len(m.shapes) == 0 {
		return m.InputShape()
	}
	return append(Shape(nil), m.shapes[len(m.shapes)-1]...)
}

// StageInputShape is the shape received by stage i.
func (m *Model) StageInputShape(i int) Shape {
	if i == 0 {
		return m.InputShape()
	}
	return append(Shape(nil), m.shapes[i-1]...)
}

// StageOutputShape is the shape emitted by stage i.
func (m *Model) StageOutputShape(i int) Shape {
	return append(Shape(nil), m.shapes[i]...)
}

// ParamCount is the total number of weights across all stages.
func (m *Model) ParamCount() int {
	n := 0
	for _, s := range m.stages {
		n += s.ParamCount()
	}
	return n
}

// TrainableParamCount counts weights of trainable stages only.
func (m *Model) TrainableParamCount() int {
	return countParams(m.TrainableWeights())
}

// TrainableWeights returns the weight tensors an optimizer may update.
func (m *Model) TrainableWeights() []*Tensor {
	var ws []*Tensor
	for _, s := range m.stages {
		if s.Trainable() {
			ws = append(ws, s.Weights()...)
		}
	}
	return ws
}

// ===========================================================================
// COMPILATION
// ===========================================================================

// Compile binds the model to a loss, an optimizer and metrics, all by name.
// Unknown names are configuration errors and leave any earlier binding in
// place. Compiling again replaces the binding and resets optimizer state.
func (m *Model) Compile(loss, optimizer string, metricNames ...string) error {
	if len(m.stages) == 0 {
		return fmt.Errorf("model %q: cannot compile a model without stages", m.name)
	}

	l, err := LookupLoss(loss)
	if err != nil {
		return err
	}

	ms := make([]Metric, 0, len(metricNames))
	for _, name := range metricNames {
		metric, err := LookupMetric(name)
		if err != nil {
			return err
		}
		ms = append(ms, metric)
	}

	opt, lr, err := NewOptimizer(optimizer, m.TrainableWeights())
	if err != nil {
		return err
	}

	m.compiled = &Compilation{
		Loss:         l,
		Optimizer:    opt,
		OptimizerID:  optimizer,
		LearningRate: lr,
		Metrics:      ms,
	}
	return nil
}

// Compiled reports whether Compile has succeeded at least once.
func (m *Model) Compiled() bool { return m.compiled != nil }

// Compilation returns the current binding, or nil before Compile.
func (m *Model) Compilation() *Compilation { return m.compiled }

// ApplyGradients runs one optimizer step over the trainable weights using
// the gradients currently stored on them, then clears those gradients.
func (m *Model) ApplyGradients() error {
	if m.compiled == nil {
		return fmt.Errorf("model %q: not compiled", m.name)
	}
	ws := m.TrainableWeights()
	m.compiled.Optimizer.Step(ws, m.compiled.LearningRate)
	m.compiled.Optimizer.ZeroGrad(ws)
	return nil
}

// ===========================================================================
// INFERENCE
// ===========================================================================

// Forward runs every stage in order on a batch tensor.
func (m *Model) Forward(x *Tensor) (*Tensor, error) {
	var err error
	for _, s := range m.stages {
		if x, err = s.Forward(x); err != nil {
			return nil, fmt.Errorf("model %q: %w", m.name, err)
		}
	}
	return x, nil
}

// Predict runs inference on a batch of token index sequences and returns
// the model output, shaped (len(batch), ...).
func (m *Model) Predict(batch [][]int) (*Tensor, error) {
	x, err := m.tokensToTensor(batch)
	if err != nil {
		return nil, err
	}
	return m.Forward(x)
}

// Evaluation holds the loss and every compiled metric for one batch.
type Evaluation struct {
	Loss    float64
	Metrics map[string]float64
}

// Evaluate predicts the batch and scores it against labels with the
// compiled loss and metrics. The model must emit one value per sample.
func (m *Model) Evaluate(batch [][]int, labels []float64) (Evaluation, error) {
	if m.compiled == nil {
		return Evaluation{}, fmt.Errorf("model %q: not compiled", m.name)
	}

	out, err := m.Predict(batch)
	if err != nil {
		return Evaluation{}, err
	}
	if out.Size() != len(batch) {
		return Evaluation{}, fmt.Errorf("%w: model emits %v, evaluation needs one value per sample", ErrShapeMismatch, out.Shape())
	}

	loss, err := m.compiled.Loss.Compute(labels, out.data)
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{Loss: loss, Metrics: make(map[string]float64, len(m.compiled.Metrics))}
	for _, metric := range m.compiled.Metrics {
		v, err := metric.Compute(labels, out.data)
		if err != nil {
			return Evaluation{}, err
		}
		ev.Metrics[metric.Name] = v
	}
	return ev, nil
}

func (m *Model) tokensToTensor(batch [][]int) (*Tensor, error) {
	if m.input.Rank() != 2 {
		return nil, fmt.Errorf("model %q: input %s is not a token sequence", m.name, m.input)
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidShape)
	}

	seqLen := m.input[1]
	x := NewTensor(len(batch), seqLen)
	for i, seq := range batch {
		if len(seq) != seqLen {
			return nil, fmt.Errorf("%w: sample %d has %d tokens, want %d", ErrShapeMismatch, i, len(seq), seqLen)
		}
		for j, id := range seq {
			x.data[i*seqLen+j] = float64(id)
		}
	}
	return x, nil
}

// ===========================================================================
// SUMMARY
// ===========================================================================

// Summary renders a table of stages, output shapes and parameter counts.
func (m *Model) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Model: %q\n", m.name)

	rule := strings.Repeat("=", 64)
	sb.WriteString(rule + "\n")

	tw := tabwriter.NewWriter(&sb, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Layer (type)\tOutput Shape\tParam #\t")
	for i, s := range m.stages {
		fmt.Fprintf(tw, "%s (%s)\t%s\t%d\t\n", s.Name(), s.Kind(), m.shapes[i], s.ParamCount())
	}
	tw.Flush()

	sb.WriteString(rule + "\n")
	total, trainable := m.ParamCount(), m.TrainableParamCount()
	fmt.Fprintf(&sb, "Total params: %d\n", total)
	fmt.Fprintf(&sb, "Trainable params: %d\n", trainable)
	fmt.Fprintf(&sb, "Non-trainable params: %d\n", total-trainable)

	if m.compiled != nil {
		names := make([]string, len(m.compiled.Metrics))
		for i, metric := range m.compiled.Metrics {
			names[i] = metric.Name
		}
		fmt.Fprintf(&sb, "Compiled: loss=%s optimizer=%s lr=%g metrics=[%s]\n",
			m.compiled.Loss.Name, m.compiled.OptimizerID, m.compiled.LearningRate, strings.Join(names, ", "))
	}
	return sb.String()
}
