package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Hyperparameter keys, spelled the way hyperparameter-search dictionaries
// and params files spell them.
const (
	KeyLSTMNumNeurons       = "LSTM_num_neurons"
	KeyLSTMDropout          = "LSTM_dropout"
	KeyLSTMRecurrentDropout = "LSTM_recurrent_dropout"
	KeyCNNFilters           = "CNN_filters"
	KeyCNNKernelSize        = "CNN_kernel_size"
	KeyCNNActivation        = "CNN_activation"
	KeyCNNPoolSize          = "CNN_pool_size"
	KeyDenseActivation      = "DENSE_activation"
	KeyLoss                 = "loss"
	KeyOptimizer            = "optimizer"
)

// Params holds every hyperparameter the LSTM-CNN builder needs. There are
// no defaults: each field must be supplied by the caller. The zero value of
// every field reads as missing, which is why the rates are pointers.
type Params struct {
	LSTMNumNeurons       int      // LSTM hidden units
	LSTMDropout          *float64 // input dropout rate, [0,1)
	LSTMRecurrentDropout *float64 // recurrent dropout rate, [0,1)
	CNNFilters           int      // Conv1D output channels
	CNNKernelSize        int      // Conv1D window
	CNNActivation        string   // Conv1D activation name
	CNNPoolSize          int      // MaxPooling1D window
	DenseActivation      string   // output activation name
	Loss                 string   // loss name
	Optimizer            string   // optimizer name
}

// Rate returns a pointer to v, for filling the rate fields of Params.
func Rate(v float64) *float64 { return &v }

type paramField struct {
	key string
	typ cty.Type
	ptr func(p *Params) any
}

var paramFields = []paramField{
	{KeyLSTMNumNeurons, cty.Number, func(p *Params) any { return &p.LSTMNumNeurons }},
	{KeyLSTMDropout, cty.Number, func(p *Params) any { return &p.LSTMDropout }},
	{KeyLSTMRecurrentDropout, cty.Number, func(p *Params) any { return &p.LSTMRecurrentDropout }},
	{KeyCNNFilters, cty.Number, func(p *Params) any { return &p.CNNFilters }},
	{KeyCNNKernelSize, cty.Number, func(p *Params) any { return &p.CNNKernelSize }},
	{KeyCNNActivation, cty.String, func(p *Params) any { return &p.CNNActivation }},
	{KeyCNNPoolSize, cty.Number, func(p *Params) any { return &p.CNNPoolSize }},
	{KeyDenseActivation, cty.String, func(p *Params) any { return &p.DenseActivation }},
	{KeyLoss, cty.String, func(p *Params) any { return &p.Loss }},
	{KeyOptimizer, cty.String, func(p *Params) any { return &p.Optimizer }},
}

// RequiredKeys lists every hyperparameter key in declaration order.
func RequiredKeys() []string {
	keys := make([]string, len(paramFields))
	for i, f := range paramFields {
		keys[i] = f.key
	}
	return keys
}

// Validate checks ranges and names. It returns ConfigErrors listing every
// problem, or nil.
func (p Params) Validate() error {
	var errs ConfigErrors
	positive := func(key string, v int) {
		if v <= 0 {
			errs = append(errs, &ConfigError{Key: key, Reason: fmt.Sprintf("must be a positive integer, got %d", v)})
		}
	}
	rate := func(key string, v *float64) {
		switch {
		case v == nil:
			errs = append(errs, &ConfigError{Key: key, Reason: "missing"})
		case !(*v >= 0 && *v < 1):
			errs = append(errs, &ConfigError{Key: key, Reason: fmt.Sprintf("must be in [0, 1), got %g", *v)})
		}
	}
	named := func(key, v, kind string, known []string) {
		switch {
		case v == "":
			errs = append(errs, &ConfigError{Key: key, Reason: "missing"})
		case !slices.Contains(known, v):
			errs = append(errs, &ConfigError{Key: key, Reason: fmt.Sprintf("unknown %s %q (known: %v)", kind, v, known)})
		}
	}

	positive(KeyLSTMNumNeurons, p.LSTMNumNeurons)
	rate(KeyLSTMDropout, p.LSTMDropout)
	rate(KeyLSTMRecurrentDropout, p.LSTMRecurrentDropout)
	positive(KeyCNNFilters, p.CNNFilters)
	positive(KeyCNNKernelSize, p.CNNKernelSize)
	named(KeyCNNActivation, p.CNNActivation, "activation", ActivationNames())
	positive(KeyCNNPoolSize, p.CNNPoolSize)
	named(KeyDenseActivation, p.DenseActivation, "activation", ActivationNames())
	named(KeyLoss, p.Loss, "loss", LossNames())
	named(KeyOptimizer, p.Optimizer, "optimizer", OptimizerNames())

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Map returns the parameters keyed by their hyperparameter names. An unset
// rate maps to nil.
func (p Params) Map() map[string]any {
	rate := func(v *float64) any {
		if v == nil {
			return nil
		}
		return *v
	}
	return map[string]any{
		KeyLSTMNumNeurons:       p.LSTMNumNeurons,
		KeyLSTMDropout:          rate(p.LSTMDropout),
		KeyLSTMRecurrentDropout: rate(p.LSTMRecurrentDropout),
		KeyCNNFilters:           p.CNNFilters,
		KeyCNNKernelSize:        p.CNNKernelSize,
		KeyCNNActivation:        p.CNNActivation,
		KeyCNNPoolSize:          p.CNNPoolSize,
		KeyDenseActivation:      p.DenseActivation,
		KeyLoss:                 p.Loss,
		KeyOptimizer:            p.Optimizer,
	}
}

// ParamsFromMap decodes a dynamic key/value mapping. Integer fields accept
// any Go integer or a whole float, rate fields any number, name fields
// strings only. A nil value counts as missing. Missing keys and wrong types
// are reported together; keys that are not hyperparameters of this model
// are ignored.
func ParamsFromMap(m map[string]any) (Params, error) {
	values := make(map[string]cty.Value, len(m))
	var errs ConfigErrors

	for _, f := range paramFields {
		raw, ok := m[f.key]
		if !ok || raw == nil {
			continue // reported as missing by decodeValues
		}
		v, err := gocty.ToCtyValue(raw, f.typ)
		if err != nil {
			errs = append(errs, &ConfigError{Key: f.key, Reason: fmt.Sprintf("expected %s, got %T", f.typ.FriendlyName(), raw)})
			continue
		}
		values[f.key] = v
	}
	logIgnoredKeys(sortedKeys(m))

	return decodeValues(values, errs)
}

// ParamsFromValues decodes hyperparameters from cty values, as produced by
// evaluating HCL attributes.
func ParamsFromValues(values map[string]cty.Value) (Params, error) {
	logIgnoredKeys(sortedKeys(values))
	return decodeValues(values, nil)
}

func decodeValues(values map[string]cty.Value, errs ConfigErrors) (Params, error) {
	var p Params
	failed := make(map[string]bool, len(errs))
	for _, e := range errs {
		failed[e.Key] = true
	}

	for _, f := range paramFields {
		if failed[f.key] {
			continue
		}
		v, ok := values[f.key]
		if reason := decodeField(f, v, ok, &p); reason != "" {
			errs = append(errs, &ConfigError{Key: f.key, Reason: reason})
			failed[f.key] = true
		}
	}

	// Range and name checks on the fields that did decode, so one pass
	// reports every problem.
	if err := p.Validate(); err != nil {
		for _, e := range err.(ConfigErrors) {
			if !failed[e.Key] {
				errs = append(errs, e)
			}
		}
	}

	if len(errs) > 0 {
		return Params{}, errs
	}
	return p, nil
}

// decodeField stores v into the field described by f. It returns the reason
// the value was rejected, or "".
func decodeField(f paramField, v cty.Value, present bool, p *Params) string {
	switch {
	case !present || v.IsNull():
		return "missing"
	case !v.IsWhollyKnown():
		return "value is not known"
	case !v.Type().Equals(f.typ):
		return fmt.Sprintf("expected %s, got %s", f.typ.FriendlyName(), v.Type().FriendlyName())
	}

	if err := gocty.FromCtyValue(v, f.ptr(p)); err != nil {
		return err.Error()
	}
	return ""
}

// LoadParamsFile reads hyperparameters from an HCL file of top-level
// attributes:
//
//	LSTM_num_neurons       = 64
//	LSTM_dropout           = 0.2
//	CNN_activation         = "relu"
//	...
func LoadParamsFile(path string) (Params, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Params{}, fmt.Errorf("failed to parse params file %s: %w", path, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return Params{}, fmt.Errorf("failed to decode params file %s: %w", path, diags)
	}

	values := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return Params{}, fmt.Errorf("failed to evaluate %s in %s: %w", name, path, diags)
		}
		values[name] = v
	}

	p, err := ParamsFromValues(values)
	if err != nil {
		return Params{}, fmt.Errorf("params file %s: %w", path, err)
	}
	return p, nil
}

func logIgnoredKeys(keys []string) {
	known := make(map[string]bool, len(paramFields))
	for _, f := range paramFields {
		known[f.key] = true
	}
	var ignored []string
	for _, k := range keys {
		if !known[k] {
			ignored = append(ignored, k)
		}
	}
	if len(ignored) > 0 {
		slog.Debug("Ignoring keys that are not model hyperparameters.", "keys", ignored)
	}
}

