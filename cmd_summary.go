package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
)

// ===========================================================================
// SUMMARY AND VALIDATE COMMANDS
// ===========================================================================
//
// summary builds the classifier exactly as a training script would and
// prints its layer table. The embedding matrix is random (vocab x dim,
// std 0.02); the layer shapes and parameter counts only depend on its
// dimensions.
//
// -predict N additionally runs N random token sequences through the model,
// which is a quick way to see that every stage accepts what the previous
// one emits.
//
// validate only loads and checks a params file.
// ===========================================================================

// RunSummaryCommand implements the summary CLI.
func RunSummaryCommand(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(out)

	paramsPath := fs.String("params", "", "HCL file with the model hyperparameters (required)")
	vocab := fs.Int("vocab", 100, "Vocabulary size of the random embedding matrix")
	dim := fs.Int("dim", 50, "Embedding dimension of the random embedding matrix")
	seqLen := fs.Int("seq", 30, "Sequence length (tokens per sample)")
	name := fs.String("name", "lstm_cnn", "Model name")
	predict := fs.Int("predict", 0, "Run this many random sequences through the model")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError("%v", err)
	}
	if *paramsPath == "" {
		return usageError("summary: -params is required")
	}
	if *vocab <= 0 || *dim <= 0 {
		return usageError("summary: -vocab and -dim must be positive")
	}
	if *predict < 0 {
		return usageError("summary: -predict must not be negative")
	}

	params, err := LoadParamsFile(*paramsPath)
	if err != nil {
		return err
	}

	matrix := NewTensorRand(*vocab, *dim)
	slog.Debug("Random embedding matrix.", "vocab", *vocab, "dim", *dim)

	builder := NewLSTMCNNModel(*name)
	model, err := builder.BuildModel(matrix, *seqLen, params)
	if err != nil {
		return err
	}

	fmt.Fprint(out, model.Summary())

	if *predict > 0 {
		batch := make([][]int, *predict)
		for i := range batch {
			batch[i] = make([]int, *seqLen)
			for j := range batch[i] {
				batch[i][j] = rand.Intn(*vocab)
			}
		}
		probs, err := model.Predict(batch)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Predictions on random sequences:")
		for i := range batch {
			fmt.Fprintf(out, "  sample %d: %.4f\n", i, probs.At(i, 0))
		}
	}

	return nil
}

// RunValidateCommand implements the validate CLI.
func RunValidateCommand(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(out)
	paramsPath := fs.String("params", "", "HCL file with the model hyperparameters (required)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError("%v", err)
	}
	if *paramsPath == "" {
		return usageError("validate: -params is required")
	}

	params, err := LoadParamsFile(*paramsPath)
	if err != nil {
		var cfgErrs ConfigErrors
		if errors.As(err, &cfgErrs) {
			fmt.Fprintf(out, "%s: %d problem(s)\n", *paramsPath, len(cfgErrs))
			for _, e := range cfgErrs {
				fmt.Fprintf(out, "  %s\n", e)
			}
		}
		return err
	}

	fmt.Fprintf(out, "%s: ok\n", *paramsPath)
	values := params.Map()
	for _, key := range RequiredKeys() {
		fmt.Fprintf(out, "  %-24s %v\n", key, values[key])
	}
	return nil
}
