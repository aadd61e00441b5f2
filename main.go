package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ExitError carries the process exit code for an error. Usage errors exit
// with 2, everything else with 1.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

func main() {
	// Use a minimal logger until the flags are parsed.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses global flags, installs the logger and dispatches to a
// sub-command. Command output goes to outW, logs to logW.
func run(outW, logW io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("lstmcnn", flag.ContinueOnError)
	flagSet.SetOutput(outW)
	flagSet.Usage = func() {
		printUsage(outW)
		flagSet.PrintDefaults()
	}

	logLevel := flagSet.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormat := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError("%v", err)
	}

	logger, err := newLogger(logW, *logLevel, *logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil
	}

	cmd, rest := flagSet.Arg(0), flagSet.Args()[1:]
	slog.Debug("Dispatching command.", "command", cmd, "args", rest)
	switch cmd {
	case "summary":
		return RunSummaryCommand(outW, rest)
	case "validate":
		return RunValidateCommand(outW, rest)
	case "help", "-h", "--help":
		flagSet.Usage()
		return nil
	default:
		printUsage(outW)
		return usageError("unknown command: %s", cmd)
	}
}

// newLogger builds a logger without installing it.
func newLogger(w io.Writer, levelStr, formatStr string) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, usageError("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(formatStr) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, usageError("invalid log-format %q: must be 'text' or 'json'", formatStr)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  lstmcnn [global options] <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  summary     Build the LSTM-CNN classifier and print its layer summary")
	fmt.Fprintln(w, "  validate    Check a hyperparameter file")
	fmt.Fprintln(w, "  help        Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  lstmcnn summary -params=testdata/params.hcl -vocab=100 -dim=50 -seq=30")
	fmt.Fprintln(w, "  lstmcnn summary -params=testdata/params.hcl -seq=40 -predict=3")
	fmt.Fprintln(w, "  lstmcnn -log-level=debug validate -params=testdata/params.hcl")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global options:")
}
