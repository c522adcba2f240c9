// Command sr is the content-addressed event pipeline runner: it
// resolves a project's sr.yaml, runs named flows or one-off pulls
// against a generator, and dispatches the built-in embedded steps a
// flow can delegate to.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/insilica/srvc-go/internal/srerr"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		renderError(err)
		os.Exit(1)
	}
}

// renderError prints "Error: <kind>: <context>" for the srerr kinds
// the pipeline can surface, falling back to the bare message for
// anything else (flag parsing failures, usage errors).
func renderError(err error) {
	var hashMismatch *srerr.HashMismatch
	var parseErr *srerr.ParseError
	var schemaErr *srerr.SchemaValidation
	var stepFailed *srerr.StepFailed
	var remoteErr *srerr.RemoteError
	var dbTooOld *srerr.DbFormatTooOld
	var configErr *srerr.ConfigError
	var missingLabel *srerr.MissingLabel

	switch {
	case errors.As(err, &hashMismatch):
		fmt.Fprintf(os.Stderr, "Error: hash mismatch: %v\n", hashMismatch)
	case errors.As(err, &parseErr):
		fmt.Fprintf(os.Stderr, "Error: parse error: %v\n", parseErr)
	case errors.As(err, &schemaErr):
		fmt.Fprintf(os.Stderr, "Error: schema validation: %v\n", schemaErr)
	case errors.As(err, &stepFailed):
		fmt.Fprintf(os.Stderr, "Error: step failed: %v\n", stepFailed)
	case errors.As(err, &remoteErr):
		fmt.Fprintf(os.Stderr, "Error: remote error: %v\n", remoteErr)
	case errors.As(err, &dbTooOld):
		fmt.Fprintf(os.Stderr, "Error: database too old: %v\n", dbTooOld)
	case errors.As(err, &configErr):
		fmt.Fprintf(os.Stderr, "Error: config error: %v\n", configErr)
	case errors.As(err, &missingLabel):
		fmt.Fprintf(os.Stderr, "Error: missing label: %v\n", missingLabel)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func configureLogger(dev bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if dev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
