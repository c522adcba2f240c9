// Package srerr defines the surface error kinds described in the error
// handling design: each kind carries enough context to render
// "Error: <kind>: <context>" at the CLI boundary while still supporting
// errors.As/errors.Unwrap for callers that care about the specific kind.
package srerr

import "fmt"

// HashMismatch is returned when an event's declared hash does not match
// its recomputed canonical hash.
type HashMismatch struct {
	Expected string
	Found    string
}

func (e *HashMismatch) Error() string {
	return fmt.Sprintf("Incorrect event hash. Expected: %q. Found: %q.", e.Expected, e.Found)
}

// ParseError wraps a line-oriented parse failure with its 1-based line
// number, as required for generator/parse diagnostics.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaValidation is returned when a label-answer's answer fails its
// label's JSON schema.
type SchemaValidation struct {
	Path    string
	Message string
}

func (e *SchemaValidation) Error() string {
	return fmt.Sprintf("schema validation failed at %q: %s", e.Path, e.Message)
}

// StepFailed is returned by the flow supervisor when a child step exits
// non-zero.
type StepFailed struct {
	StepIndex int
	ExitCode  int
}

func (e *StepFailed) Error() string {
	return fmt.Sprintf("step %d failed with exit code %d", e.StepIndex, e.ExitCode)
}

// RemoteError wraps an unexpected HTTP response from a remote store's
// upload endpoint (the HTTP sink).
type RemoteError struct {
	Status int
	URL    string
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("Unexpected %d status for %s (%s)", e.Status, e.URL, e.Body)
}

// DbFormatTooOld is returned when a SQLite sink target still carries the
// legacy label-answer/document constraint trigger.
type DbFormatTooOld struct {
	Path string
}

func (e *DbFormatTooOld) Error() string {
	return fmt.Sprintf("database %q uses a legacy schema and must be upgraded before use", e.Path)
}

// MissingLabel is returned when a label-answer references a label hash
// that is not in the project's configured label set.
type MissingLabel struct {
	Hash string
}

func (e *MissingLabel) Error() string {
	return fmt.Sprintf("label-answer references unknown label %q", e.Hash)
}

// ConfigError wraps a failure resolving or validating project configuration.
type ConfigError struct {
	Context string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
