package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tamarlowe/respkit/internal/resperr"
	"github.com/tamarlowe/respkit/internal/units"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Composition/validation failure
	ExitCommandError = 2 // Command error (bad flags, missing manifest, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope every command emits in json mode.
type Response struct {
	Status string         `json:"status"`
	Data   interface{}    `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError reports a failure in the taxonomy of the composition
// layer: the product code plus the product and calibration file involved,
// when known.
type ResponseError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Product string      `json:"product,omitempty"`
	File    string      `json:"file,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// classify maps a composition failure onto a ResponseError. Taxonomy
// errors keep their own code and diagnostics; unit mismatches and
// everything else get a generic code.
func classify(err error) *ResponseError {
	var rerr *resperr.Error
	if errors.As(err, &rerr) {
		body := &ResponseError{
			Code:    string(rerr.Code),
			Message: rerr.Message,
			Product: rerr.Product,
			File:    rerr.File,
		}
		if len(rerr.Details) > 0 {
			body.Details = rerr.Details
		}
		return body
	}
	var merr *units.MismatchError
	if errors.As(err, &merr) {
		return &ResponseError{Code: "UNIT_MISMATCH", Message: merr.Error()}
	}
	return &ResponseError{Code: "COMPOSE_FAILED", Message: err.Error()}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose/diagnostic output, kept off stdout for JSON
	Verbose   bool
}

// Success outputs a successful result in the configured format. Text mode
// prints the data's String form.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail emits the failure envelope for a composition error and returns it
// wrapped with the failure exit code. The envelope goes to stdout; the
// exit error carries the stage for the process status.
func (f *OutputFormatter) Fail(stage string, err error) error {
	if ferr := f.Error(classify(err)); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitFailure, stage, err)
}

// Error outputs an error envelope in the configured format.
func (f *OutputFormatter) Error(body *ResponseError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: body})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", body.Code, body.Message)
	if body.Product != "" {
		fmt.Fprintf(f.Writer, "  product: %s\n", body.Product)
	}
	if body.File != "" {
		fmt.Fprintf(f.Writer, "  file: %s\n", body.File)
	}
	if f.Verbose && body.Details != nil {
		fmt.Fprintf(f.Writer, "  details: %v\n", body.Details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled. Goes to
// ErrWriter so JSON output on stdout stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
