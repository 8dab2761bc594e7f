package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"

	"github.com/roach88/lazytbl/internal/config"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/transport"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query or DDL failure reported by the server
	ExitCommandError = 2 // Command error (bad plan, config, identifiers, connection)
)

// ErrCodeGeneric is reported for errors outside the lazytbl taxonomy.
const ErrCodeGeneric = "E001"

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
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

// exitCodeFor classifies err: server-side failures are ExitFailure,
// everything the user can fix locally is ExitCommandError.
func exitCodeFor(err error) int {
	switch lazyerr.CodeOf(err) {
	case lazyerr.CodeQueryExecution, lazyerr.CodeTableNotFound, lazyerr.CodeTableExists,
		lazyerr.CodeAmbiguousTransform:
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	Color     bool // colorize text-mode errors
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // lazyerr code, or E001
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// RowsData is the JSON payload of a query result.
type RowsData struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Rows outputs a result set: a table in text mode, columns and rows in JSON.
func (f *OutputFormatter) Rows(res *transport.Result) error {
	if f.Format == "json" {
		return f.Success(RowsData{Columns: res.Columns, Rows: res.Rows})
	}

	table := tablewriter.NewWriter(f.Writer)
	table.SetHeader(res.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		table.Append(cells)
	}
	table.Render()
	fmt.Fprintf(f.Writer, "(%d rows)\n", len(res.Rows))
	return nil
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	label := color.New(color.FgRed, color.Bold)
	if !f.Color {
		label.DisableColor()
	}
	label.Fprintf(f.Writer, "Error [%s]:", code)
	fmt.Fprintf(f.Writer, " %s\n", message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err through Error, deriving the code and details from the
// lazytbl taxonomy or a config error.
func (f *OutputFormatter) Fail(err error) error {
	var le *lazyerr.Error
	if errors.As(err, &le) {
		var details any
		if len(le.Details) > 0 {
			details = le.Details
		}
		return f.Error(string(le.Code), err.Error(), details)
	}
	if ce, ok := config.AsError(err); ok {
		return f.Error("CONFIG_ERROR", ce.Error(), nil)
	}
	return f.Error(ErrCodeGeneric, err.Error(), nil)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
