// Package parsererror defines the typed failures raised while loading fuel exports.
package parsererror

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotSpreadsheet reports that a decoder was handed bytes that are not a
// spreadsheet container of its kind (bad signature, corrupt OLE2/BIFF or zip).
var ErrNotSpreadsheet = errors.New("content is not a spreadsheet container")

// UnparsableSourceError is returned when no loading strategy produced a table
// with the required columns.
type UnparsableSourceError struct {
	FilePath string
	Headers  []string // headers seen by the last attempt that read any
	Required []string
	Attempts []error
}

func (e *UnparsableSourceError) Error() string {
	headers := "none"
	if len(e.Headers) > 0 {
		headers = strings.Join(e.Headers, ", ")
	}
	return fmt.Sprintf("unable to read '%s': required columns %s not found (headers found: %s; %d attempts)",
		e.FilePath, strings.Join(e.Required, " + "), headers, len(e.Attempts))
}

// Unwrap exposes the collected attempt failures to errors.Is / errors.As.
func (e *UnparsableSourceError) Unwrap() []error {
	return e.Attempts
}

// NoValidRowsError is returned when a table was loaded but every row was dropped.
type NoValidRowsError struct {
	FilePath string
}

func (e *NoValidRowsError) Error() string {
	return fmt.Sprintf("no valid rows in '%s': every row lacked a timestamp or vehicle id", e.FilePath)
}

// StrategyError records one failed loading attempt.
type StrategyError struct {
	Strategy string
	Sheet    int
	Offset   int
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s (sheet %d, header offset %d): %v", e.Strategy, e.Sheet, e.Offset, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// ValidationError represents a configuration or input validation failure
type ValidationError struct {
	FilePath string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.FilePath, e.Reason)
}
