package models

import (
	"errors"
	"fmt"
	"strings"
)

// Validation failures, reported before any subprocess is spawned.
var (
	ErrEmptyTimeline = errors.New("timeline has no segments")
	ErrMissingFile   = errors.New("file not found")
	ErrOutputExists  = errors.New("output file already exists")
	ErrInvalidName   = errors.New("name contains invalid characters")
)

// ValidationError reports a rejected timeline or request.
type ValidationError struct {
	Field string
	Err   error
}

// NewValidationError wraps err with the offending field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Err.Error()
	}
	return fmt.Sprintf("validation failed: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CompilationError marks a broken internal invariant of the graph builder.
// It indicates a defect, not a user-facing condition.
type CompilationError struct {
	Reason string
}

func (e *CompilationError) Error() string {
	return "compilation invariant violated: " + e.Reason
}

// PipelineError is returned when an ffmpeg invocation exits non-zero.
// Stderr holds the captured diagnostic tail verbatim.
type PipelineError struct {
	Invocation string
	ExitCode   int
	Stderr     string
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("ffmpeg %s failed with exit code %d", e.Invocation, e.ExitCode)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += "\nOutput: " + tail
	}
	return msg
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
