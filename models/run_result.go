package models

import (
	"fmt"
	"strings"
	"time"
)

// RunResult is the outcome of one ffmpeg invocation.
//
// ExitCode is the process exit status: 0 on success, the engine's own code
// on failure, and -1 when the process could not be started or was killed.
// StderrTail holds the last bytes of the diagnostic stream.
type RunResult struct {
	JobID      string        `json:"job_id"`
	Invocation string        `json:"invocation"`
	OutputPath string        `json:"output_path,omitempty"`
	ExitCode   int           `json:"exit_code"`
	StderrTail string        `json:"stderr_tail,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// Err converts a failed result into a *PipelineError, or nil on success.
func (r RunResult) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &PipelineError{
		Invocation: r.Invocation,
		ExitCode:   r.ExitCode,
		Stderr:     r.StderrTail,
	}
}

// Validate checks that the result is internally consistent.
//
// Returns an error if:
//   - Invocation is empty
//   - a successful result carries a negative exit code
func (r RunResult) Validate() error {
	if strings.TrimSpace(r.Invocation) == "" {
		return fmt.Errorf("invocation cannot be empty")
	}
	if r.ExitCode < -1 {
		return fmt.Errorf("exit code %d out of range", r.ExitCode)
	}
	return nil
}

// Summary returns a one-line human readable description.
func (r RunResult) Summary() string {
	status := "ok"
	if !r.IsSuccess() {
		status = fmt.Sprintf("exit %d", r.ExitCode)
	}
	return fmt.Sprintf("%s: %s in %s", r.Invocation, status, r.Duration.Round(time.Millisecond))
}
