// Package command provides the typed plan that every builder produces and
// the pipeline runner executes.
//
// A Plan is a list of ffmpeg invocations. Builders (render, clip, custom)
// never concatenate shell strings: each invocation is an argument slice that
// is handed to the process as is. The shell-quoted form exists only for
// previews.
package command

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
)

// TaskType represents the kind of job a plan performs.
type TaskType string

const (
	TaskTypeRender TaskType = "render" // Timeline compiled through a filter graph
	TaskTypeClip   TaskType = "clip"   // Single-file trim/transcode
	TaskTypeCustom TaskType = "custom" // User-supplied argument template
)

// Invocation names used in plans and progress reports.
const (
	InvocationRender = "render"
	InvocationClip   = "clip"
	InvocationCustom = "custom"
	InvocationPass1  = "pass1"
	InvocationPass2  = "pass2"
)

// Invocation is one run of ffmpeg. Args never include the binary itself.
type Invocation struct {
	Name string
	Args []string
}

// String renders the invocation as a shell-quoted command line.
func (inv Invocation) String() string {
	return shellquote.Join(append([]string{"ffmpeg"}, inv.Args...)...)
}

// Plan is the compiled form of a job: the invocations to run in order.
//
// Invocation i depends on invocation i-1 and is never started when an
// earlier one fails. Verbatim plans come from user templates and must be
// executed without any injected arguments.
type Plan struct {
	Type        TaskType
	InputPath   string
	OutputPath  string
	Duration    float64 // Expected output length in seconds, 0 if unknown
	Verbatim    bool
	Invocations []Invocation
}

// Validate checks that the plan can be executed.
func (p *Plan) Validate() error {
	if len(p.Invocations) == 0 {
		return fmt.Errorf("plan has no invocations")
	}
	for i, inv := range p.Invocations {
		if inv.Name == "" {
			return fmt.Errorf("invocation %d has no name", i)
		}
		if len(inv.Args) == 0 {
			return fmt.Errorf("invocation %s has no arguments", inv.Name)
		}
	}
	return nil
}

// IsMultiPass reports whether the plan runs more than one invocation.
func (p *Plan) IsMultiPass() bool { return len(p.Invocations) > 1 }

// String renders every invocation on its own line.
func (p *Plan) String() string {
	lines := make([]string, len(p.Invocations))
	for i, inv := range p.Invocations {
		lines[i] = inv.String()
	}
	return strings.Join(lines, "\n")
}

// Command is a job description that compiles to a Plan.
//
// Builders implement this interface so the CLI can preview or execute any
// kind of job the same way.
type Command interface {
	// Plan compiles the command into its invocations.
	Plan() (*Plan, error)

	// DryRun returns the shell-quoted preview of the plan.
	DryRun() (string, error)

	// GetTaskType returns the kind of job.
	GetTaskType() TaskType

	// GetInputPath returns the primary input file path.
	GetInputPath() string

	// GetOutputPath returns the output file path.
	GetOutputPath() string
}

// SinglePass builds a one-invocation list writing to output.
func SinglePass(name string, common []string, output string) []Invocation {
	return []Invocation{{Name: name, Args: appendArgs(common, output)}}
}

// TwoPass builds the pass 1 / pass 2 invocations sharing common arguments.
//
// Pass 1 writes its statistics to logFile and discards the encoded output;
// pass 2 reads the statistics and writes output.
func TwoPass(common []string, output, logFile string) []Invocation {
	return []Invocation{
		{
			Name: InvocationPass1,
			Args: appendArgs(common, "-pass", "1", "-passlogfile", logFile, "-f", "null", os.DevNull),
		},
		{
			Name: InvocationPass2,
			Args: appendArgs(common, "-pass", "2", "-passlogfile", logFile, output),
		},
	}
}

// PassLogFile returns the statistics file prefix used for a two-pass
// encode of output.
func PassLogFile(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + "-passlog"
}

func appendArgs(common []string, extra ...string) []string {
	args := make([]string, 0, len(common)+len(extra))
	args = append(args, common...)
	return append(args, extra...)
}

// Quote returns arg escaped for a POSIX shell.
func Quote(arg string) string {
	return shellquote.Join(arg)
}
