// Package render serialises a compiled filter graph into ffmpeg invocations.
package render

import (
	"fmt"
	"path/filepath"
	"strings"

	"montage/command"
	"montage/filtergraph"
)

// RenderBuilder turns a filter graph and encoding options into a plan.
//
// Arguments are produced in a fixed order: overwrite flag, inputs in index
// order, the filter graph, stream maps, encoding options and finally the
// output path (or the pass 1 null sink).
type RenderBuilder struct {
	graph      *filtergraph.Graph
	outputPath string
	encoding   command.Encoding
	logFile    string
	extraArgs  []string
}

// NewRenderBuilder creates a builder writing graph to outputPath with the
// default encoding for the output container.
func NewRenderBuilder(graph *filtergraph.Graph, outputPath string) *RenderBuilder {
	return &RenderBuilder{
		graph:      graph,
		outputPath: outputPath,
		encoding:   command.ForFormat(filepath.Ext(outputPath)),
		extraArgs:  []string{},
	}
}

// SetEncoding replaces the encoding options
func (r *RenderBuilder) SetEncoding(encoding command.Encoding) *RenderBuilder {
	r.encoding = encoding
	return r
}

// SetTwoPass enables two-pass encoding at the given video bitrate
func (r *RenderBuilder) SetTwoPass(bitrate string) *RenderBuilder {
	r.encoding = r.encoding.WithTwoPass(bitrate)
	return r
}

// SetFast selects the fastest encoder preset
func (r *RenderBuilder) SetFast(fast bool) *RenderBuilder {
	r.encoding = r.encoding.WithFast(fast)
	return r
}

// SetPassLogFile overrides the two-pass statistics file prefix
func (r *RenderBuilder) SetPassLogFile(path string) *RenderBuilder {
	r.logFile = path
	return r
}

// AddExtraArgs adds custom ffmpeg arguments placed before the output
func (r *RenderBuilder) AddExtraArgs(args ...string) *RenderBuilder {
	r.extraArgs = append(r.extraArgs, args...)
	return r
}

// BuildArgs returns the arguments shared by every invocation of the plan,
// without the output path.
func (r *RenderBuilder) BuildArgs() []string {
	args := []string{"-y"}
	args = append(args, r.graph.InputArgs()...)
	args = append(args, "-filter_complex", r.graph.FilterComplex())

	args = append(args, "-map", "["+r.graph.VideoOut.Label()+"]")
	if r.graph.HasAudio {
		args = append(args, "-map", "["+r.graph.AudioOut.Label()+"]")
	} else {
		args = append(args, "-an")
	}

	args = append(args, "-shortest")
	args = append(args, r.encoding.Args()...)
	args = append(args, r.extraArgs...)
	return args
}

// Plan compiles the builder into one invocation, or two for a two-pass
// encode.
func (r *RenderBuilder) Plan() (*command.Plan, error) {
	if r.graph == nil {
		return nil, fmt.Errorf("render requires a compiled graph")
	}
	if strings.TrimSpace(r.outputPath) == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}
	if err := r.graph.Validate(); err != nil {
		return nil, err
	}
	if err := r.encoding.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	plan := &command.Plan{
		Type:       command.TaskTypeRender,
		InputPath:  r.GetInputPath(),
		OutputPath: r.outputPath,
		Duration:   r.graph.Duration,
	}

	common := r.BuildArgs()
	if r.encoding.IsTwoPass() {
		logFile := r.logFile
		if logFile == "" {
			logFile = command.PassLogFile(r.outputPath)
		}
		plan.Invocations = command.TwoPass(common, r.outputPath, logFile)
	} else {
		plan.Invocations = command.SinglePass(command.InvocationRender, common, r.outputPath)
	}
	return plan, nil
}

// DryRun returns the command that would be executed without running it
func (r *RenderBuilder) DryRun() (string, error) {
	plan, err := r.Plan()
	if err != nil {
		return "", err
	}
	return plan.String(), nil
}

// GetTaskType returns the task type
func (r *RenderBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeRender
}

// GetInputPath returns the first bound input
func (r *RenderBuilder) GetInputPath() string {
	if r.graph == nil || len(r.graph.Inputs) == 0 {
		return ""
	}
	return r.graph.Inputs[0].Path
}

// GetOutputPath returns the output path
func (r *RenderBuilder) GetOutputPath() string {
	return r.outputPath
}
